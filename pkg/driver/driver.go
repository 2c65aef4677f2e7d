package driver

// Handle is an opaque device reference issued by the runtime. It carries no
// ownership of the underlying resource; the runtime owns the device, the
// holder owns a token. The zero value is the unresolved sentinel.
type Handle int64

// None is the unresolved handle sentinel.
const None Handle = 0

// Resolved returns true if the handle refers to a runtime-side device.
func (h Handle) Resolved() bool {
	return h != None
}

// Runtime is the bus core of the device runtime: connection lifecycle, the
// process-wide log sink, error message translation and the per-handle
// operations every device supports.
//
// Implementations are not required to be safe for concurrent use; the
// control plane assumes a single owning goroutine.
type Runtime interface {
	// Open initializes the runtime from a device configuration at the
	// given path and scans for connected devices. Must be called exactly
	// once before any other call.
	Open(configPath string) Status

	// Start sets all discovered devices operational and enables them.
	Start() Status

	// Stop halts network communication. Safe to call before Close.
	Stop() Status

	// Close releases all runtime resources and invalidates every handle.
	Close() Status

	// Log writes one message to the runtime's log sink.
	Log(message string) Status

	// ErrorMessage translates a status code into descriptive text.
	// It is infallible; unknown codes yield a generic message.
	ErrorMessage(code Status) string

	// DeviceName reports the runtime-assigned name for a device.
	DeviceName(h Handle) (string, Status)

	// LastDeviceError reads the device's most recent fault code.
	LastDeviceError(h Handle) (DeviceErrorCode, Status)

	// DeviceErrorMessage translates a device fault code into text for the
	// given device. A negative status means no translation is available.
	DeviceErrorMessage(h Handle, code DeviceErrorCode) (string, Status)

	// SetCommState requests a communication state transition.
	SetCommState(h Handle, state CommState) Status

	// NodeID reports the device's bus node identifier, or -1 with a
	// success status when the device has none.
	NodeID(h Handle) (int, Status)

	// SetDeviceProperty writes a device-specific numeric property.
	SetDeviceProperty(h Handle, id PropertyID, value float64) Status

	// DeviceProperty reads a device-specific numeric property.
	DeviceProperty(h Handle, id PropertyID) (float64, Status)
}

// PumpAPI is the syringe pump family of runtime operations. Handles passed
// to per-device methods must originate from this API's lookups.
type PumpAPI interface {
	// PumpCount reports the number of discovered pumps as the status
	// payload.
	PumpCount() Status

	// PumpByName resolves a pump handle by device name.
	PumpByName(name string) (Handle, Status)

	// PumpByIndex resolves a pump handle by discovery index.
	PumpByIndex(index int) (Handle, Status)

	SetVolumeUnit(h Handle, prefix Prefix, unit VolumeUnit) Status
	VolumeUnit(h Handle) (Prefix, VolumeUnit, Status)
	SetFlowUnit(h Handle, prefix Prefix, unit VolumeUnit, timeBase TimeUnit) Status
	FlowUnit(h Handle) (Prefix, VolumeUnit, TimeUnit, Status)

	// MaxFlowRate reports the highest flow rate realizable with the
	// current gear and syringe configuration, in the configured flow unit.
	MaxFlowRate(h Handle) (float64, Status)

	SyringeParams(h Handle) (innerDiameterMM, maxStrokeMM float64, st Status)
	SetSyringeParams(h Handle, innerDiameterMM, maxStrokeMM float64) Status
	MaxVolume(h Handle) (float64, Status)

	// CalibratePump starts a reference move. Completion is asynchronous;
	// poll IsCalibrationFinished.
	CalibratePump(h Handle) Status

	// SetFillLevel doses until the given fill level is reached. Whether
	// this aspirates or dispenses depends on the current level.
	SetFillLevel(h Handle, level, flow float64) Status

	// PumpVolume doses the given volume; the sign selects the direction.
	PumpVolume(h Handle, volume, flow float64) Status
	Dispense(h Handle, volume, flow float64) Status
	Aspirate(h Handle, volume, flow float64) Status

	// GenerateFlow starts a continuous flow; negative aspirates, positive
	// dispenses.
	GenerateFlow(h Handle, flow float64) Status

	StopPumping(h Handle) Status
	StopAllPumps() Status

	FlowIs(h Handle) (float64, Status)
	TargetVolume(h Handle) (float64, Status)
	DosedVolume(h Handle) (float64, Status)
	FillLevel(h Handle) (float64, Status)

	// IsPumping reports a positive payload while a dosage is running.
	IsPumping(h Handle) Status

	// IsCalibrationFinished reports a positive payload once a reference
	// move has completed.
	IsCalibrationFinished(h Handle) Status

	IsEnabled(h Handle) Status
	IsInFaultState(h Handle) Status
	ClearPumpFault(h Handle) Status
	EnablePumpDrive(h Handle) Status
	DisablePumpDrive(h Handle) Status

	DrivePositionCounter(h Handle) (int32, Status)
	RestoreDrivePositionCounter(h Handle, value int32) Status

	// HasValve reports a positive payload if the pump carries a valve.
	HasValve(h Handle) Status

	// PumpValve resolves the handle of the pump's attached valve.
	PumpValve(h Handle) (Handle, Status)
}

// ValveAPI is the valve family of runtime operations.
type ValveAPI interface {
	// ValveCount reports the number of discovered valves as the status
	// payload.
	ValveCount() Status

	// ValveByName resolves a valve handle by device name.
	ValveByName(name string) (Handle, Status)

	// ValveByIndex resolves a valve handle by discovery index.
	ValveByIndex(index int) (Handle, Status)

	// ValvePositionCount reports the number of discrete valve positions
	// as the status payload.
	ValvePositionCount(h Handle) Status

	// ActualValvePosition reports the current position as the status
	// payload.
	ActualValvePosition(h Handle) Status

	// SwitchValveToPosition moves the valve to the given logical
	// position. Completion is asynchronous; poll ActualValvePosition.
	SwitchValveToPosition(h Handle, position int) Status
}
