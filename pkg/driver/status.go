package driver

// Status is the signed result code returned by every runtime call.
// Negative values indicate failure; zero and positive values indicate
// success. Positive values double as the call's payload where the runtime
// reports a count or an identifier.
//
// Failure codes are negated errno values, bit-exact with the runtime ABI.
type Status int

// Canonical status codes. The runtime may return codes outside this set;
// translation of any negative code into text is the runtime's job
// (Runtime.ErrorMessage), never decided locally.
const (
	// StatusOK indicates success with no payload.
	StatusOK Status = 0

	// StatusNoEntry (ENOENT) indicates a missing file, typically the
	// device configuration passed to Open.
	StatusNoEntry Status = -2

	// StatusIO (EIO) indicates a transport-level input/output failure.
	StatusIO Status = -5

	// StatusAccess (EACCES) indicates an operation rejected in the current
	// communication state, e.g. a parameter write outside CONFIGURABLE.
	StatusAccess Status = -13

	// StatusBusy (EBUSY) indicates the device cannot accept the operation
	// while a previous one is still in progress.
	StatusBusy Status = -16

	// StatusNoDevice (ENODEV) indicates an unknown device name, index or
	// handle.
	StatusNoDevice Status = -19

	// StatusInvalid (EINVAL) indicates a malformed argument or
	// configuration.
	StatusInvalid Status = -22

	// StatusNotSupported (EOPNOTSUPP) indicates the device does not
	// implement the requested operation.
	StatusNotSupported Status = -95

	// StatusShutdown (ESHUTDOWN) indicates the bus is not started or has
	// been stopped or closed.
	StatusShutdown Status = -108

	// StatusTimedOut (ETIMEDOUT) indicates the runtime gave up waiting for
	// the device.
	StatusTimedOut Status = -110
)

// Ok returns true if the status indicates success.
func (s Status) Ok() bool {
	return s >= 0
}

// Value returns the status as a plain int: the call's payload on success,
// the raw failure code otherwise.
func (s Status) Value() int {
	return int(s)
}

// DeviceErrorCode is a device-side fault code as reported by
// Runtime.LastDeviceError. It describes the device's most recent fault and is
// advisory: reading it is not itself a failure.
type DeviceErrorCode uint32

// PropertyID identifies a device-specific property for the generic numeric
// property channel. The id space is defined by the runtime; this layer
// performs no validation.
type PropertyID int
