package bus

import (
	"fmt"
	"sync"

	"github.com/labbus-project/labbus-go/pkg/driver"
)

// Fault is a fault reported by a device. Faults are advisory: a faulted
// device still answers queries, and reading a fault is not an error.
type Fault struct {
	// Code is the device's fault code (0 = no fault).
	Code driver.DeviceErrorCode

	// Message is the device's text for the code (best effort, may be empty).
	Message string
}

// IsZero reports whether no fault is present.
func (f Fault) IsZero() bool {
	return f.Code == 0
}

// String returns a human-readable form of the fault.
func (f Fault) String() string {
	if f.IsZero() {
		return "none"
	}
	if f.Message == "" {
		return fmt.Sprintf("fault 0x%04X", uint32(f.Code))
	}
	return fmt.Sprintf("fault 0x%04X: %s", uint32(f.Code), f.Message)
}

// Device binds a runtime handle to its owning session and exposes the
// operations every bus node supports. Profile packages (pump, valve)
// embed Device for their node types.
type Device struct {
	session *Session

	mu     sync.RWMutex
	handle driver.Handle

	// Last communication state this host successfully requested. The
	// device itself may differ after a reboot or a remote command.
	intent      driver.CommState
	intentKnown bool
}

// NewDevice creates a device bound to session with an unresolved handle.
// Lookup operations in the profile packages resolve it later.
func NewDevice(session *Session) *Device {
	return &Device{session: session}
}

// AdoptHandle creates a device for a handle that is already resolved,
// e.g. one returned by another device's query.
func AdoptHandle(session *Session, h driver.Handle) *Device {
	return &Device{session: session, handle: h}
}

// Session returns the owning session.
func (d *Device) Session() *Session {
	return d.session
}

// Handle returns the current runtime handle (driver.None until resolved).
func (d *Device) Handle() driver.Handle {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handle
}

// SetHandle replaces the runtime handle. Lookup operations call this only
// after a successful resolve, so a failed lookup leaves the prior handle
// in place.
func (d *Device) SetHandle(h driver.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handle = h
}

// Resolved reports whether the device has a usable handle.
func (d *Device) Resolved() bool {
	return d.Handle().Resolved()
}

// Name returns the device's name on the bus.
func (d *Device) Name() (string, error) {
	if err := d.session.Guard("Device.Name"); err != nil {
		return "", err
	}
	name, st := d.session.rt.DeviceName(d.Handle())
	if err := d.session.Check("Device.Name", "", d.Handle(), st); err != nil {
		return "", err
	}
	return name, nil
}

// LastFaultCode reads the device's most recent fault code. Zero means no
// fault is present.
func (d *Device) LastFaultCode() (driver.DeviceErrorCode, error) {
	if err := d.session.Guard("Device.LastFaultCode"); err != nil {
		return 0, err
	}
	code, st := d.session.rt.LastDeviceError(d.Handle())
	if err := d.session.Check("Device.LastFaultCode", "", d.Handle(), st); err != nil {
		return 0, err
	}
	return code, nil
}

// FaultMessage returns the device's text for a fault code. It is best
// effort: any failure yields an empty string.
func (d *Device) FaultMessage(code driver.DeviceErrorCode) string {
	if err := d.session.Guard("Device.FaultMessage"); err != nil {
		return ""
	}
	message, st := d.session.rt.DeviceErrorMessage(d.Handle(), code)
	if err := d.session.Check("Device.FaultMessage", "", d.Handle(), st); err != nil {
		return ""
	}
	return message
}

// LastFault reads the most recent fault and resolves its message. A
// non-zero fault is recorded in the session trace.
func (d *Device) LastFault() (Fault, error) {
	code, err := d.LastFaultCode()
	if err != nil {
		return Fault{}, err
	}
	fault := Fault{Code: code}
	if code != 0 {
		fault.Message = d.FaultMessage(code)
		d.session.traceFault("", d.Handle(), uint32(code), fault.Message)
	}
	return fault, nil
}

// SetCommState requests a communication state transition on the device.
// The last successfully requested state is cached for CommStateIntent;
// a failed request leaves the cache untouched.
func (d *Device) SetCommState(state driver.CommState) error {
	if err := d.session.Guard("Device.SetCommState"); err != nil {
		return err
	}
	st := d.session.rt.SetCommState(d.Handle(), state)
	if err := d.session.Check("Device.SetCommState", "", d.Handle(), st); err != nil {
		return err
	}

	d.mu.Lock()
	oldState := ""
	if d.intentKnown {
		oldState = d.intent.String()
	}
	d.intent = state
	d.intentKnown = true
	d.mu.Unlock()

	d.session.traceCommState("", d.Handle(), oldState, state.String())
	return nil
}

// CommStateIntent returns the last communication state successfully
// requested through this device, and whether one was requested at all.
// It reflects this host's intent, not the device's actual state.
func (d *Device) CommStateIntent() (driver.CommState, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.intent, d.intentKnown
}

// NodeID returns the device's bus node identifier. Devices without one
// (logical sub-devices) return -1 with no error.
func (d *Device) NodeID() (int, error) {
	if err := d.session.Guard("Device.NodeID"); err != nil {
		return -1, err
	}
	id, st := d.session.rt.NodeID(d.Handle())
	if err := d.session.Check("Device.NodeID", "", d.Handle(), st); err != nil {
		return -1, err
	}
	return id, nil
}

// SetProperty writes a device property. Most devices accept property
// writes only in the configurable communication state.
func (d *Device) SetProperty(id driver.PropertyID, value float64) error {
	if err := d.session.Guard("Device.SetProperty"); err != nil {
		return err
	}
	st := d.session.rt.SetDeviceProperty(d.Handle(), id, value)
	return d.session.Check("Device.SetProperty", "", d.Handle(), st)
}

// Property reads a device property.
func (d *Device) Property(id driver.PropertyID) (float64, error) {
	if err := d.session.Guard("Device.Property"); err != nil {
		return 0, err
	}
	value, st := d.session.rt.DeviceProperty(d.Handle(), id)
	if err := d.session.Check("Device.Property", "", d.Handle(), st); err != nil {
		return 0, err
	}
	return value, nil
}
