package sim

import (
	"log/slog"
	"sync"
	"time"

	"github.com/labbus-project/labbus-go/pkg/driver"
	"github.com/labbus-project/labbus-go/pkg/polling"
)

// runtimeState tracks the lifecycle of the simulated runtime.
type runtimeState uint8

const (
	stateCreated runtimeState = iota
	stateOpened
	stateStarted
	stateStopped
	stateClosed
)

// deviceKind discriminates entries in the handle table.
type deviceKind uint8

const (
	kindPump deviceKind = iota
	kindValve
)

var (
	_ driver.Runtime  = (*Runtime)(nil)
	_ driver.PumpAPI  = (*Runtime)(nil)
	_ driver.ValveAPI = (*Runtime)(nil)
)

// Runtime is an in-process device runtime backed by a motion model
// instead of hardware. It implements driver.Runtime, driver.PumpAPI and
// driver.ValveAPI, and is the drop-in backend for exercising the control
// plane without a bus attached.
//
// Unlike hardware runtimes, Runtime is safe for concurrent use.
type Runtime struct {
	clock    polling.Clock
	logger   *slog.Logger
	calibDur time.Duration

	mu       sync.Mutex
	state    runtimeState
	busName  string
	devices  []*simDevice
	logLines []string
}

// simDevice is one entry in the handle table. The handle is the entry's
// index plus one, so the zero handle never resolves.
type simDevice struct {
	kind   deviceKind
	name   string
	nodeID int // -1 when the device has no own node
	comm   driver.CommState

	fault    driver.DeviceErrorCode
	faultMsg string

	props map[driver.PropertyID]float64

	pump  *simPump
	valve *simValve
}

// New creates a simulated runtime. The device inventory is loaded later,
// by Open.
func New(config Config) *Runtime {
	clock := config.Clock
	if clock == nil {
		clock = polling.SystemClock()
	}
	calibDur := config.CalibrationDuration
	if calibDur == 0 {
		calibDur = DefaultCalibrationDuration
	}
	return &Runtime{
		clock:    clock,
		logger:   config.Logger,
		calibDur: calibDur,
	}
}

func (r *Runtime) debugLog(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

// gate rejects calls outside the runtime's live states. It must be called
// with the mutex held.
func (r *Runtime) gate() driver.Status {
	switch r.state {
	case stateClosed:
		return driver.StatusShutdown
	case stateCreated:
		return driver.StatusAccess
	default:
		return driver.StatusOK
	}
}

// device resolves a handle of the given kind. It must be called with the
// mutex held.
func (r *Runtime) device(h driver.Handle, kind deviceKind) (*simDevice, driver.Status) {
	d, st := r.anyDevice(h)
	if !st.Ok() {
		return nil, st
	}
	if d.kind != kind {
		return nil, driver.StatusNoDevice
	}
	return d, driver.StatusOK
}

func (r *Runtime) anyDevice(h driver.Handle) (*simDevice, driver.Status) {
	if st := r.gate(); !st.Ok() {
		return nil, st
	}
	i := int(h) - 1
	if i < 0 || i >= len(r.devices) {
		return nil, driver.StatusNoDevice
	}
	return r.devices[i], driver.StatusOK
}

// Open loads the device configuration at configPath and populates the
// handle table. Must be called exactly once.
func (r *Runtime) Open(configPath string) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case stateClosed:
		return driver.StatusShutdown
	case stateCreated:
	default:
		return driver.StatusInvalid
	}
	cfg, err := loadBusConfig(configPath)
	if err != nil {
		r.debugLog("device configuration rejected", "path", configPath, "error", err)
		if isNotExist(err) {
			return driver.StatusNoEntry
		}
		return driver.StatusInvalid
	}
	r.busName = cfg.Bus.Name
	r.devices = nil
	node := 0
	nextNode := func(configured int) int {
		node++
		if configured != 0 {
			node = configured
		}
		return node
	}
	for _, spec := range cfg.Pumps {
		p := newSimPump(spec)
		d := &simDevice{
			kind:   kindPump,
			name:   spec.Name,
			nodeID: nextNode(spec.NodeID),
			comm:   driver.CommStateConfigurable,
			props:  make(map[driver.PropertyID]float64),
			pump:   p,
		}
		p.dev = d
		r.devices = append(r.devices, d)
		if spec.Valve != nil {
			v := &simValve{positions: spec.Valve.Positions}
			vd := &simDevice{
				kind:   kindValve,
				name:   spec.Name + "_Valve",
				nodeID: -1,
				comm:   driver.CommStateConfigurable,
				props:  make(map[driver.PropertyID]float64),
				valve:  v,
			}
			v.dev = vd
			r.devices = append(r.devices, vd)
			p.valveHandle = driver.Handle(len(r.devices))
		}
	}
	for _, spec := range cfg.Valves {
		v := &simValve{positions: spec.Positions}
		d := &simDevice{
			kind:   kindValve,
			name:   spec.Name,
			nodeID: nextNode(spec.NodeID),
			comm:   driver.CommStateConfigurable,
			props:  make(map[driver.PropertyID]float64),
			valve:  v,
		}
		v.dev = d
		r.devices = append(r.devices, d)
	}
	r.state = stateOpened
	r.debugLog("runtime opened", "bus", r.busName, "devices", len(r.devices))
	return driver.StatusOK
}

// Start sets every device operational and powers the pump drives.
func (r *Runtime) Start() driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st := r.gate(); !st.Ok() {
		return st
	}
	for _, d := range r.devices {
		d.comm = driver.CommStateOperational
		if d.pump != nil && d.fault == 0 {
			d.pump.enabled = true
		}
	}
	r.state = stateStarted
	r.debugLog("runtime started", "devices", len(r.devices))
	return driver.StatusOK
}

// Stop halts communication: every device drops to the stopped state and
// running dosages freeze at their current level.
func (r *Runtime) Stop() driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st := r.gate(); !st.Ok() {
		return st
	}
	now := r.clock.Now()
	for _, d := range r.devices {
		if d.pump != nil {
			d.pump.advance(now)
			d.pump.halt()
		}
		d.comm = driver.CommStateStopped
	}
	r.state = stateStopped
	r.debugLog("runtime stopped")
	return driver.StatusOK
}

// Close releases the handle table. Every handle is invalid afterwards and
// the runtime cannot be reopened.
func (r *Runtime) Close() driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == stateClosed {
		return driver.StatusShutdown
	}
	r.devices = nil
	r.state = stateClosed
	r.debugLog("runtime closed")
	return driver.StatusOK
}

// Log appends one message to the runtime's in-memory log.
func (r *Runtime) Log(message string) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st := r.gate(); !st.Ok() {
		return st
	}
	r.logLines = append(r.logLines, message)
	return driver.StatusOK
}

// LogMessages returns a copy of all messages written via Log.
func (r *Runtime) LogMessages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.logLines))
	copy(out, r.logLines)
	return out
}

// BusName returns the segment name from the device configuration.
func (r *Runtime) BusName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busName
}

// DeviceName reports the configured name of the device behind h.
func (r *Runtime) DeviceName(h driver.Handle) (string, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, st := r.anyDevice(h)
	if !st.Ok() {
		return "", st
	}
	return d.name, driver.StatusOK
}

// LastDeviceError reads the device's latched fault code, zero if none.
func (r *Runtime) LastDeviceError(h driver.Handle) (driver.DeviceErrorCode, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, st := r.anyDevice(h)
	if !st.Ok() {
		return 0, st
	}
	return d.fault, driver.StatusOK
}

// DeviceErrorMessage translates a device fault code. An injected fault
// message takes precedence over the built-in table.
func (r *Runtime) DeviceErrorMessage(h driver.Handle, code driver.DeviceErrorCode) (string, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, st := r.anyDevice(h)
	if !st.Ok() {
		return "", st
	}
	if code == d.fault && d.faultMsg != "" {
		return d.faultMsg, driver.StatusOK
	}
	return faultText(code), driver.StatusOK
}

// SetCommState transitions the device's communication state.
func (r *Runtime) SetCommState(h driver.Handle, state driver.CommState) driver.Status {
	switch state {
	case driver.CommStateOperational, driver.CommStateStopped, driver.CommStateConfigurable:
	default:
		return driver.StatusInvalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, st := r.anyDevice(h)
	if !st.Ok() {
		return st
	}
	if d.pump != nil && state != driver.CommStateOperational {
		d.pump.advance(r.clock.Now())
		d.pump.halt()
	}
	d.comm = state
	return driver.StatusOK
}

// NodeID reports the device's bus node identifier, or -1 for sub-devices
// without an own node.
func (r *Runtime) NodeID(h driver.Handle) (int, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, st := r.anyDevice(h)
	if !st.Ok() {
		return 0, st
	}
	return d.nodeID, driver.StatusOK
}

// SetDeviceProperty writes a numeric device property. Properties are only
// writable while the device is in the configurable state.
func (r *Runtime) SetDeviceProperty(h driver.Handle, id driver.PropertyID, value float64) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, st := r.anyDevice(h)
	if !st.Ok() {
		return st
	}
	if d.comm != driver.CommStateConfigurable {
		return driver.StatusAccess
	}
	d.props[id] = value
	return driver.StatusOK
}

// DeviceProperty reads a numeric device property.
func (r *Runtime) DeviceProperty(h driver.Handle, id driver.PropertyID) (float64, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, st := r.anyDevice(h)
	if !st.Ok() {
		return 0, st
	}
	value, ok := d.props[id]
	if !ok {
		return 0, driver.StatusNoEntry
	}
	return value, driver.StatusOK
}

// SetFault latches a fault on the named device, as if the hardware had
// raised it: the drive disables and any running dosage stops. An empty
// message falls back to the built-in fault text.
func (r *Runtime) SetFault(name string, code driver.DeviceErrorCode, message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.devices {
		if d.name != name {
			continue
		}
		d.fault = code
		d.faultMsg = message
		if d.pump != nil {
			d.pump.advance(r.clock.Now())
			d.pump.halt()
			d.pump.enabled = false
		}
		r.debugLog("fault injected", "device", name, "code", code)
		return true
	}
	return false
}
