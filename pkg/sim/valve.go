package sim

import (
	"github.com/labbus-project/labbus-go/pkg/driver"
)

// simValve is the model for one switching valve. Switching completes
// instantaneously.
type simValve struct {
	dev       *simDevice
	positions int
	pos       int
}

// valveDev resolves a valve handle. Held mutex required.
func (r *Runtime) valveDev(h driver.Handle) (*simValve, driver.Status) {
	d, st := r.device(h, kindValve)
	if !st.Ok() {
		return nil, st
	}
	return d.valve, driver.StatusOK
}

// ValveCount reports the number of valves as the status payload. Valves
// built into pumps are counted too.
func (r *Runtime) ValveCount() driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st := r.gate(); !st.Ok() {
		return st
	}
	n := 0
	for _, d := range r.devices {
		if d.kind == kindValve {
			n++
		}
	}
	return driver.Status(n)
}

// ValveByName resolves a valve handle by device name. A pump's built-in
// valve is named after its pump with a "_Valve" suffix.
func (r *Runtime) ValveByName(name string) (driver.Handle, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(name, kindValve)
}

// ValveByIndex resolves a valve handle by discovery index.
func (r *Runtime) ValveByIndex(index int) (driver.Handle, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookupIndex(index, kindValve)
}

// ValvePositionCount reports the number of positions as the status
// payload.
func (r *Runtime) ValvePositionCount(h driver.Handle) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, st := r.valveDev(h)
	if !st.Ok() {
		return st
	}
	return driver.Status(v.positions)
}

// ActualValvePosition reports the current position as the status payload.
func (r *Runtime) ActualValvePosition(h driver.Handle) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, st := r.valveDev(h)
	if !st.Ok() {
		return st
	}
	return driver.Status(v.pos)
}

// SwitchValveToPosition moves the valve. The device must be operational
// and fault free; the position must be within the valve's range.
func (r *Runtime) SwitchValveToPosition(h driver.Handle, position int) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, st := r.valveDev(h)
	if !st.Ok() {
		return st
	}
	if v.dev.comm != driver.CommStateOperational {
		return driver.StatusTimedOut
	}
	if v.dev.fault != 0 {
		return driver.StatusIO
	}
	if position < 0 || position >= v.positions {
		return driver.StatusInvalid
	}
	v.pos = position
	return driver.StatusOK
}
