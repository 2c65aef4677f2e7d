// Package valve drives switching valves on a labbus segment.
//
// Valves select one of a fixed set of flow paths. They appear on the bus
// either as standalone devices or as sub-devices of a syringe pump; in the
// latter case the pump package hands out the Valve via Pump.Valve.
package valve

import (
	"errors"

	"github.com/labbus-project/labbus-go/pkg/bus"
	"github.com/labbus-project/labbus-go/pkg/driver"
)

// ErrNoValveProfile indicates a runtime without valve operations.
var ErrNoValveProfile = errors.New("runtime does not provide valve operations")

// Valve is a switching valve on the bus.
type Valve struct {
	*bus.Device

	api driver.ValveAPI
}

// New creates a valve bound to session with an unresolved handle. Use
// LookupByName or LookupByIndex to resolve it.
func New(s *bus.Session) (*Valve, error) {
	api, ok := s.Runtime().(driver.ValveAPI)
	if !ok {
		return nil, ErrNoValveProfile
	}
	return &Valve{Device: bus.NewDevice(s), api: api}, nil
}

// Adopt creates a valve for a handle that is already resolved, e.g. a
// pump's built-in valve.
func Adopt(s *bus.Session, h driver.Handle) (*Valve, error) {
	api, ok := s.Runtime().(driver.ValveAPI)
	if !ok {
		return nil, ErrNoValveProfile
	}
	return &Valve{Device: bus.AdoptHandle(s, h), api: api}, nil
}

// ByName returns a valve resolved by its device name.
func ByName(s *bus.Session, name string) (*Valve, error) {
	v, err := New(s)
	if err != nil {
		return nil, err
	}
	if err := v.LookupByName(name); err != nil {
		return nil, err
	}
	return v, nil
}

// ByIndex returns the valve at the given enumeration index.
func ByIndex(s *bus.Session, index int) (*Valve, error) {
	v, err := New(s)
	if err != nil {
		return nil, err
	}
	if err := v.LookupByIndex(index); err != nil {
		return nil, err
	}
	return v, nil
}

// Count returns the number of valves on the segment.
func Count(s *bus.Session) (int, error) {
	api, ok := s.Runtime().(driver.ValveAPI)
	if !ok {
		return 0, ErrNoValveProfile
	}
	if err := s.Guard("Valve.Count"); err != nil {
		return 0, err
	}
	st := api.ValveCount()
	if err := s.Check("Valve.Count", "", driver.None, st); err != nil {
		return 0, err
	}
	return st.Value(), nil
}

// LookupByName resolves the valve's handle by its device name. On failure
// the current handle is left unchanged.
func (v *Valve) LookupByName(name string) error {
	if err := v.Session().Guard("Valve.LookupByName"); err != nil {
		return err
	}
	h, st := v.api.ValveByName(name)
	if err := v.Session().CheckLookup("Valve.LookupByName", name, driver.None, st); err != nil {
		return err
	}
	v.SetHandle(h)
	return nil
}

// LookupByIndex resolves the valve's handle by its enumeration index. On
// failure the current handle is left unchanged.
func (v *Valve) LookupByIndex(index int) error {
	if err := v.Session().Guard("Valve.LookupByIndex"); err != nil {
		return err
	}
	h, st := v.api.ValveByIndex(index)
	if err := v.Session().CheckLookup("Valve.LookupByIndex", "", driver.None, st); err != nil {
		return err
	}
	v.SetHandle(h)
	return nil
}

// PositionCount returns the number of selectable positions.
func (v *Valve) PositionCount() (int, error) {
	if err := v.Session().Guard("Valve.PositionCount"); err != nil {
		return 0, err
	}
	st := v.api.ValvePositionCount(v.Handle())
	if err := v.Session().Check("Valve.PositionCount", "", v.Handle(), st); err != nil {
		return 0, err
	}
	return st.Value(), nil
}

// Position returns the currently selected position (zero-based).
func (v *Valve) Position() (int, error) {
	if err := v.Session().Guard("Valve.Position"); err != nil {
		return 0, err
	}
	st := v.api.ActualValvePosition(v.Handle())
	if err := v.Session().Check("Valve.Position", "", v.Handle(), st); err != nil {
		return 0, err
	}
	return st.Value(), nil
}

// SwitchTo moves the valve to the given position (zero-based).
func (v *Valve) SwitchTo(position int) error {
	if err := v.Session().Guard("Valve.SwitchTo"); err != nil {
		return err
	}
	st := v.api.SwitchValveToPosition(v.Handle(), position)
	return v.Session().Check("Valve.SwitchTo", "", v.Handle(), st)
}
