package pump

import (
	"errors"
	"sync"

	"github.com/labbus-project/labbus-go/pkg/bus"
	"github.com/labbus-project/labbus-go/pkg/driver"
	"github.com/labbus-project/labbus-go/pkg/valve"
)

// ErrNoPumpProfile indicates a runtime without pump operations.
var ErrNoPumpProfile = errors.New("runtime does not provide pump operations")

// ErrNoValve indicates a pump without an attached switching valve.
var ErrNoValve = errors.New("pump has no valve")

// VolumeUnit is a prefixed volume unit, e.g. millilitres.
type VolumeUnit struct {
	Prefix driver.Prefix
	Unit   driver.VolumeUnit
}

// FlowUnit is a prefixed volume unit per time base, e.g. millilitres per
// second.
type FlowUnit struct {
	Prefix   driver.Prefix
	Unit     driver.VolumeUnit
	TimeBase driver.TimeUnit
}

// Syringe describes the mechanical dimensions of a mounted syringe. The
// runtime derives the maximum volume and flow rate from them.
type Syringe struct {
	InnerDiameterMM float64
	MaxStrokeMM     float64
}

// Pump is a syringe pump on the bus. All dosage operations are
// asynchronous: they return once the runtime has accepted the command, and
// completion is observed by polling IsPumping.
type Pump struct {
	*bus.Device

	api driver.PumpAPI

	mu    sync.Mutex
	valve *valve.Valve
}

// New creates a pump bound to session with an unresolved handle. Use
// LookupByName or LookupByIndex to resolve it.
func New(s *bus.Session) (*Pump, error) {
	api, ok := s.Runtime().(driver.PumpAPI)
	if !ok {
		return nil, ErrNoPumpProfile
	}
	return &Pump{Device: bus.NewDevice(s), api: api}, nil
}

// ByName returns a pump resolved by its device name.
func ByName(s *bus.Session, name string) (*Pump, error) {
	p, err := New(s)
	if err != nil {
		return nil, err
	}
	if err := p.LookupByName(name); err != nil {
		return nil, err
	}
	return p, nil
}

// ByIndex returns the pump at the given enumeration index.
func ByIndex(s *bus.Session, index int) (*Pump, error) {
	p, err := New(s)
	if err != nil {
		return nil, err
	}
	if err := p.LookupByIndex(index); err != nil {
		return nil, err
	}
	return p, nil
}

// Count returns the number of pumps on the segment.
func Count(s *bus.Session) (int, error) {
	api, ok := s.Runtime().(driver.PumpAPI)
	if !ok {
		return 0, ErrNoPumpProfile
	}
	if err := s.Guard("Pump.Count"); err != nil {
		return 0, err
	}
	st := api.PumpCount()
	if err := s.Check("Pump.Count", "", driver.None, st); err != nil {
		return 0, err
	}
	return st.Value(), nil
}

// StopAll stops dosage on every pump of the segment.
func StopAll(s *bus.Session) error {
	api, ok := s.Runtime().(driver.PumpAPI)
	if !ok {
		return ErrNoPumpProfile
	}
	if err := s.Guard("Pump.StopAll"); err != nil {
		return err
	}
	return s.Check("Pump.StopAll", "", driver.None, api.StopAllPumps())
}

// LookupByName resolves the pump's handle by its device name. On failure
// the current handle is left unchanged.
func (p *Pump) LookupByName(name string) error {
	if err := p.Session().Guard("Pump.LookupByName"); err != nil {
		return err
	}
	h, st := p.api.PumpByName(name)
	if err := p.Session().CheckLookup("Pump.LookupByName", name, driver.None, st); err != nil {
		return err
	}
	p.SetHandle(h)
	return nil
}

// LookupByIndex resolves the pump's handle by its enumeration index. On
// failure the current handle is left unchanged.
func (p *Pump) LookupByIndex(index int) error {
	if err := p.Session().Guard("Pump.LookupByIndex"); err != nil {
		return err
	}
	h, st := p.api.PumpByIndex(index)
	if err := p.Session().CheckLookup("Pump.LookupByIndex", "", driver.None, st); err != nil {
		return err
	}
	p.SetHandle(h)
	return nil
}

// SetVolumeUnit selects the unit for all volume parameters and readings.
func (p *Pump) SetVolumeUnit(u VolumeUnit) error {
	if err := p.Session().Guard("Pump.SetVolumeUnit"); err != nil {
		return err
	}
	st := p.api.SetVolumeUnit(p.Handle(), u.Prefix, u.Unit)
	return p.Session().Check("Pump.SetVolumeUnit", "", p.Handle(), st)
}

// VolumeUnit returns the currently configured volume unit.
func (p *Pump) VolumeUnit() (VolumeUnit, error) {
	if err := p.Session().Guard("Pump.VolumeUnit"); err != nil {
		return VolumeUnit{}, err
	}
	prefix, unit, st := p.api.VolumeUnit(p.Handle())
	if err := p.Session().Check("Pump.VolumeUnit", "", p.Handle(), st); err != nil {
		return VolumeUnit{}, err
	}
	return VolumeUnit{Prefix: prefix, Unit: unit}, nil
}

// SetFlowUnit selects the unit for all flow parameters and readings.
func (p *Pump) SetFlowUnit(u FlowUnit) error {
	if err := p.Session().Guard("Pump.SetFlowUnit"); err != nil {
		return err
	}
	st := p.api.SetFlowUnit(p.Handle(), u.Prefix, u.Unit, u.TimeBase)
	return p.Session().Check("Pump.SetFlowUnit", "", p.Handle(), st)
}

// FlowUnit returns the currently configured flow unit.
func (p *Pump) FlowUnit() (FlowUnit, error) {
	if err := p.Session().Guard("Pump.FlowUnit"); err != nil {
		return FlowUnit{}, err
	}
	prefix, unit, timeBase, st := p.api.FlowUnit(p.Handle())
	if err := p.Session().Check("Pump.FlowUnit", "", p.Handle(), st); err != nil {
		return FlowUnit{}, err
	}
	return FlowUnit{Prefix: prefix, Unit: unit, TimeBase: timeBase}, nil
}

// MaxFlowRate returns the highest flow rate realizable with the current
// syringe, in the configured flow unit.
func (p *Pump) MaxFlowRate() (float64, error) {
	if err := p.Session().Guard("Pump.MaxFlowRate"); err != nil {
		return 0, err
	}
	rate, st := p.api.MaxFlowRate(p.Handle())
	if err := p.Session().Check("Pump.MaxFlowRate", "", p.Handle(), st); err != nil {
		return 0, err
	}
	return rate, nil
}

// Syringe returns the configured syringe dimensions.
func (p *Pump) Syringe() (Syringe, error) {
	if err := p.Session().Guard("Pump.Syringe"); err != nil {
		return Syringe{}, err
	}
	diameter, stroke, st := p.api.SyringeParams(p.Handle())
	if err := p.Session().Check("Pump.Syringe", "", p.Handle(), st); err != nil {
		return Syringe{}, err
	}
	return Syringe{InnerDiameterMM: diameter, MaxStrokeMM: stroke}, nil
}

// SetSyringe configures the mounted syringe. Volume and flow limits are
// recomputed from the new dimensions.
func (p *Pump) SetSyringe(sy Syringe) error {
	if err := p.Session().Guard("Pump.SetSyringe"); err != nil {
		return err
	}
	st := p.api.SetSyringeParams(p.Handle(), sy.InnerDiameterMM, sy.MaxStrokeMM)
	return p.Session().Check("Pump.SetSyringe", "", p.Handle(), st)
}

// MaxVolume returns the syringe capacity in the configured volume unit.
func (p *Pump) MaxVolume() (float64, error) {
	if err := p.Session().Guard("Pump.MaxVolume"); err != nil {
		return 0, err
	}
	volume, st := p.api.MaxVolume(p.Handle())
	if err := p.Session().Check("Pump.MaxVolume", "", p.Handle(), st); err != nil {
		return 0, err
	}
	return volume, nil
}

// Calibrate starts a reference move to the physical zero position. The
// move empties the syringe; completion is observed via
// IsCalibrationFinished.
func (p *Pump) Calibrate() error {
	if err := p.Session().Guard("Pump.Calibrate"); err != nil {
		return err
	}
	return p.Session().Check("Pump.Calibrate", "", p.Handle(), p.api.CalibratePump(p.Handle()))
}

// IsCalibrationFinished reports whether no reference move is running. Its
// signature matches the polling predicate contract, so a caller can wait
// with a Timer:
//
//	timer := polling.NewTimer(30 * time.Second)
//	done, err := timer.WaitUntil(p.IsCalibrationFinished, true)
func (p *Pump) IsCalibrationFinished() (bool, error) {
	if err := p.Session().Guard("Pump.IsCalibrationFinished"); err != nil {
		return false, err
	}
	st := p.api.IsCalibrationFinished(p.Handle())
	if err := p.Session().Check("Pump.IsCalibrationFinished", "", p.Handle(), st); err != nil {
		return false, err
	}
	return st.Value() > 0, nil
}

// SetFillLevel doses until the syringe reaches the given fill level at the
// given flow rate. A level below the current one dispenses, above it
// aspirates; level 0 empties the syringe.
func (p *Pump) SetFillLevel(level, flow float64) error {
	if err := p.Session().Guard("Pump.SetFillLevel"); err != nil {
		return err
	}
	return p.Session().Check("Pump.SetFillLevel", "", p.Handle(), p.api.SetFillLevel(p.Handle(), level, flow))
}

// PumpVolume doses the given volume at the given flow rate. A positive
// volume dispenses, a negative one aspirates.
func (p *Pump) PumpVolume(volume, flow float64) error {
	if err := p.Session().Guard("Pump.PumpVolume"); err != nil {
		return err
	}
	return p.Session().Check("Pump.PumpVolume", "", p.Handle(), p.api.PumpVolume(p.Handle(), volume, flow))
}

// Dispense pushes the given volume out of the syringe at the given flow
// rate.
func (p *Pump) Dispense(volume, flow float64) error {
	if err := p.Session().Guard("Pump.Dispense"); err != nil {
		return err
	}
	return p.Session().Check("Pump.Dispense", "", p.Handle(), p.api.Dispense(p.Handle(), volume, flow))
}

// Aspirate draws the given volume into the syringe at the given flow rate.
func (p *Pump) Aspirate(volume, flow float64) error {
	if err := p.Session().Guard("Pump.Aspirate"); err != nil {
		return err
	}
	return p.Session().Check("Pump.Aspirate", "", p.Handle(), p.api.Aspirate(p.Handle(), volume, flow))
}

// GenerateFlow starts a continuous flow at the given rate until the
// syringe limit is reached or the pump is stopped. A negative rate
// aspirates, a positive one dispenses.
func (p *Pump) GenerateFlow(flow float64) error {
	if err := p.Session().Guard("Pump.GenerateFlow"); err != nil {
		return err
	}
	return p.Session().Check("Pump.GenerateFlow", "", p.Handle(), p.api.GenerateFlow(p.Handle(), flow))
}

// StopPumping stops the running dosage, if any.
func (p *Pump) StopPumping() error {
	if err := p.Session().Guard("Pump.StopPumping"); err != nil {
		return err
	}
	return p.Session().Check("Pump.StopPumping", "", p.Handle(), p.api.StopPumping(p.Handle()))
}

// Flow returns the flow rate the pump is currently generating. Zero means
// the pump is standing still.
func (p *Pump) Flow() (float64, error) {
	if err := p.Session().Guard("Pump.Flow"); err != nil {
		return 0, err
	}
	flow, st := p.api.FlowIs(p.Handle())
	if err := p.Session().Check("Pump.Flow", "", p.Handle(), st); err != nil {
		return 0, err
	}
	return flow, nil
}

// TargetVolume returns the volume requested by the running or last dosage.
func (p *Pump) TargetVolume() (float64, error) {
	if err := p.Session().Guard("Pump.TargetVolume"); err != nil {
		return 0, err
	}
	volume, st := p.api.TargetVolume(p.Handle())
	if err := p.Session().Check("Pump.TargetVolume", "", p.Handle(), st); err != nil {
		return 0, err
	}
	return volume, nil
}

// DosedVolume returns the volume moved by the running or last dosage.
func (p *Pump) DosedVolume() (float64, error) {
	if err := p.Session().Guard("Pump.DosedVolume"); err != nil {
		return 0, err
	}
	volume, st := p.api.DosedVolume(p.Handle())
	if err := p.Session().Check("Pump.DosedVolume", "", p.Handle(), st); err != nil {
		return 0, err
	}
	return volume, nil
}

// FillLevel returns the current syringe fill level in the configured
// volume unit.
func (p *Pump) FillLevel() (float64, error) {
	if err := p.Session().Guard("Pump.FillLevel"); err != nil {
		return 0, err
	}
	level, st := p.api.FillLevel(p.Handle())
	if err := p.Session().Check("Pump.FillLevel", "", p.Handle(), st); err != nil {
		return 0, err
	}
	return level, nil
}

// IsPumping reports whether a dosage is running. Its signature matches the
// polling predicate contract, so a caller can wait for completion:
//
//	timer := polling.NewTimer(30 * time.Second)
//	stopped, err := timer.WaitUntil(p.IsPumping, false)
func (p *Pump) IsPumping() (bool, error) {
	if err := p.Session().Guard("Pump.IsPumping"); err != nil {
		return false, err
	}
	st := p.api.IsPumping(p.Handle())
	if err := p.Session().Check("Pump.IsPumping", "", p.Handle(), st); err != nil {
		return false, err
	}
	return st.Value() > 0, nil
}

// IsEnabled reports whether the pump drive is powered.
func (p *Pump) IsEnabled() (bool, error) {
	if err := p.Session().Guard("Pump.IsEnabled"); err != nil {
		return false, err
	}
	st := p.api.IsEnabled(p.Handle())
	if err := p.Session().Check("Pump.IsEnabled", "", p.Handle(), st); err != nil {
		return false, err
	}
	return st.Value() > 0, nil
}

// IsInFaultState reports whether the pump drive is latched in a fault.
// Use LastFault for the fault details and ClearFault to recover.
func (p *Pump) IsInFaultState() (bool, error) {
	if err := p.Session().Guard("Pump.IsInFaultState"); err != nil {
		return false, err
	}
	st := p.api.IsInFaultState(p.Handle())
	if err := p.Session().Check("Pump.IsInFaultState", "", p.Handle(), st); err != nil {
		return false, err
	}
	return st.Value() > 0, nil
}

// ClearFault releases a latched drive fault. The drive stays disabled
// until Enable is called.
func (p *Pump) ClearFault() error {
	if err := p.Session().Guard("Pump.ClearFault"); err != nil {
		return err
	}
	return p.Session().Check("Pump.ClearFault", "", p.Handle(), p.api.ClearPumpFault(p.Handle()))
}

// Enable powers the pump drive.
func (p *Pump) Enable() error {
	if err := p.Session().Guard("Pump.Enable"); err != nil {
		return err
	}
	return p.Session().Check("Pump.Enable", "", p.Handle(), p.api.EnablePumpDrive(p.Handle()))
}

// Disable removes power from the pump drive.
func (p *Pump) Disable() error {
	if err := p.Session().Guard("Pump.Disable"); err != nil {
		return err
	}
	return p.Session().Check("Pump.Disable", "", p.Handle(), p.api.DisablePumpDrive(p.Handle()))
}

// PositionCounter returns the drive's absolute position counter. The
// counter survives power cycles when restored via RestorePositionCounter,
// which skips the calibration move on startup.
func (p *Pump) PositionCounter() (int32, error) {
	if err := p.Session().Guard("Pump.PositionCounter"); err != nil {
		return 0, err
	}
	value, st := p.api.DrivePositionCounter(p.Handle())
	if err := p.Session().Check("Pump.PositionCounter", "", p.Handle(), st); err != nil {
		return 0, err
	}
	return value, nil
}

// RestorePositionCounter restores a position counter value saved from a
// previous session.
func (p *Pump) RestorePositionCounter(value int32) error {
	if err := p.Session().Guard("Pump.RestorePositionCounter"); err != nil {
		return err
	}
	st := p.api.RestoreDrivePositionCounter(p.Handle(), value)
	return p.Session().Check("Pump.RestorePositionCounter", "", p.Handle(), st)
}

// HasValve reports whether the pump carries a switching valve.
func (p *Pump) HasValve() (bool, error) {
	if err := p.Session().Guard("Pump.HasValve"); err != nil {
		return false, err
	}
	st := p.api.HasValve(p.Handle())
	if err := p.Session().Check("Pump.HasValve", "", p.Handle(), st); err != nil {
		return false, err
	}
	return st.Value() > 0, nil
}

// Valve returns the pump's switching valve. The valve is resolved on the
// first call and cached; ErrNoValve is returned for pumps without one.
func (p *Pump) Valve() (*valve.Valve, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.valve != nil {
		return p.valve, nil
	}
	has, err := p.HasValve()
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, ErrNoValve
	}
	if err := p.Session().Guard("Pump.Valve"); err != nil {
		return nil, err
	}
	h, st := p.api.PumpValve(p.Handle())
	if err := p.Session().Check("Pump.Valve", "", p.Handle(), st); err != nil {
		return nil, err
	}
	v, err := valve.Adopt(p.Session(), h)
	if err != nil {
		return nil, err
	}
	p.valve = v
	return v, nil
}
