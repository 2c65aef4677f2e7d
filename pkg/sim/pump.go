package sim

import (
	"math"
	"time"

	"github.com/labbus-project/labbus-go/pkg/driver"
)

// maxPlungerSpeedMMs is the drive's plunger speed limit, used to derive a
// flow cap when the pump spec does not set one.
const maxPlungerSpeedMMs = 5.0

// posCounterFullStroke is the drive position counter value at a full
// syringe stroke.
const posCounterFullStroke = 1_000_000

// volumeEps absorbs float error when checking dosage volumes against the
// syringe limits.
const volumeEps = 1e-12

// simPump is the motion model for one syringe pump. Levels and volumes
// are kept in litres, flow rates in litres per second; the configured
// units only apply at the API boundary.
type simPump struct {
	dev *simDevice

	syringeDiameterMM float64
	syringeStrokeMM   float64
	maxVolume         float64 // L
	maxFlow           float64 // L/s
	flowCapConfigured bool

	volPrefix  driver.Prefix
	flowPrefix driver.Prefix
	flowTime   driver.TimeUnit

	enabled bool
	level   float64 // L

	motion    *motion
	lastDosed float64 // L
	targetVol float64 // configured-unit sign convention, stored in L

	valveHandle driver.Handle
}

// motion is one running plunger move, linear from startLevel to endLevel
// over [start, end].
type motion struct {
	calibration bool
	start       time.Time
	end         time.Time
	startLevel  float64
	endLevel    float64
}

func newSimPump(spec PumpSpec) *simPump {
	p := &simPump{
		syringeDiameterMM: spec.Syringe.InnerDiameterMM,
		syringeStrokeMM:   spec.Syringe.MaxStrokeMM,
		volPrefix:         driver.PrefixMilli,
		flowPrefix:        driver.PrefixMilli,
		flowTime:          driver.PerSecond,
	}
	if spec.MaxFlowMLs > 0 {
		p.maxFlow = spec.MaxFlowMLs * 1e-3
		p.flowCapConfigured = true
	}
	p.recompute()
	return p
}

// recompute derives the volume and flow limits from the syringe
// dimensions. 1 mm3 is 1 microlitre.
func (p *simPump) recompute() {
	area := math.Pi * math.Pow(p.syringeDiameterMM/2, 2)
	p.maxVolume = area * p.syringeStrokeMM * 1e-6
	if !p.flowCapConfigured {
		p.maxFlow = area * maxPlungerSpeedMMs * 1e-6
	}
	if p.level > p.maxVolume {
		p.level = p.maxVolume
	}
}

func prefixFactor(prefix driver.Prefix) float64 {
	return math.Pow(10, float64(prefix))
}

// toVolumeUnit converts litres into the configured volume unit.
func (p *simPump) toVolumeUnit(litres float64) float64 {
	return litres / prefixFactor(p.volPrefix)
}

func (p *simPump) fromVolumeUnit(value float64) float64 {
	return value * prefixFactor(p.volPrefix)
}

// toFlowUnit converts litres per second into the configured flow unit.
func (p *simPump) toFlowUnit(litresPerSecond float64) float64 {
	return litresPerSecond / prefixFactor(p.flowPrefix) * float64(p.flowTime)
}

func (p *simPump) fromFlowUnit(value float64) float64 {
	return value * prefixFactor(p.flowPrefix) / float64(p.flowTime)
}

// advance moves the model to the given instant: interpolate the running
// motion, or finalize it if its end has passed.
func (p *simPump) advance(now time.Time) {
	m := p.motion
	if m == nil {
		return
	}
	if !now.Before(m.end) {
		p.level = m.endLevel
		if !m.calibration {
			p.lastDosed = math.Abs(m.endLevel - m.startLevel)
		}
		p.motion = nil
		return
	}
	total := m.end.Sub(m.start).Seconds()
	frac := now.Sub(m.start).Seconds() / total
	p.level = m.startLevel + (m.endLevel-m.startLevel)*frac
}

// halt freezes the running motion at the current level. advance must have
// been called for the same instant first.
func (p *simPump) halt() {
	m := p.motion
	if m == nil {
		return
	}
	if !m.calibration {
		p.lastDosed = math.Abs(p.level - m.startLevel)
	}
	p.motion = nil
}

// startMove begins a linear move by deltaLevel litres at flow litres per
// second. Flow must be positive; a zero delta completes immediately.
func (p *simPump) startMove(now time.Time, deltaLevel, flow float64) {
	total := time.Duration(math.Abs(deltaLevel) / flow * float64(time.Second))
	p.motion = &motion{
		start:      now,
		end:        now.Add(total),
		startLevel: p.level,
		endLevel:   p.level + deltaLevel,
	}
	p.advance(now)
}

// dosing reports whether a dosage move is active at the given instant.
func (p *simPump) dosing(now time.Time) bool {
	p.advance(now)
	return p.motion != nil && !p.motion.calibration
}

// calibrating reports whether a reference move is active.
func (p *simPump) calibrating(now time.Time) bool {
	p.advance(now)
	return p.motion != nil && p.motion.calibration
}

// pump resolves a pump handle for a read operation. Held mutex required.
func (r *Runtime) pump(h driver.Handle) (*simPump, driver.Status) {
	d, st := r.device(h, kindPump)
	if !st.Ok() {
		return nil, st
	}
	return d.pump, driver.StatusOK
}

// pumpForCommand resolves a pump handle for a motion command: the device
// must be operational, fault-free and its drive enabled.
func (r *Runtime) pumpForCommand(h driver.Handle) (*simPump, driver.Status) {
	d, st := r.device(h, kindPump)
	if !st.Ok() {
		return nil, st
	}
	if d.comm != driver.CommStateOperational {
		return nil, driver.StatusTimedOut
	}
	if d.fault != 0 {
		return nil, driver.StatusIO
	}
	if !d.pump.enabled {
		return nil, driver.StatusAccess
	}
	return d.pump, driver.StatusOK
}

// PumpCount reports the number of pumps as the status payload.
func (r *Runtime) PumpCount() driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st := r.gate(); !st.Ok() {
		return st
	}
	n := 0
	for _, d := range r.devices {
		if d.kind == kindPump {
			n++
		}
	}
	return driver.Status(n)
}

// PumpByName resolves a pump handle by device name.
func (r *Runtime) PumpByName(name string) (driver.Handle, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(name, kindPump)
}

// PumpByIndex resolves a pump handle by discovery index.
func (r *Runtime) PumpByIndex(index int) (driver.Handle, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookupIndex(index, kindPump)
}

// lookup finds a device by name. Held mutex required.
func (r *Runtime) lookup(name string, kind deviceKind) (driver.Handle, driver.Status) {
	if st := r.gate(); !st.Ok() {
		return driver.None, st
	}
	for i, d := range r.devices {
		if d.kind == kind && d.name == name {
			return driver.Handle(i + 1), driver.StatusOK
		}
	}
	return driver.None, driver.StatusNoEntry
}

// lookupIndex finds the nth device of a kind. Held mutex required.
func (r *Runtime) lookupIndex(index int, kind deviceKind) (driver.Handle, driver.Status) {
	if st := r.gate(); !st.Ok() {
		return driver.None, st
	}
	if index < 0 {
		return driver.None, driver.StatusInvalid
	}
	n := 0
	for i, d := range r.devices {
		if d.kind != kind {
			continue
		}
		if n == index {
			return driver.Handle(i + 1), driver.StatusOK
		}
		n++
	}
	return driver.None, driver.StatusInvalid
}

func (r *Runtime) SetVolumeUnit(h driver.Handle, prefix driver.Prefix, unit driver.VolumeUnit) driver.Status {
	if !validPrefix(prefix) || unit != driver.Litres {
		return driver.StatusInvalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return st
	}
	p.volPrefix = prefix
	return driver.StatusOK
}

func (r *Runtime) VolumeUnit(h driver.Handle) (driver.Prefix, driver.VolumeUnit, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return 0, 0, st
	}
	return p.volPrefix, driver.Litres, driver.StatusOK
}

func (r *Runtime) SetFlowUnit(h driver.Handle, prefix driver.Prefix, unit driver.VolumeUnit, timeBase driver.TimeUnit) driver.Status {
	if !validPrefix(prefix) || unit != driver.Litres || !validTimeBase(timeBase) {
		return driver.StatusInvalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return st
	}
	p.flowPrefix = prefix
	p.flowTime = timeBase
	return driver.StatusOK
}

func (r *Runtime) FlowUnit(h driver.Handle) (driver.Prefix, driver.VolumeUnit, driver.TimeUnit, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return 0, 0, 0, st
	}
	return p.flowPrefix, driver.Litres, p.flowTime, driver.StatusOK
}

func validPrefix(prefix driver.Prefix) bool {
	switch prefix {
	case driver.PrefixUnit, driver.PrefixDeci, driver.PrefixCenti, driver.PrefixMilli, driver.PrefixMicro:
		return true
	default:
		return false
	}
}

func validTimeBase(timeBase driver.TimeUnit) bool {
	switch timeBase {
	case driver.PerSecond, driver.PerMinute, driver.PerHour:
		return true
	default:
		return false
	}
}

func (r *Runtime) MaxFlowRate(h driver.Handle) (float64, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return 0, st
	}
	return p.toFlowUnit(p.maxFlow), driver.StatusOK
}

func (r *Runtime) SyringeParams(h driver.Handle) (innerDiameterMM, maxStrokeMM float64, st driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return 0, 0, st
	}
	return p.syringeDiameterMM, p.syringeStrokeMM, driver.StatusOK
}

// SetSyringeParams reconfigures the mounted syringe. Rejected while the
// plunger is moving.
func (r *Runtime) SetSyringeParams(h driver.Handle, innerDiameterMM, maxStrokeMM float64) driver.Status {
	if innerDiameterMM <= 0 || maxStrokeMM <= 0 {
		return driver.StatusInvalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return st
	}
	p.advance(r.clock.Now())
	if p.motion != nil {
		return driver.StatusBusy
	}
	p.syringeDiameterMM = innerDiameterMM
	p.syringeStrokeMM = maxStrokeMM
	p.recompute()
	return driver.StatusOK
}

func (r *Runtime) MaxVolume(h driver.Handle) (float64, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return 0, st
	}
	return p.toVolumeUnit(p.maxVolume), driver.StatusOK
}

// CalibratePump starts a reference move that empties the syringe over the
// configured calibration duration.
func (r *Runtime) CalibratePump(h driver.Handle) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pumpForCommand(h)
	if !st.Ok() {
		return st
	}
	now := r.clock.Now()
	p.advance(now)
	if p.motion != nil {
		return driver.StatusBusy
	}
	p.motion = &motion{
		calibration: true,
		start:       now,
		end:         now.Add(r.calibDur),
		startLevel:  p.level,
		endLevel:    0,
	}
	return driver.StatusOK
}

func (r *Runtime) SetFillLevel(h driver.Handle, level, flow float64) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pumpForCommand(h)
	if !st.Ok() {
		return st
	}
	levelL := p.fromVolumeUnit(level)
	flowL := p.fromFlowUnit(flow)
	if levelL < 0 || levelL > p.maxVolume+volumeEps {
		return driver.StatusInvalid
	}
	if flowL <= 0 || flowL > p.maxFlow+volumeEps {
		return driver.StatusInvalid
	}
	now := r.clock.Now()
	p.advance(now)
	if p.calibrating(now) {
		return driver.StatusBusy
	}
	p.halt()
	delta := levelL - p.level
	p.targetVol = math.Abs(delta)
	p.startMove(now, delta, flowL)
	return driver.StatusOK
}

// PumpVolume doses volume at the given flow; positive dispenses, negative
// aspirates.
func (r *Runtime) PumpVolume(h driver.Handle, volume, flow float64) driver.Status {
	return r.dose(h, volume, flow, "PumpVolume")
}

func (r *Runtime) Dispense(h driver.Handle, volume, flow float64) driver.Status {
	if volume < 0 {
		return driver.StatusInvalid
	}
	return r.dose(h, volume, flow, "Dispense")
}

func (r *Runtime) Aspirate(h driver.Handle, volume, flow float64) driver.Status {
	if volume < 0 {
		return driver.StatusInvalid
	}
	return r.dose(h, -volume, flow, "Aspirate")
}

// dose runs a volume-targeted dosage; volume is dispense-positive in the
// pump's configured unit.
func (r *Runtime) dose(h driver.Handle, volume, flow float64, op string) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pumpForCommand(h)
	if !st.Ok() {
		return st
	}
	volumeL := p.fromVolumeUnit(volume)
	flowL := p.fromFlowUnit(flow)
	if flowL <= 0 || flowL > p.maxFlow+volumeEps {
		return driver.StatusInvalid
	}
	now := r.clock.Now()
	p.advance(now)
	if p.calibrating(now) {
		return driver.StatusBusy
	}
	// A dispense cannot exceed the current level, an aspiration cannot
	// exceed the remaining headroom.
	if volumeL > p.level+volumeEps {
		return driver.StatusInvalid
	}
	if -volumeL > p.maxVolume-p.level+volumeEps {
		return driver.StatusInvalid
	}
	p.halt()
	p.targetVol = math.Abs(volumeL)
	r.debugLog("dosage started", "op", op, "device", p.dev.name, "volume", volume, "flow", flow)
	p.startMove(now, -volumeL, flowL)
	return driver.StatusOK
}

// GenerateFlow starts a continuous flow until the syringe limit; positive
// dispenses, negative aspirates.
func (r *Runtime) GenerateFlow(h driver.Handle, flow float64) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pumpForCommand(h)
	if !st.Ok() {
		return st
	}
	flowL := p.fromFlowUnit(flow)
	if flowL == 0 || math.Abs(flowL) > p.maxFlow+volumeEps {
		return driver.StatusInvalid
	}
	now := r.clock.Now()
	p.advance(now)
	if p.calibrating(now) {
		return driver.StatusBusy
	}
	p.halt()
	var delta float64
	if flowL > 0 {
		delta = -p.level
	} else {
		delta = p.maxVolume - p.level
	}
	p.targetVol = math.Abs(delta)
	p.startMove(now, delta, math.Abs(flowL))
	return driver.StatusOK
}

// StopPumping stops the running dosage or reference move.
func (r *Runtime) StopPumping(h driver.Handle) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return st
	}
	now := r.clock.Now()
	p.advance(now)
	p.halt()
	return driver.StatusOK
}

// StopAllPumps stops dosage on every pump. Always succeeds on an open
// runtime.
func (r *Runtime) StopAllPumps() driver.Status {
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
	}
	return driver.StatusOK
}

// FlowIs reports the flow the pump is generating right now,
// dispense-positive, in the configured flow unit.
func (r *Runtime) FlowIs(h driver.Handle) (float64, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return 0, st
	}
	p.advance(r.clock.Now())
	m := p.motion
	if m == nil {
		return 0, driver.StatusOK
	}
	total := m.end.Sub(m.start).Seconds()
	rate := -(m.endLevel - m.startLevel) / total
	return p.toFlowUnit(rate), driver.StatusOK
}

func (r *Runtime) TargetVolume(h driver.Handle) (float64, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return 0, st
	}
	return p.toVolumeUnit(p.targetVol), driver.StatusOK
}

// DosedVolume reports the volume moved by the running dosage, or by the
// last one after it finished.
func (r *Runtime) DosedVolume(h driver.Handle) (float64, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return 0, st
	}
	now := r.clock.Now()
	if p.dosing(now) {
		return p.toVolumeUnit(math.Abs(p.level - p.motion.startLevel)), driver.StatusOK
	}
	return p.toVolumeUnit(p.lastDosed), driver.StatusOK
}

func (r *Runtime) FillLevel(h driver.Handle) (float64, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return 0, st
	}
	p.advance(r.clock.Now())
	return p.toVolumeUnit(p.level), driver.StatusOK
}

// boolStatus encodes a boolean as a status payload.
func boolStatus(b bool) driver.Status {
	if b {
		return 1
	}
	return 0
}

// IsPumping reports a positive payload while the plunger is moving.
func (r *Runtime) IsPumping(h driver.Handle) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return st
	}
	p.advance(r.clock.Now())
	return boolStatus(p.motion != nil)
}

// IsCalibrationFinished reports a positive payload unless a reference
// move is running.
func (r *Runtime) IsCalibrationFinished(h driver.Handle) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return st
	}
	return boolStatus(!p.calibrating(r.clock.Now()))
}

func (r *Runtime) IsEnabled(h driver.Handle) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return st
	}
	return boolStatus(p.enabled)
}

func (r *Runtime) IsInFaultState(h driver.Handle) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return st
	}
	return boolStatus(p.dev.fault != 0)
}

// ClearPumpFault releases the latched fault. The drive stays disabled.
func (r *Runtime) ClearPumpFault(h driver.Handle) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return st
	}
	p.dev.fault = 0
	p.dev.faultMsg = ""
	return driver.StatusOK
}

// EnablePumpDrive powers the drive. Rejected while a fault is latched.
func (r *Runtime) EnablePumpDrive(h driver.Handle) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return st
	}
	if p.dev.fault != 0 {
		return driver.StatusIO
	}
	p.enabled = true
	return driver.StatusOK
}

// DisablePumpDrive removes drive power; a running motion freezes.
func (r *Runtime) DisablePumpDrive(h driver.Handle) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return st
	}
	now := r.clock.Now()
	p.advance(now)
	p.halt()
	p.enabled = false
	return driver.StatusOK
}

// DrivePositionCounter derives the counter from the fill level; a full
// stroke spans posCounterFullStroke counts.
func (r *Runtime) DrivePositionCounter(h driver.Handle) (int32, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return 0, st
	}
	p.advance(r.clock.Now())
	return int32(math.Round(p.level / p.maxVolume * posCounterFullStroke)), driver.StatusOK
}

// RestoreDrivePositionCounter seeds the fill level from a counter value
// saved in an earlier session, so startup can skip the reference move.
func (r *Runtime) RestoreDrivePositionCounter(h driver.Handle, value int32) driver.Status {
	if value < 0 || value > posCounterFullStroke {
		return driver.StatusInvalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return st
	}
	p.advance(r.clock.Now())
	if p.motion != nil {
		return driver.StatusBusy
	}
	p.level = float64(value) / posCounterFullStroke * p.maxVolume
	return driver.StatusOK
}

// HasValve reports a positive payload if the pump carries a valve.
func (r *Runtime) HasValve(h driver.Handle) driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return st
	}
	return boolStatus(p.valveHandle != driver.None)
}

// PumpValve resolves the handle of the pump's attached valve.
func (r *Runtime) PumpValve(h driver.Handle) (driver.Handle, driver.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, st := r.pump(h)
	if !st.Ok() {
		return driver.None, st
	}
	if p.valveHandle == driver.None {
		return driver.None, driver.StatusNoEntry
	}
	return p.valveHandle, driver.StatusOK
}
