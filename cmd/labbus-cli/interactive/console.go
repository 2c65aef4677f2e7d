// Package interactive provides the interactive command-line interface
// for the labbus console.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/labbus-project/labbus-go/pkg/bus"
	"github.com/labbus-project/labbus-go/pkg/driver"
	"github.com/labbus-project/labbus-go/pkg/polling"
	"github.com/labbus-project/labbus-go/pkg/pump"
	"github.com/labbus-project/labbus-go/pkg/sim"
	"github.com/labbus-project/labbus-go/pkg/trace"
	"github.com/labbus-project/labbus-go/pkg/valve"
)

// defaultWaitTimeout bounds the wait command when no timeout is given.
const defaultWaitTimeout = 30 * time.Second

// Config provides the settings the console needs from the main command.
type Config struct {
	// ConfigPath is the device configuration passed to Bus.Open.
	ConfigPath string

	// Debug enables runtime debug logging on the console output.
	Debug bool

	// Trace receives the bus activity of every session opened from this
	// console. If nil, tracing is disabled.
	Trace trace.Logger
}

// Console handles interactive mode for labbus-cli. It owns at most one
// open bus session at a time; open after close starts a fresh runtime.
type Console struct {
	cfg    Config
	rl     *readline.Instance
	logger *slog.Logger

	session *bus.Session
	rt      *sim.Runtime
}

// New creates a new interactive console.
func New(cfg Config) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "labbus> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	// Debug output goes through readline to keep the prompt intact.
	var logger *slog.Logger
	if cfg.Debug {
		logger = slog.New(slog.NewTextHandler(rl.Stdout(), &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	return &Console{
		cfg:    cfg,
		rl:     rl,
		logger: logger,
	}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Close releases the console's bus session if one is still open.
func (c *Console) Close() error {
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	c.rt = nil
	return err
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "open":
			c.cmdOpen()

		case "start":
			c.cmdStart()

		case "stop":
			c.cmdStop()

		case "close":
			c.cmdClose()

		case "status":
			c.cmdStatus()

		case "pumps", "p":
			c.cmdPumps()

		case "valves", "v":
			c.cmdValves()

		case "syringe":
			c.cmdSyringe(args)

		case "aspirate", "a":
			c.cmdDose(args, "aspirate")

		case "dispense", "d":
			c.cmdDose(args, "dispense")

		case "level":
			c.cmdLevel(args)

		case "flow":
			c.cmdFlow(args)

		case "halt":
			c.cmdHalt(args)

		case "calibrate", "cal":
			c.cmdCalibrate(args)

		case "wait":
			c.cmdWait(args)

		case "enable":
			c.cmdEnable(args, true)

		case "disable":
			c.cmdEnable(args, false)

		case "valve":
			c.cmdValve(args)

		case "fault":
			c.cmdFault(args)

		case "clearfault":
			c.cmdClearFault(args)

		case "comm":
			c.cmdComm(args)

		case "log":
			c.cmdLog(args)

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
labbus Console Commands:
  Bus Lifecycle:
    open               - Open the bus segment from the configuration file
    start              - Start bus communication (devices go operational)
    stop               - Suspend bus communication
    close              - Release the bus segment
    status             - Show bus and session status

  Pumps:
    pumps              - List pumps with fill levels and drive state
    syringe <pump> [d stroke] - Show or set syringe dimensions (mm)
    aspirate <pump> <vol> <flow> - Draw up volume at flow rate
    dispense <pump> <vol> <flow> - Push out volume at flow rate
    level <pump> [target flow]   - Show or dose to a fill level
    flow <pump> <rate> - Generate a continuous flow (negative aspirates)
    halt <pump>|all    - Stop dosing (freezes at current level)
    calibrate <pump>   - Run a reference move and wait for completion
    wait <pump> [sec]  - Poll until the running dosage finishes
    enable <pump>      - Enable the pump drive
    disable <pump>     - Disable the pump drive

  Valves:
    valves             - List valves with current positions
    valve <name> [pos] - Show or switch a valve position (0-based)

  Diagnostics:
    fault <device> <code> [msg] - Inject a device fault (simulation)
    clearfault <pump>  - Clear a pump's latched fault
    comm <device> <operational|stopped|config> - Request a comm state
    log <message>      - Write a message to the bus log

  General:
    help               - Show this help
    quit               - Exit the console

  Pumps and valves are addressed by name or by discovery index.`)
}

// requireSession reports the open session, printing a hint when there is
// none.
func (c *Console) requireSession() (*bus.Session, bool) {
	if c.session == nil {
		fmt.Fprintln(c.rl.Stdout(), "No open bus (use 'open' first)")
		return nil, false
	}
	return c.session, true
}

// resolvePump resolves a pump by name or discovery index.
func (c *Console) resolvePump(arg string) (*pump.Pump, error) {
	s, ok := c.requireSession()
	if !ok {
		return nil, errors.New("bus not open")
	}
	if index, err := strconv.Atoi(arg); err == nil {
		return pump.ByIndex(s, index)
	}
	return pump.ByName(s, arg)
}

// resolveValve resolves a valve by name or discovery index.
func (c *Console) resolveValve(arg string) (*valve.Valve, error) {
	s, ok := c.requireSession()
	if !ok {
		return nil, errors.New("bus not open")
	}
	if index, err := strconv.Atoi(arg); err == nil {
		return valve.ByIndex(s, index)
	}
	return valve.ByName(s, arg)
}

// cmdOpen opens a fresh simulated runtime from the configuration file.
func (c *Console) cmdOpen() {
	if c.session != nil {
		fmt.Fprintln(c.rl.Stdout(), "Bus already open (use 'close' first)")
		return
	}

	rt := sim.New(sim.Config{Logger: c.logger})
	s, err := bus.Open(rt, bus.Config{
		ConfigPath: c.cfg.ConfigPath,
		Logger:     c.logger,
		Trace:      c.cfg.Trace,
	})
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Open failed: %v\n", err)
		return
	}

	c.session = s
	c.rt = rt
	fmt.Fprintf(c.rl.Stdout(), "Bus open: %s (session %s)\n", rt.BusName(), shortID(s.ID()))
}

// cmdStart starts bus communication.
func (c *Console) cmdStart() {
	s, ok := c.requireSession()
	if !ok {
		return
	}
	if err := s.Start(); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Start failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Bus started")
}

// cmdStop suspends bus communication.
func (c *Console) cmdStop() {
	s, ok := c.requireSession()
	if !ok {
		return
	}
	if err := s.Stop(); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Stop failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Bus stopped")
}

// cmdClose releases the bus segment.
func (c *Console) cmdClose() {
	s, ok := c.requireSession()
	if !ok {
		return
	}
	if err := s.Close(); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Close failed: %v\n", err)
		return
	}
	c.session = nil
	c.rt = nil
	fmt.Fprintln(c.rl.Stdout(), "Bus closed")
}

// cmdStatus shows the session status.
func (c *Console) cmdStatus() {
	fmt.Fprintln(c.rl.Stdout(), "\nBus Status")
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(c.rl.Stdout(), "  Config:   %s\n", c.cfg.ConfigPath)

	if c.session == nil {
		fmt.Fprintln(c.rl.Stdout(), "  State:    not open")
		fmt.Fprintln(c.rl.Stdout())
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "  State:    %s\n", c.session.State())
	fmt.Fprintf(c.rl.Stdout(), "  Session:  %s\n", shortID(c.session.ID()))
	fmt.Fprintf(c.rl.Stdout(), "  Bus name: %s\n", c.rt.BusName())

	if pumps, err := pump.Count(c.session); err == nil {
		fmt.Fprintf(c.rl.Stdout(), "  Pumps:    %d\n", pumps)
	}
	if valves, err := valve.Count(c.session); err == nil {
		fmt.Fprintf(c.rl.Stdout(), "  Valves:   %d\n", valves)
	}
	fmt.Fprintln(c.rl.Stdout())
}

// cmdPumps lists all pumps with their drive and dosing state.
func (c *Console) cmdPumps() {
	s, ok := c.requireSession()
	if !ok {
		return
	}

	count, err := pump.Count(s)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if count == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No pumps configured")
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "\nPumps (%d):\n", count)
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	for i := 0; i < count; i++ {
		p, err := pump.ByIndex(s, i)
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "  [%d] error: %v\n", i, err)
			continue
		}
		c.printPump(i, p)
	}
	fmt.Fprintln(c.rl.Stdout())
}

// printPump prints one pump entry in the pumps listing.
func (c *Console) printPump(index int, p *pump.Pump) {
	name, err := p.Name()
	if err != nil {
		name = fmt.Sprintf("pump %d", index)
	}
	node, _ := p.NodeID()
	fmt.Fprintf(c.rl.Stdout(), "  [%d] %s (node %d)\n", index, name, node)

	unit := "?"
	if u, err := p.VolumeUnit(); err == nil {
		unit = volumeUnitLabel(u)
	}
	level, levelErr := p.FillLevel()
	maxVol, maxErr := p.MaxVolume()
	if levelErr == nil && maxErr == nil {
		fmt.Fprintf(c.rl.Stdout(), "      Level: %.3f / %.3f %s\n", level, maxVol, unit)
	}

	drive := "disabled"
	if enabled, err := p.IsEnabled(); err == nil && enabled {
		drive = "enabled"
	}
	motion := "idle"
	if pumping, err := p.IsPumping(); err == nil && pumping {
		motion = "dosing"
	}
	fmt.Fprintf(c.rl.Stdout(), "      Drive: %s, %s\n", drive, motion)

	if fault, err := p.LastFault(); err == nil && !fault.IsZero() {
		fmt.Fprintf(c.rl.Stdout(), "      Fault: %s\n", fault)
	}
	if has, err := p.HasValve(); err == nil && has {
		fmt.Fprintln(c.rl.Stdout(), "      Valve: attached")
	}
}

// cmdValves lists all valves with their positions.
func (c *Console) cmdValves() {
	s, ok := c.requireSession()
	if !ok {
		return
	}

	count, err := valve.Count(s)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if count == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No valves configured")
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "\nValves (%d):\n", count)
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	for i := 0; i < count; i++ {
		v, err := valve.ByIndex(s, i)
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "  [%d] error: %v\n", i, err)
			continue
		}
		name, err := v.Name()
		if err != nil {
			name = fmt.Sprintf("valve %d", i)
		}
		positions, _ := v.PositionCount()
		pos, posErr := v.Position()
		if posErr == nil {
			fmt.Fprintf(c.rl.Stdout(), "  [%d] %s: position %d of %d\n", i, name, pos, positions)
		} else {
			fmt.Fprintf(c.rl.Stdout(), "  [%d] %s: %d positions\n", i, name, positions)
		}
	}
	fmt.Fprintln(c.rl.Stdout())
}

// cmdSyringe shows or sets a pump's syringe dimensions.
func (c *Console) cmdSyringe(args []string) {
	if len(args) != 1 && len(args) != 3 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: syringe <pump> [inner-diameter-mm max-stroke-mm]")
		return
	}

	p, err := c.resolvePump(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}

	if len(args) == 3 {
		diameter, err1 := strconv.ParseFloat(args[1], 64)
		stroke, err2 := strconv.ParseFloat(args[2], 64)
		if err1 != nil || err2 != nil {
			fmt.Fprintln(c.rl.Stdout(), "Invalid syringe dimensions")
			return
		}
		if err := p.SetSyringe(pump.Syringe{InnerDiameterMM: diameter, MaxStrokeMM: stroke}); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
			return
		}
	}

	sy, err := p.Syringe()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	maxVol, err := p.MaxVolume()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Syringe: %.2f mm x %.2f mm, max volume %.3f\n",
		sy.InnerDiameterMM, sy.MaxStrokeMM, maxVol)
}

// cmdDose starts an aspirate or dispense dosage.
func (c *Console) cmdDose(args []string, direction string) {
	if len(args) < 3 {
		fmt.Fprintf(c.rl.Stdout(), "Usage: %s <pump> <volume> <flow>\n", direction)
		return
	}

	p, err := c.resolvePump(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}

	volume, err1 := strconv.ParseFloat(args[1], 64)
	flow, err2 := strconv.ParseFloat(args[2], 64)
	if err1 != nil || err2 != nil {
		fmt.Fprintln(c.rl.Stdout(), "Invalid volume or flow value")
		return
	}

	if direction == "aspirate" {
		err = p.Aspirate(volume, flow)
	} else {
		err = p.Dispense(volume, flow)
	}
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Dosage started: %s %.3f at %.3f (use 'wait' to follow)\n",
		direction, volume, flow)
}

// cmdLevel shows the fill level or doses to a target level.
func (c *Console) cmdLevel(args []string) {
	if len(args) != 1 && len(args) != 3 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: level <pump> [target-level flow]")
		return
	}

	p, err := c.resolvePump(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}

	if len(args) == 3 {
		target, err1 := strconv.ParseFloat(args[1], 64)
		flow, err2 := strconv.ParseFloat(args[2], 64)
		if err1 != nil || err2 != nil {
			fmt.Fprintln(c.rl.Stdout(), "Invalid level or flow value")
			return
		}
		if err := p.SetFillLevel(target, flow); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
			return
		}
		fmt.Fprintf(c.rl.Stdout(), "Dosing to level %.3f (use 'wait' to follow)\n", target)
		return
	}

	level, err := p.FillLevel()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Fill level: %.3f\n", level)
}

// cmdFlow starts a continuous flow.
func (c *Console) cmdFlow(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: flow <pump> <rate>")
		fmt.Fprintln(c.rl.Stdout(), "  Positive rate dispenses, negative aspirates")
		return
	}

	p, err := c.resolvePump(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}

	rate, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid flow rate: %v\n", err)
		return
	}

	if err := p.GenerateFlow(rate); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Flow started: %.3f (runs until 'halt' or a limit)\n", rate)
}

// cmdHalt stops one pump or all pumps.
func (c *Console) cmdHalt(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: halt <pump>|all")
		return
	}

	if args[0] == "all" {
		s, ok := c.requireSession()
		if !ok {
			return
		}
		if err := pump.StopAll(s); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
			return
		}
		fmt.Fprintln(c.rl.Stdout(), "All pumps stopped")
		return
	}

	p, err := c.resolvePump(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if err := p.StopPumping(); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	level, err := p.FillLevel()
	if err == nil {
		fmt.Fprintf(c.rl.Stdout(), "Pump stopped at level %.3f\n", level)
	} else {
		fmt.Fprintln(c.rl.Stdout(), "Pump stopped")
	}
}

// cmdCalibrate runs a reference move and polls for completion.
func (c *Console) cmdCalibrate(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: calibrate <pump>")
		return
	}

	p, err := c.resolvePump(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}

	if err := p.Calibrate(); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Calibrating...")

	timer := polling.NewTimer(defaultWaitTimeout)
	finished, err := timer.WaitUntil(p.IsCalibrationFinished, true)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if !finished {
		fmt.Fprintln(c.rl.Stdout(), "Calibration did not finish in time")
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Calibration finished")
}

// cmdWait polls until the pump's running dosage finishes.
func (c *Console) cmdWait(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: wait <pump> [timeout-seconds]")
		return
	}

	p, err := c.resolvePump(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}

	timeout := defaultWaitTimeout
	if len(args) >= 2 {
		seconds, err := strconv.ParseFloat(args[1], 64)
		if err != nil || seconds <= 0 {
			fmt.Fprintln(c.rl.Stdout(), "Invalid timeout")
			return
		}
		timeout = time.Duration(seconds * float64(time.Second))
	}

	timer := polling.NewTimer(timeout)
	idle, err := timer.WaitUntil(p.IsPumping, false)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if !idle {
		fmt.Fprintf(c.rl.Stdout(), "Still dosing after %s\n", timeout)
		return
	}

	dosed, err := p.DosedVolume()
	if err == nil {
		fmt.Fprintf(c.rl.Stdout(), "Dosage finished: %.3f dosed\n", dosed)
	} else {
		fmt.Fprintln(c.rl.Stdout(), "Dosage finished")
	}
}

// cmdEnable enables or disables a pump drive.
func (c *Console) cmdEnable(args []string, enable bool) {
	verb := "enable"
	if !enable {
		verb = "disable"
	}
	if len(args) < 1 {
		fmt.Fprintf(c.rl.Stdout(), "Usage: %s <pump>\n", verb)
		return
	}

	p, err := c.resolvePump(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}

	if enable {
		err = p.Enable()
	} else {
		err = p.Disable()
	}
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Drive %sd\n", verb)
}

// cmdValve shows or switches a valve position.
func (c *Console) cmdValve(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: valve <name> [position]")
		return
	}

	v, err := c.resolveValve(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}

	if len(args) >= 2 {
		position, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Invalid position: %v\n", err)
			return
		}
		if err := v.SwitchTo(position); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
			return
		}
	}

	pos, err := v.Position()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	count, err := v.PositionCount()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Position %d of %d\n", pos, count)
}

// cmdFault injects a device fault into the simulated runtime.
func (c *Console) cmdFault(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: fault <device> <code> [message]")
		fmt.Fprintln(c.rl.Stdout(), "  Example: fault neMESYS_Low_Pressure_1_Pump 0x2310 \"plunger blocked\"")
		return
	}
	if _, ok := c.requireSession(); !ok {
		return
	}

	code, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid fault code: %v\n", err)
		return
	}

	message := strings.Trim(strings.Join(args[2:], " "), "\"'")
	if !c.rt.SetFault(args[0], driver.DeviceErrorCode(code), message) {
		fmt.Fprintf(c.rl.Stdout(), "Device not found: %s\n", args[0])
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Fault 0x%04X injected on %s\n", code, args[0])
}

// cmdClearFault clears a pump's latched fault.
func (c *Console) cmdClearFault(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: clearfault <pump>")
		return
	}

	p, err := c.resolvePump(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if err := p.ClearFault(); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Fault cleared (re-enable the drive to resume dosing)")
}

// cmdComm requests a communication state on a device.
func (c *Console) cmdComm(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: comm <device> <operational|stopped|config>")
		return
	}

	state, err := parseCommState(args[1])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}

	d, err := c.resolveDevice(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if err := d.SetCommState(state); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Comm state set to %s\n", state)
}

// resolveDevice resolves a device of any kind by name, trying pumps first.
func (c *Console) resolveDevice(name string) (*bus.Device, error) {
	s, ok := c.requireSession()
	if !ok {
		return nil, errors.New("bus not open")
	}
	p, err := pump.ByName(s, name)
	if err == nil {
		return p.Device, nil
	}
	if !errors.Is(err, bus.ErrLookup) {
		return nil, err
	}
	v, err := valve.ByName(s, name)
	if err != nil {
		return nil, err
	}
	return v.Device, nil
}

// cmdLog writes a message to the bus log.
func (c *Console) cmdLog(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: log <message>")
		return
	}
	s, ok := c.requireSession()
	if !ok {
		return
	}

	message := strings.Join(args, " ")
	if err := s.Log(message); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Logged")
}

// parseCommState parses a communication state name (case-insensitive).
func parseCommState(s string) (driver.CommState, error) {
	switch strings.ToLower(s) {
	case "operational", "op":
		return driver.CommStateOperational, nil
	case "stopped", "stop":
		return driver.CommStateStopped, nil
	case "config", "configurable":
		return driver.CommStateConfigurable, nil
	default:
		return 0, fmt.Errorf("invalid comm state: %s (must be operational, stopped, or config)", s)
	}
}

// volumeUnitLabel returns a compact label for a pump volume unit.
func volumeUnitLabel(u pump.VolumeUnit) string {
	if u.Unit != driver.Litres {
		return "?"
	}
	switch u.Prefix {
	case driver.PrefixUnit:
		return "L"
	case driver.PrefixDeci:
		return "dL"
	case driver.PrefixCenti:
		return "cL"
	case driver.PrefixMilli:
		return "mL"
	case driver.PrefixMicro:
		return "uL"
	default:
		return "?"
	}
}

// shortID returns the first 8 characters of a session ID.
func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
