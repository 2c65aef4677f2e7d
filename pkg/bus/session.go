package bus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labbus-project/labbus-go/pkg/driver"
	"github.com/labbus-project/labbus-go/pkg/trace"
)

// SessionState tracks the lifecycle of a bus segment.
type SessionState uint8

const (
	// StateUnopened - session created but the segment is not opened.
	StateUnopened SessionState = iota

	// StateOpened - segment configured, bus communication not yet started.
	StateOpened

	// StateStarted - bus communication is running.
	StateStarted

	// StateStopped - bus communication suspended, segment still open.
	StateStopped

	// StateClosed - segment released; the session accepts no more calls.
	StateClosed
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case StateUnopened:
		return "UNOPENED"
	case StateOpened:
		return "OPENED"
	case StateStarted:
		return "STARTED"
	case StateStopped:
		return "STOPPED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Config configures a Session.
type Config struct {
	// ConfigPath is the device configuration handed to the runtime on open.
	ConfigPath string

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// Trace is the optional trace logger for bus activity capture.
	// If nil, tracing is disabled.
	Trace trace.Logger
}

// Session owns one opened bus segment. All runtime calls made on behalf
// of this session go through its Check methods, the single place where
// status codes become Go errors and trace events.
//
// Session methods are safe for concurrent use.
type Session struct {
	mu sync.RWMutex

	rt    driver.Runtime
	state SessionState

	// id identifies this session in traces (UUID).
	id string

	// Logger for debug output (optional)
	logger *slog.Logger

	// Trace logger for structured event capture
	tracer trace.Logger
}

// Open configures the runtime from the device configuration in config and
// returns a session in state OPENED. Bus communication is not started yet;
// call Start for that.
func Open(rt driver.Runtime, config Config) (*Session, error) {
	if rt == nil {
		return nil, newError(ErrInit, "Bus.Open", "", driver.StatusInvalid.Value(), "no runtime")
	}

	tracer := config.Trace
	if tracer == nil {
		tracer = trace.NoopLogger{}
	}

	s := &Session{
		rt:     rt,
		state:  StateUnopened,
		id:     uuid.NewString(),
		logger: config.Logger,
		tracer: tracer,
	}

	st := rt.Open(config.ConfigPath)
	if err := s.check(ErrInit, "Bus.Open", "", driver.None, st); err != nil {
		return nil, err
	}

	s.transition(StateOpened, "Bus.Open")
	s.debugLog("bus segment opened", "config", config.ConfigPath, "session", s.id)
	return s, nil
}

// ID returns the session's unique identifier (UUID).
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Runtime returns the underlying runtime. Device packages use it to reach
// profile-specific operations; calls made directly on the runtime bypass
// translation and tracing.
func (s *Session) Runtime() driver.Runtime {
	return s.rt
}

// Start brings bus communication up. Devices on the segment boot into
// their operational state.
func (s *Session) Start() error {
	if err := s.Guard("Bus.Start"); err != nil {
		return err
	}
	if err := s.Check("Bus.Start", "", driver.None, s.rt.Start()); err != nil {
		return err
	}
	s.transition(StateStarted, "Bus.Start")
	return nil
}

// Stop suspends bus communication. The segment stays open and Start brings
// communication back up. Stopping does not halt device motion that is
// already in progress; stop the devices themselves for that.
func (s *Session) Stop() error {
	if err := s.Guard("Bus.Stop"); err != nil {
		return err
	}
	if err := s.Check("Bus.Stop", "", driver.None, s.rt.Stop()); err != nil {
		return err
	}
	s.transition(StateStopped, "Bus.Stop")
	return nil
}

// Close releases the bus segment. Close is idempotent; after the first
// successful call every other session method fails with ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.Check("Bus.Close", "", driver.None, s.rt.Close()); err != nil {
		return err
	}
	s.transition(StateClosed, "Bus.Close")
	return nil
}

// Log forwards a host message into the runtime's bus log. The message is
// also recorded in the session trace.
func (s *Session) Log(message string) error {
	if err := s.Guard("Bus.Log"); err != nil {
		return err
	}
	if err := s.Check("Bus.Log", "", driver.None, s.rt.Log(message)); err != nil {
		return err
	}
	s.tracer.Log(trace.Event{
		Timestamp:  time.Now(),
		SessionID:  s.id,
		Category:   trace.CategoryLog,
		LogMessage: &trace.LogMessageEvent{Message: message},
	})
	return nil
}

// ErrorMessage returns the runtime's text for a status code.
func (s *Session) ErrorMessage(st driver.Status) string {
	return s.rt.ErrorMessage(st)
}

// Guard reports whether the session can accept runtime calls. Once the
// session is closed it returns an ErrClosed error naming op.
func (s *Session) Guard(op string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == StateClosed || s.state == StateUnopened {
		return newError(ErrClosed, op, "", driver.StatusShutdown.Value(), "")
	}
	return nil
}

// Check translates a runtime status into an error, tracing the call.
// A zero or positive status yields nil. device and h annotate the trace
// event and the error; pass "" and driver.None when not applicable.
// Failures wrap ErrComm.
func (s *Session) Check(op, device string, h driver.Handle, st driver.Status) error {
	return s.check(ErrComm, op, device, h, st)
}

// CheckLookup is Check for name and index lookups; failures wrap ErrLookup.
func (s *Session) CheckLookup(op, device string, h driver.Handle, st driver.Status) error {
	return s.check(ErrLookup, op, device, h, st)
}

// check is the translation gate. Every runtime call result passes through
// here exactly once: the call is traced, and a failure status becomes a
// *Error of the given kind with the runtime's message attached.
func (s *Session) check(kind error, op, device string, h driver.Handle, st driver.Status) error {
	message := ""
	if !st.Ok() {
		message = s.rt.ErrorMessage(st)
	}

	s.tracer.Log(trace.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Category:  trace.CategoryCall,
		Op:        op,
		Device:    device,
		Handle:    int64(h),
		Call: &trace.CallEvent{
			Code:    st.Value(),
			Message: message,
		},
	})

	if st.Ok() {
		return nil
	}

	s.debugLog("runtime call failed",
		"op", op,
		"device", device,
		"code", st.Value(),
		"message", message)
	return newError(kind, op, device, st.Value(), message)
}

// transition records a session state change and emits the trace event.
func (s *Session) transition(newState SessionState, op string) {
	s.mu.Lock()
	oldState := s.state
	s.state = newState
	s.mu.Unlock()

	s.tracer.Log(trace.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Category:  trace.CategoryState,
		Op:        op,
		StateChange: &trace.StateChangeEvent{
			Entity:   trace.StateEntitySession,
			OldState: oldState.String(),
			NewState: newState.String(),
		},
	})
	s.debugLog("session state changed", "old", oldState.String(), "new", newState.String())
}

// traceCommState emits a device communication state trace event.
func (s *Session) traceCommState(device string, h driver.Handle, oldState, newState string) {
	s.tracer.Log(trace.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Category:  trace.CategoryState,
		Op:        "Device.SetCommState",
		Device:    device,
		Handle:    int64(h),
		StateChange: &trace.StateChangeEvent{
			Entity:   trace.StateEntityComm,
			OldState: oldState,
			NewState: newState,
		},
	})
}

// traceFault emits a device fault trace event.
func (s *Session) traceFault(device string, h driver.Handle, code uint32, message string) {
	s.tracer.Log(trace.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Category:  trace.CategoryFault,
		Device:    device,
		Handle:    int64(h),
		Fault: &trace.FaultEvent{
			Code:    code,
			Message: message,
		},
	})
}

// debugLog logs a debug message if logging is enabled.
func (s *Session) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
