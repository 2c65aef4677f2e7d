package trace

import "time"

// Event represents one traced control-plane action.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the bus session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"3,keyasint"`

	// Op is the operation name at the driver boundary (e.g. "Bus.Start",
	// "Pump.Aspirate"). Empty for events not tied to a call.
	Op string `cbor:"4,keyasint,omitempty"`

	// Device is the device name the event concerns, when known.
	Device string `cbor:"5,keyasint,omitempty"`

	// Handle is the raw device handle the event concerns, when known.
	Handle int64 `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Call        *CallEvent        `cbor:"7,keyasint,omitempty"`  // Runtime call result
	StateChange *StateChangeEvent `cbor:"8,keyasint,omitempty"`  // Session/device state
	LogMessage  *LogMessageEvent  `cbor:"9,keyasint,omitempty"`  // Host log line
	Fault       *FaultEvent       `cbor:"10,keyasint,omitempty"` // Device fault read
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryCall indicates a runtime call crossing the driver boundary.
	CategoryCall Category = 0
	// CategoryState indicates a session or device state transition.
	CategoryState Category = 1
	// CategoryLog indicates a host message forwarded to the bus log.
	CategoryLog Category = 2
	// CategoryFault indicates a fault read back from a device.
	CategoryFault Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryCall:
		return "CALL"
	case CategoryState:
		return "STATE"
	case CategoryLog:
		return "LOG"
	case CategoryFault:
		return "FAULT"
	default:
		return "UNKNOWN"
	}
}

// CallEvent captures the outcome of a single runtime call.
type CallEvent struct {
	// Code is the raw status code returned by the runtime.
	// Zero or positive is success, negative is a failure.
	Code int `cbor:"1,keyasint"`

	// Message is the runtime's text for a failure code (empty on success).
	Message string `cbor:"2,keyasint,omitempty"`
}

// Failed returns true if the traced call reported a failure code.
func (c *CallEvent) Failed() bool {
	return c.Code < 0
}

// StateChangeEvent captures session and device lifecycle transitions.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntitySession indicates a bus session state change.
	StateEntitySession StateEntity = 0
	// StateEntityComm indicates a device communication state change.
	StateEntityComm StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntitySession:
		return "SESSION"
	case StateEntityComm:
		return "COMM"
	default:
		return "UNKNOWN"
	}
}

// LogMessageEvent captures a host message forwarded to the bus log.
type LogMessageEvent struct {
	// Message is the text passed to the bus log.
	Message string `cbor:"1,keyasint"`
}

// FaultEvent captures a fault code read back from a device.
type FaultEvent struct {
	// Code is the device fault code.
	Code uint32 `cbor:"1,keyasint"`

	// Message is the device's text for the fault code (if available).
	Message string `cbor:"2,keyasint,omitempty"`
}
