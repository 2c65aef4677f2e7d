package bus

import (
	"errors"
	"fmt"
)

// Error kind sentinels. Every *Error wraps exactly one of these;
// match with errors.Is.
var (
	// ErrInit indicates the bus segment could not be opened or configured.
	ErrInit = errors.New("initialization failed")

	// ErrComm indicates a failure while talking to an opened bus.
	ErrComm = errors.New("communication failed")

	// ErrLookup indicates a device name or index that resolved to nothing.
	ErrLookup = errors.New("device lookup failed")

	// ErrClosed indicates a call on a session that is already closed.
	ErrClosed = errors.New("session closed")
)

// Error is a failed runtime call translated into a Go error.
type Error struct {
	// Op is the operation that failed (e.g. "Pump.Aspirate").
	Op string

	// Device is the device name the call concerned, when known.
	Device string

	// Code is the raw status code reported by the runtime.
	Code int

	// Message is the runtime's text for the code (may be empty).
	Message string

	kind error
}

// Error returns the failure in the form "op [device]: message (code N)".
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.kind.Error()
	}
	if e.Device != "" {
		return fmt.Sprintf("%s %s: %s (code %d)", e.Op, e.Device, msg, e.Code)
	}
	return fmt.Sprintf("%s: %s (code %d)", e.Op, msg, e.Code)
}

// Unwrap returns the kind sentinel this error wraps.
func (e *Error) Unwrap() error {
	return e.kind
}

func newError(kind error, op, device string, code int, message string) *Error {
	return &Error{
		Op:      op,
		Device:  device,
		Code:    code,
		Message: message,
		kind:    kind,
	}
}
