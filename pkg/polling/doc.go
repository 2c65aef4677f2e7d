// Package polling implements the deadline timer used to poll slow bus
// operations until they report completion.
//
// Bus devices execute dosing, calibration, and valve movements
// asynchronously: the host issues a command and then has to poll a status
// flag until the device reports the new condition. Timer wraps that loop.
// It tracks a single deadline derived from a period, and WaitUntil
// evaluates a predicate at a fixed poll interval until the predicate
// reports the wanted value or the deadline passes.
//
// # Deadline Semantics
//
// A Timer is armed on creation and re-armed by Restart or RestartFrom.
// SetPeriod only stores the new period; the current deadline is untouched
// until the next restart. This lets callers tune the period of a shared
// timer without cutting short a wait that is already in flight.
//
// # Clocks
//
// Timers read time through the Clock interface. Production code uses the
// monotonic system clock; tests substitute a manual clock to step through
// deadline arithmetic without sleeping.
//
// A Timer is not safe for concurrent use. Each waiting goroutine should
// own its timer.
package polling
