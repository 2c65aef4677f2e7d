// Package trace provides structured bus-activity tracing for labbus hosts.
//
// This package defines the Logger interface and Event types for capturing
// control-plane activity: runtime calls crossing the driver boundary, state
// transitions, host log lines, and device faults. It is separate from
// operational logging (slog) - a trace is a complete machine-readable record
// of one session's bus traffic, for debugging and offline analysis.
//
// # Basic Usage
//
// Applications configure tracing by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg := bus.Config{Trace: trace.NewSlogAdapter(slog.Default())}
//
//	// For production: write to binary file
//	tl, _ := trace.NewFileLogger("/var/log/labbus/session.ltrace")
//	cfg := bus.Config{Trace: tl}
//
//	// Both: use MultiLogger
//	cfg := bus.Config{Trace: trace.NewMultiLogger(
//	    trace.NewSlogAdapter(slog.Default()),
//	    tl,
//	)}
//
// # Event Types
//
// Each event carries one payload matching its category:
//   - Call: a runtime call and its status code (CallEvent)
//   - State: a session or device state transition (StateChangeEvent)
//   - Log: a host message forwarded to the bus log (LogMessageEvent)
//   - Fault: a fault read back from a device (FaultEvent)
//
// # File Format
//
// Trace files use CBOR encoding with .ltrace extension. The labbus-trace
// CLI tool provides viewing, filtering, and export capabilities.
package trace
