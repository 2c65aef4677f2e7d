// Package bus implements the host-side control plane for a labbus field
// bus segment.
//
// A Session owns one opened bus segment. It drives the runtime through the
// lifecycle open -> start -> stop -> close and is the single place where raw
// runtime status codes are translated into Go errors. Device packages route
// every runtime call through the session's Check methods, so translation,
// tracing, and closed-session handling live in one gate instead of being
// repeated at every call site.
//
// # Lifecycle
//
// Open configures the runtime from a device configuration and yields a
// Session in state OPENED. Start brings bus communication up (devices go
// operational), Stop suspends it, and Close releases the segment for good.
// A closed session rejects all further calls with ErrClosed.
//
// # Devices
//
// A Device binds a runtime handle to its owning session. It exposes the
// operations every bus node supports: identification, communication state,
// fault readout, and device properties. Specialized packages (pump, valve)
// build on Device for their node profiles.
//
// # Errors
//
// Failed runtime calls surface as *Error values carrying the operation,
// the raw status code, and the runtime's message for it. Each error wraps
// one of the kind sentinels (ErrInit, ErrComm, ErrLookup, ErrClosed) so
// callers can classify failures with errors.Is without parsing text.
// Device faults read back from a node are advisory Fault values, not
// errors: a faulted device still answers queries.
package bus
