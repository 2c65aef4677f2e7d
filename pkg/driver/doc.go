// Package driver defines the boundary between the labbus control plane and
// the device runtime that owns the physical bus.
//
// The runtime (vendor-supplied on real hardware, pkg/sim in tests and
// development) issues opaque device handles and executes every physical
// operation. All runtime calls report a signed Status code: negative values
// are failures, zero and positive values are success, and positive values may
// carry a payload such as a device count or a node id. Callers never
// interpret codes directly; pkg/bus translates them into structured errors at
// a single gate.
//
// The interfaces mirror the runtime's API families: Runtime for the bus core
// and per-handle device operations, PumpAPI for syringe pump operations, and
// ValveAPI for valve operations. A runtime implementation provides Runtime
// and whichever device families it supports.
package driver
