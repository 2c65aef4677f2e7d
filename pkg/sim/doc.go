// Package sim provides an in-process device runtime for development and
// testing without bus hardware.
//
// The runtime loads its device inventory from a YAML configuration file
// and models pump dosages as linear plunger moves against a clock, so
// fill levels, flows and completion times behave like a real segment.
// Tests inject a manual clock through Config to step dosages
// deterministically; by default the system clock drives the model and a
// dosage of 2 ml at 1 ml/s really takes two seconds of wall time.
//
// Failures are produced with the same status codes a hardware runtime
// would return: looking up an unknown device name yields ENOENT,
// commanding a device whose communication state is not operational yields
// ETIMEDOUT, dosing with a disabled drive yields EACCES. Device faults
// can be injected with SetFault to exercise fault handling paths.
package sim
