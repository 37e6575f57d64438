// Package outreg provides the Output Registry: the transient, pass-scoped
// mapping from a result's identity to its computed dataset handle.
//
// # Purpose
//
// The registry is what makes shared prefixes cheap. When two plots read the
// same pipeline, the scheduler computes each step of that pipeline once,
// installs the handle under (pipeline, step) and every consumer reads it
// from here. Handles are referenced by Key, never by aliasing the graph
// nodes that produced them, so the lifetime of every result is the lifetime
// of the pass.
//
// # Concurrency Model
//
// It is the only shared mutable state of a pass. Each key has a single
// writer: the first Put or Fail completes the key and any later write is
// rejected with ErrAlreadyWritten. Readers that must not race the writer
// use Wait, which blocks until the key is completed, the registry is
// cleared, or the context ends. Get never blocks and only sees completed,
// successful results.
//
// # Ownership
//
// Handles installed with Put are owned by the registry and released on
// Clear when they implement io.Closer. Handles installed with Share, such
// as published sources or results held by the fingerprint cache, belong to
// someone else and are only forgotten.
package outreg
