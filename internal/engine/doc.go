// Package engine implements the PRISM property evaluator.
//
// The evaluator is the single entry point for property access: call sites
// never touch slots, observer chains, or type tables directly. A get/set
// request resolves the target descriptor, routes to the owning instance
// record or type table, and applies lazy realization, observer firing, and
// container-mutability gating.
//
// ARCHITECTURE:
//
// Synchronous, single-owner evaluation:
// Get and Set are synchronous and complete before returning. An instance
// record is owned by one logical thread of control at a time; the engine
// adds no per-instance locking. Type tables are process-wide shared state,
// so the Registry serializes their creation and access with a mutex.
//
// Write path for a stored var:
//  1. willSet observers run with the incoming value (skipped while the
//     slot is unrealized, i.e. during construction)
//  2. the value commits into the slot (old value captured first)
//  3. the mutation is recorded to the journal with a logical seq
//  4. didSet observers run with the replaced value
//
// A didSet write to the same property re-enters the full sequence. Re-entry
// depth is bounded (MaxObserverDepth); exceeding the bound is an error, not
// a hang.
//
// Observers never fire for the write that establishes a property's initial
// value. They fire on every subsequent external write, even when the new
// value equals the old one.
package engine
