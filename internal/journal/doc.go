// Package journal provides SQLite-backed durable storage for property
// mutation logs.
//
// The journal is an append-only log of committed stored-property writes.
// One row per mutation, external and observer-originated alike; computed
// reads and construction-time seeding never appear.
//
// Ordering uses seq INTEGER (logical clock), never timestamps, so replay
// is deterministic regardless of wall time. All queries order by
// seq ASC, id ASC COLLATE BINARY for identical results across replays.
//
// Mutation IDs are content-addressed (SHA-256 over the canonical mutation
// payload), and inserts use ON CONFLICT(id) DO NOTHING, so re-appending a
// mutation is a no-op.
//
// Old and new values are stored as RFC 8785 canonical JSON TEXT.
//
// Database configuration:
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: lock contention tolerance
//   - single writer connection to avoid SQLITE_BUSY
package journal
