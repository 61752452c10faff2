// Package ir provides the canonical data types for the PRISM property engine.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the IR the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - All JSON tags use snake_case
//   - Ordering uses logical seq counters, never wall-clock timestamps
//   - Mutation identity is content-addressed via RFC 8785 canonical JSON
package ir
