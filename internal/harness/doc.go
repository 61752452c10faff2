// Package harness provides a conformance testing framework for the prism
// property engine.
//
// A scenario is a YAML file carrying inline CUE declarations, a sequence
// of evaluator operations (construct, set, get, set_type, get_type) with
// expected values or error codes, and assertions over the resulting
// mutation log.
//
// Every scenario runs against a fresh registry, evaluator, and in-memory
// journal. Instance IDs and mutation seqs come from deterministic
// generators, so the same scenario always produces a byte-identical
// mutation log. Golden files snapshot that log (and every observed read)
// in canonical JSON; see RunWithGolden.
package harness
