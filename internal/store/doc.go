// Package store provides SQLite-backed run history for sagatest.
//
// Each scenario run is written once, after it finishes:
//   - runs: one row per run with its pass flag, first failure and the
//     canonical trace JSON plus its hash
//   - effects: one row per yielded effect, in trace order
//
// Runs are append-only. Ordering uses a logical seq column, never
// timestamps, and listings order by seq, id COLLATE BINARY so they are
// identical across machines.
//
// The expectation core never reads from here. History is written by the
// CLI and read back by `sagatest trace`.
//
// # Schema versions
//
// Open checks its pragmas took effect, then applies migrations newer than
// PRAGMA user_version, one transaction each:
//
//	v1  index runs(trace_hash, seq) for hash lookups
//	v2  hash runs recorded with an empty trace_hash
//
// A history written by a newer version is refused.
package store
