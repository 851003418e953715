// Package storage persists the poller's per-stream cursors.
//
// Drivers:
//   - "file": a small JSON document rewritten atomically (default)
//   - "sqlite": a single-row table in a local SQLite file
//   - "redis": a hash in Redis, for hosts without a writable disk
package storage
