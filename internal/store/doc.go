// Package store provides SQLite-backed storage for the asset table that
// translated queries run against, and an append-only log of translations.
//
// # Ordering
//
// Log entries carry a seq value from a logical clock and are always read
// back ORDER BY seq ASC, id COLLATE BINARY ASC. Wall time is never used for
// ordering, so a replayed session reads back identically.
//
// # Content addressing
//
// Each log entry stores the query document as RFC 8785 canonical JSON with
// its fingerprint and the fingerprint of the request text. Both come from
// internal/ir, so equal requests and equal queries share keys.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
