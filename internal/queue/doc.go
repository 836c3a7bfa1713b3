// Package queue provides durable storage for offline form submissions.
//
// Uses SQLite with WAL mode. Each enqueued submission is one row keyed by
// a generated id; ids come from a persisted monotonic counter combined
// with the enqueue timestamp and are never reused.
//
// Reads favor availability over strict durability: rows that fail to scan
// or hold unparseable payloads are dropped from results (and reported via
// ListResult.Degraded) instead of failing the caller. Enqueue is the one
// operation whose failures always propagate, since silently losing a
// user-initiated submission is worse than surfacing the error.
package queue
