// Package session implements the file-change tracker: a per-session,
// append-only log of file-edit events plus a derived project-structure
// map, persisted in SQLite.
//
// ARCHITECTURE:
//
// Cross-invocation state:
// The engine runs as one short-lived process per host event, so all
// session state lives in the database, never in process memory. Every
// Record call is one read-modify-write transaction; SQLite's file
// locking (plus busy_timeout) serializes racing invocations for the
// same session, so concurrent tool completions cannot lose updates.
//
// Fail-before-ack:
// Record returns only after the transaction committed. A caller that
// crashes before Record returns was never told the event exists, so
// "no record = no side effect" holds across process boundaries.
//
// Structure inference:
// The count of top-level path segments is maintained incrementally on
// each Record call (O(1) per event), never by rescanning the event log.
// A segment becomes a recognized component once its count reaches the
// configured threshold, or immediately when it is one of the reserved
// conventional layout names.
package session
