// Package services exposes the sale ledger over HTTP and persists its event
// log.
//
// # Transition surface
//
// Every mutating endpoint accepts an identity.Signed envelope; the recovered
// signer is the calling principal used for ownership checks and participant
// keying. Signed bodies carry the target sale id, which must match the URL,
// so a signed request cannot be replayed against a different sale.
//
// Read endpoints (sale snapshots, aggregates, the event log) are unsigned
// and side-effect free.
//
// # Admin surface
//
// When an admin token is configured, the admin routes (full sale records,
// raw event log) sit behind HTTP basic auth.
//
// # Persistence
//
// PostgresStore implements ledger.Journal on PostgreSQL with an append-only
// event table; on startup the daemon loads all events and replays them
// through the registry. InMemoryJournal backs tests and journal-less runs.
package services
