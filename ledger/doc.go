// Package ledger implements the confidential IDO sale registry: a
// process-wide authoritative store of time-boxed Sale records and
// per-(sale, participant) Position records, exposed through a small
// transition API.
//
// # State machines
//
// Per sale:
//
//	Created(active) → {Paused/Resumed}* → Ended(time >= end) → Finalized(terminal)
//
// Per position:
//
//	NonExistent → Contributing(repeatable) → [after sale finalize] → Claimable → Claimed(terminal)
//
// Contribution, summary and allocation data are opaque byte payloads produced
// and interpreted by an external cryptographic layer. The registry stores
// them, digests them for event identity, and re-emits them. It never
// decrypts, sums, or validates them.
//
// # Serialized transitions
//
// Every transition runs to completion under a single registry lock against a
// globally consistent snapshot. A failed call leaves all state unchanged.
// Every successful mutating call emits exactly one typed Event carrying the
// literal arguments, appended to an in-process log and, when a Journal is
// configured, persisted before the state mutation is applied. The registry
// can be rebuilt from its event log via Replay.
package ledger
