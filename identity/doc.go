// Package identity provides the principal and signature types used to
// authenticate callers of the launchpad ledger.
//
// Principals are Ed25519 public keys. The ledger itself never performs
// cryptographic operations on sale payloads; signatures exist solely so the
// HTTP transition surface can establish which principal is calling
// (sale ownership checks, participant keying).
//
// The Signed envelope wraps a request object together with the signer's
// public key and signature. Recover verifies the signature and yields the
// calling principal.
package identity
