package ledger

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Payload is an opaque byte sequence produced and interpreted entirely by
// the external cryptographic layer. The ledger stores and relays payloads
// without ever decoding them.
type Payload []byte

// NewPayload creates a Payload from a byte slice.
// The input is copied to keep the payload immutable.
func NewPayload(data []byte) Payload {
	p := make([]byte, len(data))
	copy(p, data)
	return Payload(p)
}

// Bytes returns the payload as a byte slice.
func (p Payload) Bytes() []byte {
	return p
}

// IsEmpty reports whether the payload carries no bytes.
func (p Payload) IsEmpty() bool {
	return len(p) == 0
}

// Digest returns the hex-encoded SHA3-256 digest of the payload. Digests
// identify payloads in logs and events without exposing ciphertext length
// games to interpretation; the ledger never looks past this identity.
func (p Payload) Digest() string {
	sum := sha3.Sum256(p)
	return hex.EncodeToString(sum[:])
}
