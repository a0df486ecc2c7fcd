package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// Principal identifies a caller of the ledger. Principals are Ed25519 public
// keys; the hex form is used as the canonical map key throughout the system.
type Principal []byte

// NewPrincipalFromBytes creates a Principal from a byte slice.
// The input is copied to keep the principal immutable.
func NewPrincipalFromBytes(data []byte) Principal {
	p := make([]byte, len(data))
	copy(p, data)
	return Principal(p)
}

// NewPrincipalFromString creates a Principal from a hex-encoded string.
func NewPrincipalFromString(data string) (Principal, error) {
	rawBytes, err := hex.DecodeString(data)
	if err != nil {
		return Principal{}, err
	}
	return NewPrincipalFromBytes(rawBytes), nil
}

// Bytes returns the principal as a byte slice.
func (p Principal) Bytes() []byte {
	return p
}

// IsZero reports whether the principal is the null identity.
func (p Principal) IsZero() bool {
	return len(p) == 0
}

// Equal compares two principals for equality.
func (p Principal) Equal(other Principal) bool {
	return subtle.ConstantTimeCompare(p, other) == 1
}

// String returns the hex-encoded form of the principal. This is the
// representation used for map keys, events, and logging.
func (p Principal) String() string {
	return hex.EncodeToString(p)
}

// PrivateKey is an Ed25519 private key used for signing requests.
// Private keys never leave the caller; the ledger only ever sees principals.
type PrivateKey []byte

// NewPrivateKeyFromBytes creates a PrivateKey from a byte slice.
// The input is copied to keep the key immutable.
func NewPrivateKeyFromBytes(data []byte) PrivateKey {
	sk := make([]byte, len(data))
	copy(sk, data)
	return PrivateKey(sk)
}

// Bytes returns the raw private key material. Handle with care.
func (sk PrivateKey) Bytes() []byte {
	return sk
}

// Principal derives the principal corresponding to this private key.
// For Ed25519 the public key is the second half of the private key.
func (sk PrivateKey) Principal() (Principal, error) {
	if len(sk) < ed25519.PrivateKeySize {
		return nil, errors.New("invalid private key size")
	}
	return Principal(sk[32:]), nil
}

// GenerateKeyPair generates a new Ed25519 key pair.
func GenerateKeyPair() (Principal, PrivateKey, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return Principal(publicKey), PrivateKey(privateKey), nil
}

// Signature is an Ed25519 signature over a serialized request.
type Signature []byte

// NewSignature creates a Signature from a byte slice.
// The input is copied to keep the signature immutable.
func NewSignature(data []byte) Signature {
	sig := make([]byte, len(data))
	copy(sig, data)
	return Signature(sig)
}

// Bytes returns the signature as a byte slice.
func (s Signature) Bytes() []byte {
	return s
}

// Verify reports whether the signature over data was produced by the
// private key corresponding to the principal.
func (s Signature) Verify(p Principal, data []byte) bool {
	if len(p) != ed25519.PublicKeySize || len(s) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(p), data, s)
}

// Sign signs data with the private key.
func Sign(sk PrivateKey, data []byte) (Signature, error) {
	if len(sk) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid private key size")
	}
	return Signature(ed25519.Sign(ed25519.PrivateKey(sk), data)), nil
}
