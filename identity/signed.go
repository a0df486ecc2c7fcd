package identity

import (
	"encoding/json"
	"errors"
)

// Signed wraps a request object with Ed25519 authentication.
// The signature covers the serialized object plus the public key to prevent
// signer substitution.
type Signed[T any] struct {
	PublicKey Principal `json:"public_key"`
	Signature Signature `json:"signature"`
	Object    *T        `json:"object"`
}

// NewSigned creates an authenticated envelope by signing the serialized
// object and public key.
func NewSigned[T any](privkey PrivateKey, obj *T) (*Signed[T], error) {
	pubkey, err := privkey.Principal()
	if err != nil {
		return nil, err
	}

	serializedData, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}

	signature, err := Sign(privkey, append(serializedData, pubkey...))
	if err != nil {
		return nil, err
	}

	return &Signed[T]{
		PublicKey: pubkey,
		Signature: signature,
		Object:    obj,
	}, nil
}

// UnsafeObject returns the wrapped object without verifying the signature.
func (s *Signed[T]) UnsafeObject() *T {
	return s.Object
}

// Recover verifies the signature and returns the authenticated object with
// the signer's principal.
func (s *Signed[T]) Recover() (*T, Principal, error) {
	serializedData, err := json.Marshal(s.Object)
	if err != nil {
		return nil, nil, err
	}

	ok := s.Signature.Verify(s.PublicKey, append(serializedData, s.PublicKey...))
	if !ok {
		return nil, nil, errors.New("signature not valid")
	}

	return s.Object, s.PublicKey, nil
}
