package crypto

import (
	"bytes"
	"errors"
)

// KeyPair is an asymmetric key pair for one onion scheme. Public is the form
// published in the directory; Private never leaves the relay that owns it.
type KeyPair struct {
	Scheme  string
	Public  []byte
	Private []byte
}

// ErrInvalidKeyPair is returned when a key pair is nil, empty or belongs to
// a different scheme than the one asked to use it.
var ErrInvalidKeyPair = errors.New("invalid key pair")

// Validate checks that the key pair is populated and was produced by scheme.
func (kp *KeyPair) Validate(scheme Scheme) error {
	if kp == nil || len(kp.Public) == 0 || len(kp.Private) == 0 {
		return ErrInvalidKeyPair
	}
	if scheme != nil && kp.Scheme != scheme.Name() {
		return ErrInvalidKeyPair
	}
	return nil
}

// Equal reports whether two key pairs hold the same key material.
func (kp *KeyPair) Equal(other *KeyPair) bool {
	if kp == nil || other == nil {
		return kp == other
	}
	return kp.Scheme == other.Scheme &&
		bytes.Equal(kp.Public, other.Public) &&
		bytes.Equal(kp.Private, other.Private)
}
