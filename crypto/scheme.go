package crypto

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Scheme names.
const (
	SchemeNaCl = "nacl"
	SchemeRSA  = "rsa"
)

// DefaultScheme is used when configuration does not name one.
const DefaultScheme = SchemeNaCl

var (
	// ErrUnknownScheme is returned by SchemeByName for unregistered names.
	ErrUnknownScheme = errors.New("unknown scheme")

	// ErrInvalidPublicKey is returned when a public key cannot be parsed.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidPrivateKey is returned when a private key cannot be parsed.
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrKeyUnwrap is returned when a wrapped symmetric key cannot be recovered.
	ErrKeyUnwrap = errors.New("key unwrap failed")

	// ErrAuthentication is returned when a ciphertext fails authentication.
	ErrAuthentication = errors.New("message authentication failed")

	// ErrCiphertextTooShort is returned when a ciphertext cannot hold a nonce and tag.
	ErrCiphertextTooShort = errors.New("ciphertext too short")
)

// Scheme is the hybrid encryption suite used to build and peel onion layers.
// A symmetric key is wrapped to a relay's public key, and the layer payload is
// sealed under that symmetric key.
//
// WrappedKeySize must be constant for a scheme: the peeler splits each layer at
// the encoded length of the wrapped key.
type Scheme interface {
	// Name identifies the scheme in configuration and key stores.
	Name() string

	// GenerateKeyPair creates a fresh relay key pair.
	GenerateKeyPair() (*KeyPair, error)

	// ParsePublicKey validates a public key as published in the directory.
	ParsePublicKey(publicKey []byte) error

	// WrappedKeySize is the raw length of a wrapped symmetric key.
	WrappedKeySize() int

	// WrapKey encrypts the exported symmetric key to publicKey.
	WrapKey(key *SymmetricKey, publicKey []byte) ([]byte, error)

	// UnwrapKey recovers a symmetric key with the relay's key pair.
	UnwrapKey(wrapped []byte, keyPair *KeyPair) (*SymmetricKey, error)

	// Seal encrypts plaintext under key. Output is nonce || ciphertext.
	Seal(key *SymmetricKey, plaintext []byte) ([]byte, error)

	// Open reverses Seal.
	Open(key *SymmetricKey, ciphertext []byte) ([]byte, error)
}

var (
	schemesMu sync.RWMutex
	schemes   = map[string]Scheme{}
)

// RegisterScheme makes a scheme available to SchemeByName.
func RegisterScheme(s Scheme) {
	schemesMu.Lock()
	defer schemesMu.Unlock()
	schemes[s.Name()] = s
}

// SchemeByName returns the registered scheme with the given name.
func SchemeByName(name string) (Scheme, error) {
	schemesMu.RLock()
	defer schemesMu.RUnlock()
	s, ok := schemes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
	return s, nil
}

// SchemeNames lists the registered scheme names in sorted order.
func SchemeNames() []string {
	schemesMu.RLock()
	defer schemesMu.RUnlock()
	names := make([]string, 0, len(schemes))
	for name := range schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterScheme(NaCl())
	RegisterScheme(RSA())
}
