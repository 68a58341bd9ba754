package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	naclKeySize   = 32
	naclNonceSize = 24
)

// naclScheme wraps layer keys with an anonymous NaCl sealed box
// (Curve25519, XSalsa20-Poly1305) and seals payloads with secretbox.
type naclScheme struct{}

// NaCl returns the default onion scheme.
func NaCl() Scheme { return naclScheme{} }

func (naclScheme) Name() string { return SchemeNaCl }

func (naclScheme) GenerateKeyPair() (*KeyPair, error) {
	publicKey, privateKey, err := box.GenerateKey(rand.Reader)
	if err != nil {
		NewLogger("naclScheme.GenerateKeyPair").WithError(err, "keygen", "box.GenerateKey").Error("Key generation failed")
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	kp := &KeyPair{
		Scheme:  SchemeNaCl,
		Public:  append([]byte(nil), publicKey[:]...),
		Private: append([]byte(nil), privateKey[:]...),
	}
	ZeroBytes(privateKey[:])
	return kp, nil
}

func (naclScheme) ParsePublicKey(publicKey []byte) error {
	_, err := naclKey(publicKey, ErrInvalidPublicKey)
	return err
}

func (naclScheme) WrappedKeySize() int {
	return SymmetricKeySize + box.AnonymousOverhead
}

func (naclScheme) WrapKey(key *SymmetricKey, publicKey []byte) ([]byte, error) {
	recipient, err := naclKey(publicKey, ErrInvalidPublicKey)
	if err != nil {
		return nil, err
	}
	return box.SealAnonymous(nil, key[:], recipient, rand.Reader)
}

func (s naclScheme) UnwrapKey(wrapped []byte, keyPair *KeyPair) (*SymmetricKey, error) {
	if err := keyPair.Validate(s); err != nil {
		return nil, err
	}
	publicKey, err := naclKey(keyPair.Public, ErrInvalidPublicKey)
	if err != nil {
		return nil, err
	}
	privateKey, err := naclKey(keyPair.Private, ErrInvalidPrivateKey)
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(privateKey[:])

	raw, ok := box.OpenAnonymous(nil, wrapped, publicKey, privateKey)
	if !ok {
		return nil, ErrKeyUnwrap
	}
	defer ZeroBytes(raw)
	return ImportSymmetricKey(raw)
}

func (naclScheme) Seal(key *SymmetricKey, plaintext []byte) ([]byte, error) {
	var nonce [naclNonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	k := [naclKeySize]byte(*key)
	defer ZeroBytes(k[:])
	return secretbox.Seal(nonce[:], plaintext, &nonce, &k), nil
}

func (naclScheme) Open(key *SymmetricKey, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < naclNonceSize+secretbox.Overhead {
		return nil, ErrCiphertextTooShort
	}
	var nonce [naclNonceSize]byte
	copy(nonce[:], ciphertext[:naclNonceSize])
	k := [naclKeySize]byte(*key)
	defer ZeroBytes(k[:])

	plaintext, ok := secretbox.Open(nil, ciphertext[naclNonceSize:], &nonce, &k)
	if !ok {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

func naclKey(raw []byte, kind error) (*[naclKeySize]byte, error) {
	if len(raw) != naclKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", kind, len(raw), naclKeySize)
	}
	if isZeroKey(raw) {
		return nil, fmt.Errorf("%w: all zeros", kind)
	}
	key := new([naclKeySize]byte)
	copy(key[:], raw)
	return key, nil
}

// isZeroKey checks if a key consists of all zeros.
func isZeroKey(key []byte) bool {
	for _, b := range key {
		if b != 0 {
			return false
		}
	}
	return true
}
