package crypto

import (
	"crypto/rand"
	"fmt"
)

// SymmetricKeySize is the size of a per-layer symmetric key.
const SymmetricKeySize = 32

// SymmetricKey is an ephemeral per-layer key. It is generated fresh for every
// (message, layer) pair and must be wiped once the layer is processed.
type SymmetricKey [SymmetricKeySize]byte

// GenerateSymmetricKey creates a random symmetric key.
func GenerateSymmetricKey() (*SymmetricKey, error) {
	key := new(SymmetricKey)
	if _, err := rand.Read(key[:]); err != nil {
		return nil, fmt.Errorf("failed to generate symmetric key: %w", err)
	}
	return key, nil
}

// ImportSymmetricKey builds a key from its exported raw form.
func ImportSymmetricKey(raw []byte) (*SymmetricKey, error) {
	if len(raw) != SymmetricKeySize {
		return nil, fmt.Errorf("%w: symmetric key is %d bytes, want %d", ErrKeyUnwrap, len(raw), SymmetricKeySize)
	}
	key := new(SymmetricKey)
	copy(key[:], raw)
	return key, nil
}

// Export returns a copy of the raw key bytes. The caller owns the copy and
// should wipe it.
func (k *SymmetricKey) Export() []byte {
	out := make([]byte, SymmetricKeySize)
	copy(out, k[:])
	return out
}

// Wipe zeroes the key.
func (k *SymmetricKey) Wipe() {
	if k == nil {
		return
	}
	ZeroBytes(k[:])
}
