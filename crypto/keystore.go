package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2Iterations is the number of iterations for key derivation (NIST recommendation)
	PBKDF2Iterations = 100000
	// EncryptionVersion is the current record format version
	EncryptionVersion = 1
	// SaltSize is the size of the salt for PBKDF2
	SaltSize = 32

	metaBucket = "meta"
	keysBucket = "keys"
	saltKey    = "salt"

	// lockTimeout bounds the wait for another process holding the database.
	lockTimeout = 5 * time.Second
)

var (
	// ErrKeyNotFound is returned by Get when no key pair is stored under a name.
	ErrKeyNotFound = errors.New("key not found")

	// ErrEmptyPassphrase is returned when a key store is opened without a passphrase.
	ErrEmptyPassphrase = errors.New("passphrase cannot be empty")

	// ErrKeyStoreClosed is returned by operations on a closed key store.
	ErrKeyStoreClosed = errors.New("key store closed")
)

// keyRecord is the CBOR form of a stored key pair. The private key is sealed
// with AES-256-GCM under the passphrase-derived key.
type keyRecord struct {
	Version       uint16 `cbor:"1,keyasint"`
	Scheme        string `cbor:"2,keyasint"`
	Public        []byte `cbor:"3,keyasint"`
	Nonce         []byte `cbor:"4,keyasint"`
	SealedPrivate []byte `cbor:"5,keyasint"`
	CreatedAt     int64  `cbor:"6,keyasint"`
}

// KeyStore persists relay key pairs in a bbolt database with the private
// halves encrypted at rest. A relay that restarts with the same store keeps
// the public key already published in the directory.
//
// The database file is locked only for the duration of each operation, so
// several relay processes can share one store.
type KeyStore struct {
	path string

	mu            sync.Mutex
	encryptionKey [32]byte
	closed        bool
}

// OpenKeyStore opens or creates the key store at path. The passphrase is
// stretched with PBKDF2 and wiped before returning.
func OpenKeyStore(path string, passphrase []byte) (*KeyStore, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}
	defer SecureWipe(passphrase)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create key store directory: %w", err)
	}

	var salt []byte
	err := withDB(path, func(db *bolt.DB) error {
		var err error
		salt, err = loadOrGenerateSalt(db)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize salt: %w", err)
	}

	ks := &KeyStore{path: path}
	derivedKey := pbkdf2.Key(passphrase, salt, PBKDF2Iterations, 32, sha256.New)
	copy(ks.encryptionKey[:], derivedKey)
	SecureWipe(derivedKey)

	NewLogger("OpenKeyStore").WithField("path", path).Debug("Key store opened")
	return ks, nil
}

// withDB opens the database at path, runs fn and closes it again.
func withDB(path string, fn func(db *bolt.DB) error) error {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: lockTimeout})
	if err != nil {
		return fmt.Errorf("failed to open key store: %w", err)
	}
	if err := fn(db); err != nil {
		db.Close()
		return err
	}
	return db.Close()
}

// loadOrGenerateSalt loads the store salt or creates it on first open.
func loadOrGenerateSalt(db *bolt.DB) ([]byte, error) {
	salt := make([]byte, SaltSize)
	err := db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(keysBucket)); err != nil {
			return err
		}

		if existing := meta.Get([]byte(saltKey)); existing != nil {
			if len(existing) != SaltSize {
				return fmt.Errorf("invalid salt size: got %d, want %d", len(existing), SaltSize)
			}
			copy(salt, existing)
			return nil
		}

		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
		return meta.Put([]byte(saltKey), salt)
	})
	if err != nil {
		return nil, err
	}
	return salt, nil
}

// Put stores a key pair under name, replacing any previous entry.
func (ks *KeyStore) Put(name string, kp *KeyPair) error {
	if err := kp.Validate(nil); err != nil {
		return err
	}

	aead, err := ks.aead()
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	record := keyRecord{
		Version:       EncryptionVersion,
		Scheme:        kp.Scheme,
		Public:        kp.Public,
		Nonce:         nonce,
		SealedPrivate: aead.Seal(nil, nonce, kp.Private, []byte(name)),
		CreatedAt:     time.Now().Unix(),
	}
	encoded, err := cbor.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode key record: %w", err)
	}

	return withDB(ks.path, func(db *bolt.DB) error {
		return db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket([]byte(keysBucket)).Put([]byte(name), encoded)
		})
	})
}

// Get loads and decrypts the key pair stored under name.
func (ks *KeyStore) Get(name string) (*KeyPair, error) {
	var encoded []byte
	err := withDB(ks.path, func(db *bolt.DB) error {
		return db.View(func(tx *bolt.Tx) error {
			if v := tx.Bucket([]byte(keysBucket)).Get([]byte(name)); v != nil {
				encoded = append([]byte(nil), v...)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if encoded == nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	}

	var record keyRecord
	if err := cbor.Unmarshal(encoded, &record); err != nil {
		return nil, fmt.Errorf("failed to decode key record: %w", err)
	}
	if record.Version != EncryptionVersion {
		return nil, fmt.Errorf("unsupported encryption version: %d (expected %d)", record.Version, EncryptionVersion)
	}

	aead, err := ks.aead()
	if err != nil {
		return nil, err
	}
	private, err := aead.Open(nil, record.Nonce, record.SealedPrivate, []byte(name))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key %s: %w", name, ErrAuthentication)
	}

	return &KeyPair{Scheme: record.Scheme, Public: record.Public, Private: private}, nil
}

// LoadOrGenerate returns the key pair stored under name, generating and
// storing a new one with scheme when none exists. A stored pair from another
// scheme is replaced. The boolean reports whether a new pair was generated.
func (ks *KeyStore) LoadOrGenerate(name string, scheme Scheme) (*KeyPair, bool, error) {
	kp, err := ks.Get(name)
	switch {
	case err == nil && kp.Scheme == scheme.Name():
		return kp, false, nil
	case err == nil:
		NewLogger("KeyStore.LoadOrGenerate").
			WithField("name", name).
			WithField("stored_scheme", kp.Scheme).
			WithField("scheme", scheme.Name()).
			Warn("Stored key uses a different scheme, replacing it")
		WipeKeyPair(kp)
	case !errors.Is(err, ErrKeyNotFound):
		return nil, false, err
	}

	kp, err = scheme.GenerateKeyPair()
	if err != nil {
		return nil, false, err
	}
	if err := ks.Put(name, kp); err != nil {
		return nil, false, err
	}
	return kp, true, nil
}

// Close wipes the derived key. The store cannot be used afterwards.
func (ks *KeyStore) Close() error {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ZeroBytes(ks.encryptionKey[:])
	ks.closed = true
	return nil
}

func (ks *KeyStore) aead() (cipher.AEAD, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.closed {
		return nil, ErrKeyStoreClosed
	}
	block, err := aes.NewCipher(ks.encryptionKey[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
