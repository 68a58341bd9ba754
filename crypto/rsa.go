package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"io"
)

// RSAKeyBits is the modulus size of relay keys under the rsa scheme. The
// wrapped key length, and therefore the layer framing, depends on it.
const RSAKeyBits = 2048

// rsaScheme wraps layer keys with RSA-OAEP (SHA-256) and seals payloads with
// AES-256-GCM. Public keys are PKIX DER, private keys PKCS#8 DER.
type rsaScheme struct{}

// RSA returns the RSA-OAEP + AES-GCM onion scheme.
func RSA() Scheme { return rsaScheme{} }

func (rsaScheme) Name() string { return SchemeRSA }

func (rsaScheme) GenerateKeyPair() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, RSAKeyBits)
	if err != nil {
		NewLogger("rsaScheme.GenerateKeyPair").WithError(err, "keygen", "rsa.GenerateKey").Error("Key generation failed")
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	public, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	private, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	return &KeyPair{Scheme: SchemeRSA, Public: public, Private: private}, nil
}

func (rsaScheme) ParsePublicKey(publicKey []byte) error {
	_, err := parseRSAPublicKey(publicKey)
	return err
}

func (rsaScheme) WrappedKeySize() int {
	return RSAKeyBits / 8
}

func (rsaScheme) WrapKey(key *SymmetricKey, publicKey []byte) ([]byte, error) {
	pub, err := parseRSAPublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	raw := key.Export()
	defer ZeroBytes(raw)
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, raw, nil)
}

func (s rsaScheme) UnwrapKey(wrapped []byte, keyPair *KeyPair) (*SymmetricKey, error) {
	if err := keyPair.Validate(s); err != nil {
		return nil, err
	}
	parsed, err := x509.ParsePKCS8PrivateKey(keyPair.Private)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidPrivateKey)
	}
	raw, err := rsa.DecryptOAEP(sha256.New(), nil, priv, wrapped, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnwrap, err)
	}
	defer ZeroBytes(raw)
	return ImportSymmetricKey(raw)
}

func (rsaScheme) Seal(key *SymmetricKey, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (rsaScheme) Open(key *SymmetricKey, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

func newGCM(key *SymmetricKey) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

func parseRSAPublicKey(der []byte) (*rsa.PublicKey, error) {
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidPublicKey)
	}
	if pub.Size() != RSAKeyBits/8 {
		return nil, fmt.Errorf("%w: modulus is %d bits, want %d", ErrInvalidPublicKey, pub.Size()*8, RSAKeyBits)
	}
	return pub, nil
}
