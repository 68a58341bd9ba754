package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allSchemes(t *testing.T) []Scheme {
	t.Helper()
	var out []Scheme
	for _, name := range SchemeNames() {
		s, err := SchemeByName(name)
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func TestSchemeByName(t *testing.T) {
	s, err := SchemeByName(SchemeNaCl)
	require.NoError(t, err)
	assert.Equal(t, SchemeNaCl, s.Name())

	s, err = SchemeByName(SchemeRSA)
	require.NoError(t, err)
	assert.Equal(t, SchemeRSA, s.Name())

	_, err = SchemeByName("rot13")
	assert.ErrorIs(t, err, ErrUnknownScheme)

	assert.Equal(t, []string{SchemeNaCl, SchemeRSA}, SchemeNames())
}

func TestSchemeKeyWrapRoundTrip(t *testing.T) {
	for _, s := range allSchemes(t) {
		t.Run(s.Name(), func(t *testing.T) {
			kp, err := s.GenerateKeyPair()
			require.NoError(t, err)
			require.NoError(t, s.ParsePublicKey(kp.Public))

			key, err := GenerateSymmetricKey()
			require.NoError(t, err)

			wrapped, err := s.WrapKey(key, kp.Public)
			require.NoError(t, err)
			assert.Len(t, wrapped, s.WrappedKeySize())

			unwrapped, err := s.UnwrapKey(wrapped, kp)
			require.NoError(t, err)
			assert.Equal(t, *key, *unwrapped)
		})
	}
}

func TestSchemeUnwrapWithWrongKeyFails(t *testing.T) {
	for _, s := range allSchemes(t) {
		t.Run(s.Name(), func(t *testing.T) {
			right, err := s.GenerateKeyPair()
			require.NoError(t, err)
			wrong, err := s.GenerateKeyPair()
			require.NoError(t, err)

			key, err := GenerateSymmetricKey()
			require.NoError(t, err)
			wrapped, err := s.WrapKey(key, right.Public)
			require.NoError(t, err)

			_, err = s.UnwrapKey(wrapped, wrong)
			assert.ErrorIs(t, err, ErrKeyUnwrap)
		})
	}
}

func TestSchemeSealOpen(t *testing.T) {
	plaintext := []byte("0000004002the inner layer")
	for _, s := range allSchemes(t) {
		t.Run(s.Name(), func(t *testing.T) {
			key, err := GenerateSymmetricKey()
			require.NoError(t, err)

			sealed, err := s.Seal(key, plaintext)
			require.NoError(t, err)
			assert.False(t, bytes.Contains(sealed, plaintext), "ciphertext leaks plaintext")

			again, err := s.Seal(key, plaintext)
			require.NoError(t, err)
			assert.NotEqual(t, sealed, again, "nonce must be fresh per seal")

			opened, err := s.Open(key, sealed)
			require.NoError(t, err)
			assert.Equal(t, plaintext, opened)

			sealed[len(sealed)-1] ^= 0x01
			_, err = s.Open(key, sealed)
			assert.ErrorIs(t, err, ErrAuthentication)

			_, err = s.Open(key, sealed[:4])
			assert.ErrorIs(t, err, ErrCiphertextTooShort)
		})
	}
}

func TestSchemeRejectsBadPublicKeys(t *testing.T) {
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)

	tests := []struct {
		scheme Scheme
		key    []byte
	}{
		{NaCl(), nil},
		{NaCl(), make([]byte, 31)},
		{NaCl(), make([]byte, 32)},
		{RSA(), []byte("not der")},
	}
	for _, tt := range tests {
		err := tt.scheme.ParsePublicKey(tt.key)
		assert.ErrorIs(t, err, ErrInvalidPublicKey, "%s %x", tt.scheme.Name(), tt.key)

		_, err = tt.scheme.WrapKey(key, tt.key)
		assert.ErrorIs(t, err, ErrInvalidPublicKey)
	}
}

func TestUnwrapRejectsForeignKeyPair(t *testing.T) {
	kp, err := NaCl().GenerateKeyPair()
	require.NoError(t, err)

	_, err = RSA().UnwrapKey(make([]byte, RSA().WrappedKeySize()), kp)
	assert.True(t, errors.Is(err, ErrInvalidKeyPair))
}

func TestSymmetricKeyExportImport(t *testing.T) {
	key, err := GenerateSymmetricKey()
	require.NoError(t, err)

	raw := key.Export()
	imported, err := ImportSymmetricKey(raw)
	require.NoError(t, err)
	assert.Equal(t, *key, *imported)

	key.Wipe()
	assert.Equal(t, SymmetricKey{}, *key)
	assert.NotEqual(t, SymmetricKey{}, *imported, "wiping one key must not affect its copy")

	_, err = ImportSymmetricKey(raw[:16])
	assert.Error(t, err)
}

func TestEncodedLenIsFixedPerScheme(t *testing.T) {
	assert.Equal(t, 108, EncodedLen(NaCl().WrappedKeySize()))
	assert.Equal(t, 344, EncodedLen(RSA().WrappedKeySize()))

	raw := []byte{0xde, 0xad, 0xbe, 0xef}
	decoded, err := DecodeText(EncodeText(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
	assert.Equal(t, "prefix3q2+7w==", string(AppendText([]byte("prefix"), raw)))
}
