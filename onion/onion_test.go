package onion

import (
	"context"
	"strings"
	"testing"

	"github.com/opd-ai/onionrelay/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hop struct {
	relay   Relay
	keyPair *crypto.KeyPair
}

func newHops(t *testing.T, scheme crypto.Scheme, ids ...uint32) ([]hop, Circuit) {
	t.Helper()
	addressing := DefaultAddressing()
	hops := make([]hop, len(ids))
	circuit := make(Circuit, len(ids))
	for i, id := range ids {
		kp, err := scheme.GenerateKeyPair()
		require.NoError(t, err)
		hops[i] = hop{
			relay:   Relay{ID: id, PublicKey: kp.Public, Address: addressing.RelayAddress(id)},
			keyPair: kp,
		}
		circuit[i] = hops[i].relay
	}
	return hops, circuit
}

func TestBuildPeelRoundTrip(t *testing.T) {
	for _, name := range crypto.SchemeNames() {
		scheme, err := crypto.SchemeByName(name)
		require.NoError(t, err)

		t.Run(name, func(t *testing.T) {
			hops, circuit := newHops(t, scheme, 4, 1, 7)
			destination := DefaultAddressing().UserAddress(2)
			message := []byte("hello")

			blob, err := NewBuilder(scheme).Build(context.Background(), circuit, destination, message)
			require.NoError(t, err)

			// A peels: next hop is B.
			layer, err := NewPeeler(scheme, hops[0].keyPair).Peel(blob)
			require.NoError(t, err)
			assert.Equal(t, hops[1].relay.Address, layer.Destination)

			// B peels: next hop is C.
			layer, err = NewPeeler(scheme, hops[1].keyPair).Peel(string(layer.Payload))
			require.NoError(t, err)
			assert.Equal(t, hops[2].relay.Address, layer.Destination)

			// C peels: destination is the user and the payload is the message.
			layer, err = NewPeeler(scheme, hops[2].keyPair).Peel(string(layer.Payload))
			require.NoError(t, err)
			assert.Equal(t, destination, layer.Destination)
			assert.Equal(t, message, layer.Payload)
		})
	}
}

func TestLayersShrinkAsTheyArePeeled(t *testing.T) {
	scheme := crypto.NaCl()
	hops, circuit := newHops(t, scheme, 1, 2, 3)

	blob, err := NewBuilder(scheme).Build(context.Background(), circuit, 3000, []byte("hello"))
	require.NoError(t, err)

	sizes := []int{len(blob)}
	payload := blob
	for _, h := range hops {
		layer, err := NewPeeler(scheme, h.keyPair).Peel(payload)
		require.NoError(t, err)
		payload = string(layer.Payload)
		sizes = append(sizes, len(payload))
	}
	for i := 1; i < len(sizes); i++ {
		assert.Less(t, sizes[i], sizes[i-1])
	}
	assert.Equal(t, "hello", payload)
}

func TestBuildIsNonDeterministic(t *testing.T) {
	scheme := crypto.NaCl()
	hops, circuit := newHops(t, scheme, 1, 2, 3)
	builder := NewBuilder(scheme)

	first, err := builder.Build(context.Background(), circuit, 3001, []byte("same message"))
	require.NoError(t, err)
	second, err := builder.Build(context.Background(), circuit, 3001, []byte("same message"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	for _, blob := range []string{first, second} {
		payload := blob
		for _, h := range hops {
			layer, err := NewPeeler(scheme, h.keyPair).Peel(payload)
			require.NoError(t, err)
			payload = string(layer.Payload)
		}
		assert.Equal(t, "same message", payload)
	}
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	scheme := crypto.NaCl()
	_, circuit := newHops(t, scheme, 1, 2, 3)
	builder := NewBuilder(scheme)
	ctx := context.Background()

	_, err := builder.Build(ctx, circuit, 3000, nil)
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = builder.Build(ctx, circuit, 3000, []byte{})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = builder.Build(ctx, circuit, 3000, make([]byte, 64*1024+1))
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = builder.Build(ctx, circuit[:2], 3000, []byte("hi"))
	assert.ErrorIs(t, err, ErrInvalidCircuit)

	dup := Circuit{circuit[0], circuit[1], circuit[0]}
	_, err = builder.Build(ctx, dup, 3000, []byte("hi"))
	assert.ErrorIs(t, err, ErrInvalidCircuit)

	_, err = builder.Build(ctx, circuit, MaxAddress+1, []byte("hi"))
	assert.ErrorIs(t, err, ErrAddressOutOfRange)

	bad := Circuit{circuit[0], circuit[1], {ID: 9, PublicKey: []byte("short"), Address: 4009}}
	_, err = builder.Build(ctx, bad, 3000, []byte("hi"))
	assert.ErrorIs(t, err, crypto.ErrInvalidPublicKey)
}

func TestBuildHonoursCancellation(t *testing.T) {
	scheme := crypto.NaCl()
	_, circuit := newHops(t, scheme, 1, 2, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blob, err := NewBuilder(scheme).Build(ctx, circuit, 3000, []byte("hello"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, blob)
}

func TestBuildDoesNotMutateMessage(t *testing.T) {
	scheme := crypto.NaCl()
	_, circuit := newHops(t, scheme, 1, 2, 3)
	message := []byte("keep me")

	_, err := NewBuilder(scheme).Build(context.Background(), circuit, 3000, message)
	require.NoError(t, err)
	assert.Equal(t, []byte("keep me"), message)
}

func TestPeelErrors(t *testing.T) {
	scheme := crypto.NaCl()
	hops, circuit := newHops(t, scheme, 1, 2, 3)
	framing := FramingFor(scheme)

	blob, err := NewBuilder(scheme).Build(context.Background(), circuit, 3000, []byte("hello"))
	require.NoError(t, err)

	entry := NewPeeler(scheme, hops[0].keyPair)
	tests := []struct {
		name    string
		blob    string
		peeler  *Peeler
		wantErr error
	}{
		{"empty", "", entry, ErrMalformedLayer},
		{"key prefix only", blob[:framing.WrappedKeyLen], entry, ErrMalformedLayer},
		{"undersized", "short", entry, ErrMalformedLayer},
		{"not text encoded", strings.Repeat("!", framing.WrappedKeyLen+8), entry, ErrMalformedLayer},
		{"wrong relay key", blob, NewPeeler(scheme, hops[1].keyPair), ErrDecryptionFailed},
		{"tampered payload", blob[:len(blob)-8] + flipChar(blob[len(blob)-8]) + blob[len(blob)-7:], entry, ErrDecryptionFailed},
		{"truncated payload", blob[:framing.WrappedKeyLen+4], entry, ErrMalformedLayer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layer, err := tt.peeler.Peel(tt.blob)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, layer)
		})
	}
}

func TestPeelOutOfOrderFails(t *testing.T) {
	scheme := crypto.NaCl()
	hops, circuit := newHops(t, scheme, 1, 2, 3)

	blob, err := NewBuilder(scheme).Build(context.Background(), circuit, 3000, []byte("hello"))
	require.NoError(t, err)

	_, err = NewPeeler(scheme, hops[2].keyPair).Peel(blob)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestPeelRejectsForeignScheme(t *testing.T) {
	hops, circuit := newHops(t, crypto.NaCl(), 1, 2, 3)
	blob, err := NewBuilder(crypto.NaCl()).Build(context.Background(), circuit, 3000, []byte("hello"))
	require.NoError(t, err)

	_, err = NewPeeler(crypto.RSA(), hops[0].keyPair).Peel(blob)
	assert.Error(t, err)
}

func TestFramingForSchemes(t *testing.T) {
	assert.Equal(t, Framing{AddressWidth: 10, WrappedKeyLen: 108}, FramingFor(crypto.NaCl()))
	assert.Equal(t, Framing{AddressWidth: 10, WrappedKeyLen: 344}, FramingFor(crypto.RSA()))
	assert.Equal(t, FramingFor(crypto.NaCl()), NewBuilder(crypto.NaCl()).Framing())
}

func TestCircuitHelpers(t *testing.T) {
	_, circuit := newHops(t, crypto.NaCl(), 5, 3, 8)
	assert.Equal(t, []uint32{5, 3, 8}, circuit.IDs())
	assert.Equal(t, uint32(5), circuit.Entry().ID)
	assert.Equal(t, uint32(8), circuit.Exit().ID)
	assert.NoError(t, circuit.Validate())
}

// flipChar swaps one base64 character for another valid one.
func flipChar(c byte) string {
	if c == 'A' {
		return "B"
	}
	return "A"
}
