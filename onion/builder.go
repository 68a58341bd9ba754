package onion

import (
	"context"
	"fmt"

	"github.com/opd-ai/onionrelay/crypto"
	"github.com/opd-ai/onionrelay/limits"
	"github.com/sirupsen/logrus"
)

// Builder wraps a message in one layer per circuit hop.
// It holds no per-message state and is safe for concurrent use.
type Builder struct {
	scheme  crypto.Scheme
	framing Framing
}

// NewBuilder creates a builder for scheme.
func NewBuilder(scheme crypto.Scheme) *Builder {
	return &Builder{scheme: scheme, framing: FramingFor(scheme)}
}

// Framing returns the layer framing this builder produces.
func (b *Builder) Framing() Framing { return b.framing }

// Build produces the blob to hand to circuit[0]. Layers are built from the
// exit outward: the exit's layer names destination, every other layer names
// the address of the following hop.
//
// The context is checked before each layer; a cancelled build returns the
// context error and nothing is sent anywhere.
func (b *Builder) Build(ctx context.Context, circuit Circuit, destination Address, message []byte) (string, error) {
	if err := limits.ValidatePlaintextMessage(message); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if err := circuit.Validate(); err != nil {
		return "", err
	}
	if _, err := destination.Encode(); err != nil {
		return "", err
	}

	payload := append([]byte(nil), message...)
	for i := len(circuit) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			crypto.ZeroBytes(payload)
			return "", err
		}

		next := destination
		if i < len(circuit)-1 {
			next = circuit[i+1].Address
		}

		layer, err := b.wrapLayer(circuit[i], next, payload)
		crypto.ZeroBytes(payload)
		if err != nil {
			return "", err
		}
		payload = layer
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Builder.Build",
		"scheme":     b.scheme.Name(),
		"entry":      circuit.Entry().ID,
		"hops":       len(circuit),
		"onion_size": len(payload),
	}).Debug("Onion built")

	return string(payload), nil
}

// wrapLayer seals destination || inner for hop under a fresh symmetric key
// and prefixes the key wrapped to the hop's public key.
func (b *Builder) wrapLayer(hop Relay, next Address, inner []byte) ([]byte, error) {
	dest, err := next.Encode()
	if err != nil {
		return nil, err
	}

	key, err := crypto.GenerateSymmetricKey()
	if err != nil {
		return nil, err
	}
	defer key.Wipe()

	plaintext := make([]byte, 0, len(dest)+len(inner))
	plaintext = append(plaintext, dest...)
	plaintext = append(plaintext, inner...)
	defer crypto.ZeroBytes(plaintext)

	sealed, err := b.scheme.Seal(key, plaintext)
	if err != nil {
		return nil, fmt.Errorf("seal layer for relay %d: %w", hop.ID, err)
	}

	wrapped, err := b.scheme.WrapKey(key, hop.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("wrap key for relay %d: %w", hop.ID, err)
	}

	out := make([]byte, 0, crypto.EncodedLen(len(wrapped))+crypto.EncodedLen(len(sealed)))
	out = crypto.AppendText(out, wrapped)
	if len(out) != b.framing.WrappedKeyLen {
		return nil, fmt.Errorf("wrapped key for relay %d encodes to %d characters, framing expects %d",
			hop.ID, len(out), b.framing.WrappedKeyLen)
	}
	return crypto.AppendText(out, sealed), nil
}
