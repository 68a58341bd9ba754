package onion

import (
	"errors"
	"fmt"

	"github.com/opd-ai/onionrelay/crypto"
	"github.com/opd-ai/onionrelay/limits"
	"github.com/sirupsen/logrus"
)

// Layer is the result of peeling one onion layer.
type Layer struct {
	// Destination is the next hop, or the final recipient at the exit.
	Destination Address
	// Payload is the next onion blob, or the delivered message at the exit.
	Payload []byte
}

// Peeler strips one layer with the holder's key pair. Each blob is handled
// independently; there is no circuit session at the relay.
type Peeler struct {
	scheme  crypto.Scheme
	keyPair *crypto.KeyPair
	framing Framing
}

// NewPeeler creates a peeler for the holder of keyPair.
func NewPeeler(scheme crypto.Scheme, keyPair *crypto.KeyPair) *Peeler {
	return &Peeler{scheme: scheme, keyPair: keyPair, framing: FramingFor(scheme)}
}

// Peel splits blob at the wrapped-key boundary, unwraps the layer key,
// decrypts the payload and splits off the destination.
func (p *Peeler) Peel(blob string) (*Layer, error) {
	if err := limits.ValidateOnion(blob); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLayer, err)
	}
	if len(blob) <= p.framing.WrappedKeyLen {
		return nil, fmt.Errorf("%w: %d characters, key prefix alone is %d", ErrMalformedLayer, len(blob), p.framing.WrappedKeyLen)
	}

	wrapped, err := crypto.DecodeText(blob[:p.framing.WrappedKeyLen])
	if err != nil {
		return nil, fmt.Errorf("%w: key prefix: %v", ErrMalformedLayer, err)
	}
	sealed, err := crypto.DecodeText(blob[p.framing.WrappedKeyLen:])
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrMalformedLayer, err)
	}

	key, err := p.scheme.UnwrapKey(wrapped, p.keyPair)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Peeler.Peel",
			"scheme":   p.scheme.Name(),
			"error":    err.Error(),
		}).Debug("Key unwrap failed")
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	defer key.Wipe()

	plaintext, err := p.scheme.Open(key, sealed)
	if err != nil {
		if errors.Is(err, crypto.ErrCiphertextTooShort) {
			return nil, fmt.Errorf("%w: %v", ErrMalformedLayer, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	defer crypto.ZeroBytes(plaintext)

	if len(plaintext) <= p.framing.AddressWidth {
		return nil, fmt.Errorf("%w: layer holds no payload after the destination", ErrMalformedLayer)
	}
	dest, err := DecodeAddress(string(plaintext[:p.framing.AddressWidth]))
	if err != nil {
		return nil, err
	}

	return &Layer{
		Destination: dest,
		Payload:     append([]byte(nil), plaintext[p.framing.AddressWidth:]...),
	}, nil
}
