package onion

import "github.com/opd-ai/onionrelay/crypto"

// Protocol constants shared by builder and peeler. Changing any of them is a
// wire-incompatible change and requires a new ProtocolVersion.
const (
	// ProtocolVersion identifies the layer framing described by this package.
	ProtocolVersion = 1

	// CircuitLength is the number of relays in every circuit.
	CircuitLength = 3

	// AddressWidth is the width of an encoded DestinationAddress.
	AddressWidth = 10
)

// Framing describes how one layer is split on the wire:
//
//	text(wrappedKey) || text(nonce || seal(destination || innerPayload))
//
// WrappedKeyLen is the encoded length of the wrapped key prefix.
type Framing struct {
	AddressWidth  int
	WrappedKeyLen int
}

// FramingFor derives the layer framing for a scheme.
func FramingFor(scheme crypto.Scheme) Framing {
	return Framing{
		AddressWidth:  AddressWidth,
		WrappedKeyLen: crypto.EncodedLen(scheme.WrappedKeySize()),
	}
}
