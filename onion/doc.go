// Package onion implements the layered-encryption circuit protocol: building
// an onion for a three hop circuit and peeling one layer at a time.
//
// # Wire Format
//
// The message handed to a hop is a single text blob:
//
//	text(wrappedKey) || text(nonce || seal(k, destination || innerPayload))
//
// wrappedKey is a fresh per-layer symmetric key k wrapped to the hop's public
// key. Its encoded length is fixed by the scheme ([FramingFor]), which is where
// the peeler splits the blob. destination is a DestinationAddress: exactly
// [AddressWidth] decimal digits, zero-left-padded ([Address.Encode]).
//
// # Building
//
// [Builder.Build] wraps from the exit outward. The exit's layer names the
// final recipient, every other layer names the next relay's address:
//
//	builder := onion.NewBuilder(scheme)
//	blob, err := builder.Build(ctx, circuit, addressing.UserAddress(2), []byte("hello"))
//
// Ciphertext is intentionally non-deterministic: rebuilding the same message
// over the same circuit yields different bytes.
//
// # Peeling
//
// [Peeler.Peel] strips exactly one layer and returns the next destination with
// the remaining payload. At the exit the payload is the delivered message:
//
//	layer, err := onion.NewPeeler(scheme, keyPair).Peel(blob)
//	if errors.Is(err, onion.ErrDecryptionFailed) {
//	    // not our layer, or corrupted; drop it
//	}
//
// # Addressing
//
// [Addressing] derives every participant's [Address] from a role base plus
// its identifier and maps addresses back to roles for forwarding decisions.
//
// # Errors
//
// The protocol error taxonomy ([ErrInvalidMessage], [ErrInsufficientRelays],
// [ErrMalformedLayer], [ErrDecryptionFailed], [ErrForwardingFailed],
// [ErrUnknownSelfAddress]) is defined here and shared by every package.
package onion
