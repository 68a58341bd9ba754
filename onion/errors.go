package onion

import "errors"

// Error taxonomy of the circuit protocol. Callers match with errors.Is.
var (
	// ErrInvalidMessage is returned when a message is empty, missing or too large
	// to send. It is detected before any cryptographic or network work.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInsufficientRelays is returned when the directory lists fewer distinct
	// relays than CircuitLength.
	ErrInsufficientRelays = errors.New("insufficient relays")

	// ErrInvalidCircuit is returned when a circuit is not CircuitLength distinct relays.
	ErrInvalidCircuit = errors.New("invalid circuit")

	// ErrMalformedLayer is returned when a blob cannot be split into a valid layer.
	ErrMalformedLayer = errors.New("malformed layer")

	// ErrDecryptionFailed is returned when the wrapped key or the payload
	// cannot be decrypted with the holder's key.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrForwardingFailed is returned when a layer cannot be handed to the next hop.
	ErrForwardingFailed = errors.New("forwarding failed")

	// ErrUnknownSelfAddress is returned when a decoded destination does not
	// map to any participant that can accept it.
	ErrUnknownSelfAddress = errors.New("unknown self address")

	// ErrAddressOutOfRange is returned when an address does not fit AddressWidth digits.
	ErrAddressOutOfRange = errors.New("address out of range")
)
