// Package limits provides centralized message size limits for the onion routing protocol.
// This ensures consistent validation across the builder, the peeler and the HTTP surfaces.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxPlaintextMessage is the largest message a sender may wrap (64 KiB).
	// Every layer grows the payload by roughly a third through text encoding, so
	// a three hop onion of this size stays well below MaxProcessingBuffer.
	MaxPlaintextMessage = 64 * 1024

	// MaxOnionSize is the largest onion blob a relay accepts for peeling.
	MaxOnionSize = MaxProcessingBuffer

	// MaxProcessingBuffer is the absolute maximum for any operation, including
	// HTTP request bodies. This prevents memory exhaustion attacks (1MB limit).
	MaxProcessingBuffer = 1024 * 1024
)

var (
	// ErrMessageEmpty indicates an empty message was provided
	ErrMessageEmpty = errors.New("empty message")

	// ErrMessageTooLarge indicates message exceeds maximum size
	ErrMessageTooLarge = errors.New("message too large")
)

// ValidateMessageSize validates a message against the specified maximum size.
// Returns an error with context including the actual and maximum sizes.
func ValidateMessageSize(message []byte, maxSize int) error {
	return validateSize(len(message), maxSize)
}

// ValidatePlaintextMessage validates a message before it is wrapped into an onion.
func ValidatePlaintextMessage(message []byte) error {
	return ValidateMessageSize(message, MaxPlaintextMessage)
}

// ValidateOnion validates a received onion blob before any decryption work.
func ValidateOnion(blob string) error {
	return validateSize(len(blob), MaxOnionSize)
}

func validateSize(size, maxSize int) error {
	if size == 0 {
		return ErrMessageEmpty
	}
	if size > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrMessageTooLarge, size, maxSize)
	}
	return nil
}
