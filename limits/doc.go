// Package limits provides centralized message size constants and validation functions
// for the onion routing protocol.
//
// # Message Size Hierarchy
//
//   - MaxPlaintextMessage (64 KiB): the largest message a sender may wrap.
//
//   - MaxOnionSize (1MB): the largest onion blob a relay will attempt to peel.
//     Larger blobs are rejected before any key unwrapping happens.
//
//   - MaxProcessingBuffer (1MB): the absolute maximum for any operation, applied to
//     HTTP request bodies by the participant servers.
//
// # Validation Functions
//
// Each validation function checks for empty input and size limit violations:
//
//	err := limits.ValidatePlaintextMessage(message)
//	if err != nil {
//	    // Handle validation error (ErrMessageEmpty or ErrMessageTooLarge)
//	}
//
// For custom size limits, use the generic ValidateMessageSize function:
//
//	err := limits.ValidateMessageSize(data, 4096)
package limits
