// Package circuit selects the relay path for an outgoing message.
//
// A fresh circuit is chosen for every send by shuffling the directory's relay
// list with a Fisher-Yates shuffle and keeping the first onion.CircuitLength
// relays:
//
//	selector := circuit.NewSelector(nil) // crypto/rand source
//	path, err := selector.Select(relays)
//	if errors.Is(err, onion.ErrInsufficientRelays) {
//	    // directory too small
//	}
//
// The randomness is injectable through [RandomSource]. Tests use
// [NewSeededSource] for reproducible paths; production code should keep the
// crypto/rand default because a predictable source weakens path unlinkability.
package circuit
