package circuit

import (
	"fmt"

	"github.com/opd-ai/onionrelay/onion"
	"github.com/sirupsen/logrus"
)

// Selector picks circuits from the directory's relay list so that every
// ordered choice of onion.CircuitLength distinct relays is equally likely.
type Selector struct {
	source RandomSource
	length int
}

// NewSelector creates a selector drawing from source. A nil source selects
// NewCryptoSource.
func NewSelector(source RandomSource) *Selector {
	if source == nil {
		source = NewCryptoSource()
	}
	return &Selector{source: source, length: onion.CircuitLength}
}

// Select shuffles a copy of relays and returns the first onion.CircuitLength
// entries as the circuit. Relays listed more than once are considered once.
// The caller's slice is not modified.
func (s *Selector) Select(relays []onion.Relay) (onion.Circuit, error) {
	candidates := distinct(relays)
	if len(candidates) < s.length {
		logrus.WithFields(logrus.Fields{
			"function":  "Selector.Select",
			"available": len(candidates),
			"required":  s.length,
		}).Warn("Not enough relays for a circuit")
		return nil, fmt.Errorf("%w: %d distinct relays, need %d", onion.ErrInsufficientRelays, len(candidates), s.length)
	}

	Shuffle(candidates, s.source)

	circuit := make(onion.Circuit, s.length)
	copy(circuit, candidates[:s.length])
	return circuit, nil
}

// Shuffle performs an in-place Fisher-Yates shuffle: for i from the last
// index down to 1, swap element i with a uniform index in [0, i].
func Shuffle(relays []onion.Relay, source RandomSource) {
	for i := len(relays) - 1; i > 0; i-- {
		j := source.Intn(i + 1)
		relays[i], relays[j] = relays[j], relays[i]
	}
}

// distinct copies relays, keeping the first entry for each ID.
func distinct(relays []onion.Relay) []onion.Relay {
	out := make([]onion.Relay, 0, len(relays))
	seen := make(map[uint32]struct{}, len(relays))
	for _, r := range relays {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}
