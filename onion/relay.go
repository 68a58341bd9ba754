package onion

import "fmt"

// Relay is a directory entry for one onion relay. It is a read-only snapshot
// for the lifetime of one circuit use and safe to share between goroutines.
type Relay struct {
	ID        uint32
	PublicKey []byte
	Address   Address
}

// Circuit is an ordered path of relays: Circuit[0] is the entry, the last
// element is the exit.
type Circuit []Relay

// IDs returns the relay identifiers in path order.
func (c Circuit) IDs() []uint32 {
	ids := make([]uint32, len(c))
	for i, r := range c {
		ids[i] = r.ID
	}
	return ids
}

// Entry returns the first hop.
func (c Circuit) Entry() Relay { return c[0] }

// Exit returns the last hop.
func (c Circuit) Exit() Relay { return c[len(c)-1] }

// Validate checks the circuit has exactly CircuitLength distinct relays, each
// with a public key.
func (c Circuit) Validate() error {
	if len(c) != CircuitLength {
		return fmt.Errorf("%w: %d hops, want %d", ErrInvalidCircuit, len(c), CircuitLength)
	}
	seen := make(map[uint32]struct{}, len(c))
	for _, r := range c {
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: relay %d appears twice", ErrInvalidCircuit, r.ID)
		}
		seen[r.ID] = struct{}{}
		if len(r.PublicKey) == 0 {
			return fmt.Errorf("%w: relay %d has no public key", ErrInvalidCircuit, r.ID)
		}
	}
	return nil
}
