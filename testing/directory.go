package testing

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/opd-ai/onionrelay/crypto"
	"github.com/opd-ai/onionrelay/onion"
	"github.com/sirupsen/logrus"
)

// SimulatedDirectory is an in-memory relay directory implementing both
// IDirectory and IRegistrar.
type SimulatedDirectory struct {
	scheme     crypto.Scheme
	addressing onion.Addressing
	relays     map[uint32][]byte
	mu         sync.RWMutex
}

// NewSimulatedDirectory creates an empty directory. Registered keys are
// validated with scheme.
func NewSimulatedDirectory(scheme crypto.Scheme, addressing onion.Addressing) *SimulatedDirectory {
	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	return &SimulatedDirectory{
		scheme:     scheme,
		addressing: addressing,
		relays:     make(map[uint32][]byte),
	}
}

// Register implements IRegistrar.Register. Re-registering an id replaces its key.
func (d *SimulatedDirectory) Register(_ context.Context, id uint32, publicKey []byte) error {
	if err := d.scheme.ParsePublicKey(publicKey); err != nil {
		return fmt.Errorf("register relay %d: %w", id, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.relays[id] = append([]byte(nil), publicKey...)

	logrus.WithFields(logrus.Fields{
		"function":     "SimulatedDirectory.Register",
		"node_id":      id,
		"total_relays": len(d.relays),
	}).Debug("Relay registered in simulation")
	return nil
}

// Remove deletes relay id from the directory.
func (d *SimulatedDirectory) Remove(id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.relays, id)
}

// Relays implements IDirectory.Relays. Entries are ordered by id.
func (d *SimulatedDirectory) Relays(ctx context.Context) ([]onion.Relay, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	relays := make([]onion.Relay, 0, len(d.relays))
	for id, key := range d.relays {
		relays = append(relays, onion.Relay{
			ID:        id,
			PublicKey: append([]byte(nil), key...),
			Address:   d.addressing.RelayAddress(id),
		})
	}
	sort.Slice(relays, func(i, j int) bool { return relays[i].ID < relays[j].ID })
	return relays, nil
}
