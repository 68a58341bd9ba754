package node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opd-ai/onionrelay/crypto"
	"github.com/opd-ai/onionrelay/interfaces"
	"github.com/opd-ai/onionrelay/limits"
	"github.com/opd-ai/onionrelay/onion"
	"github.com/sirupsen/logrus"
)

// DefaultForwardTimeout bounds a relay's hand-off to the next hop.
const DefaultForwardTimeout = 5 * time.Second

// RelayConfig configures a relay participant.
type RelayConfig struct {
	ID         uint32
	Scheme     crypto.Scheme
	Addressing onion.Addressing
	Forwarder  interfaces.IForwarder
	// Registrar publishes the relay's key. It may be nil when the relay is
	// entered into the directory some other way.
	Registrar interfaces.IRegistrar
	// KeyPair is the relay's long-term key pair. Nil generates a fresh one.
	KeyPair *crypto.KeyPair
	// ForwardTimeout bounds each hand-off. Zero uses DefaultForwardTimeout.
	ForwardTimeout time.Duration
}

// Relay peels one layer off every blob it receives and forwards the rest.
// It keeps no per-circuit state.
type Relay struct {
	id             uint32
	scheme         crypto.Scheme
	keyPair        *crypto.KeyPair
	addressing     onion.Addressing
	forwarder      interfaces.IForwarder
	registrar      interfaces.IRegistrar
	peeler         *onion.Peeler
	forwardTimeout time.Duration
	state          *State
	metrics        *Metrics

	mu       sync.Mutex
	idle     *sync.Cond
	inflight int
}

// NewRelay creates a relay from config.
func NewRelay(config RelayConfig) (*Relay, error) {
	if config.Forwarder == nil {
		return nil, fmt.Errorf("relay %d: %w", config.ID, ErrMissingCollaborator)
	}
	if config.Scheme == nil {
		config.Scheme = crypto.NaCl()
	}
	if err := config.Addressing.Validate(); err != nil {
		return nil, err
	}
	if config.ID >= config.Addressing.MaxNodes {
		return nil, fmt.Errorf("relay %d: %w", config.ID, onion.ErrAddressOutOfRange)
	}

	keyPair := config.KeyPair
	if keyPair == nil {
		var err error
		keyPair, err = config.Scheme.GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("relay %d: generate key pair: %w", config.ID, err)
		}
	}
	if err := keyPair.Validate(config.Scheme); err != nil {
		return nil, fmt.Errorf("relay %d: %w", config.ID, err)
	}

	timeout := config.ForwardTimeout
	if timeout <= 0 {
		timeout = DefaultForwardTimeout
	}

	r := &Relay{
		id:             config.ID,
		scheme:         config.Scheme,
		keyPair:        keyPair,
		addressing:     config.Addressing,
		forwarder:      config.Forwarder,
		registrar:      config.Registrar,
		peeler:         onion.NewPeeler(config.Scheme, keyPair),
		forwardTimeout: timeout,
		state:          NewState(),
		metrics:        NewMetrics(onion.RoleRelay.String(), config.ID),
	}
	r.idle = sync.NewCond(&r.mu)
	return r, nil
}

// ID returns the relay identifier.
func (r *Relay) ID() uint32 { return r.id }

// Address returns the relay's address.
func (r *Relay) Address() onion.Address { return r.addressing.RelayAddress(r.id) }

// PublicKey returns the key published to the directory.
func (r *Relay) PublicKey() []byte { return append([]byte(nil), r.keyPair.Public...) }

// State returns the relay's observability state.
func (r *Relay) State() *State { return r.state }

// Metrics returns the relay's collectors.
func (r *Relay) Metrics() *Metrics { return r.metrics }

// Register publishes the relay's public key through the configured registrar.
func (r *Relay) Register(ctx context.Context) error {
	if r.registrar == nil {
		return fmt.Errorf("relay %d: %w", r.id, ErrMissingCollaborator)
	}
	return r.registrar.Register(ctx, r.id, r.keyPair.Public)
}

// HandleMessage peels one layer off blob and forwards the remainder to the
// destination it names.
//
// Errors describe the blob itself: it was empty, could not be peeled, or
// named an unusable destination. Once a layer is peeled the relay owns the
// message and returns; the hand-off to the next hop runs in the background,
// bounded by the forward timeout. A failed hand-off is logged and counted
// but never reported to the caller and never retried.
func (r *Relay) HandleMessage(ctx context.Context, blob string) error {
	log := logrus.WithFields(logrus.Fields{
		"function": "Relay.HandleMessage",
		"relay_id": r.id,
	})

	if blob == "" {
		return fmt.Errorf("%w: %w", onion.ErrInvalidMessage, limits.ErrMessageEmpty)
	}

	r.state.RecordReceived(blob)
	r.metrics.Received()

	layer, err := r.peeler.Peel(blob)
	if err != nil {
		reason := DropMalformed
		if errors.Is(err, onion.ErrDecryptionFailed) {
			reason = DropDecryption
		}
		r.metrics.Dropped(reason)
		log.WithFields(logrus.Fields{
			"onion_size": len(blob),
			"error":      err.Error(),
		}).Warn("Dropping blob that could not be peeled")
		return err
	}
	r.metrics.Peeled()

	payload := string(layer.Payload)
	r.state.RecordDecrypted(payload)
	r.state.RecordDestination(layer.Destination)

	role, id, ok := r.addressing.Resolve(layer.Destination)
	if !ok || (role == onion.RoleRelay && id == r.id) {
		r.metrics.Dropped(DropUnknownDest)
		log.WithField("destination", layer.Destination.String()).Warn("Dropping layer with unusable destination")
		return fmt.Errorf("%w: %s", onion.ErrUnknownSelfAddress, layer.Destination)
	}

	r.mu.Lock()
	r.inflight++
	r.mu.Unlock()

	go r.forward(context.WithoutCancel(ctx), layer.Destination, role, payload)
	return nil
}

// forward hands payload to the next hop. It runs detached from the request
// that delivered the blob.
func (r *Relay) forward(ctx context.Context, dest onion.Address, role onion.Role, payload string) {
	defer func() {
		r.mu.Lock()
		r.inflight--
		if r.inflight == 0 {
			r.idle.Broadcast()
		}
		r.mu.Unlock()
	}()

	log := logrus.WithFields(logrus.Fields{
		"function":    "Relay.forward",
		"relay_id":    r.id,
		"destination": dest.String(),
		"role":        role.String(),
	})

	fwdCtx, cancel := context.WithTimeout(ctx, r.forwardTimeout)
	defer cancel()

	if err := r.forwarder.Forward(fwdCtx, dest, payload); err != nil {
		r.metrics.Dropped(DropForwarding)
		log.WithField("error", err.Error()).Warn("Next hop refused hand-off, message dropped")
		return
	}

	r.metrics.Forwarded()
	log.WithField("payload_size", len(payload)).Debug("Layer forwarded")
}

// Wait blocks until every forward dispatched so far has finished.
func (r *Relay) Wait() {
	r.mu.Lock()
	for r.inflight > 0 {
		r.idle.Wait()
	}
	r.mu.Unlock()
}

// Endpoint adapts HandleMessage to the in-memory network.
func (r *Relay) Endpoint(ctx context.Context, message string) error {
	return r.HandleMessage(ctx, message)
}

// Close waits for pending forwards and wipes the relay's private key.
func (r *Relay) Close() {
	r.Wait()
	_ = crypto.WipeKeyPair(r.keyPair)
}
