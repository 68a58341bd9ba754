package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/onionrelay/circuit"
	"github.com/opd-ai/onionrelay/crypto"
	"github.com/opd-ai/onionrelay/interfaces"
	"github.com/opd-ai/onionrelay/limits"
	"github.com/opd-ai/onionrelay/onion"
	"github.com/sirupsen/logrus"
)

// ErrMissingCollaborator is returned by constructors when a required
// directory, registrar or forwarder is nil.
var ErrMissingCollaborator = errors.New("missing collaborator")

// UserConfig configures a user participant.
type UserConfig struct {
	ID         uint32
	Scheme     crypto.Scheme
	Addressing onion.Addressing
	Directory  interfaces.IDirectory
	Forwarder  interfaces.IForwarder
	// Selector picks circuits. Nil uses a crypto/rand backed selector.
	Selector *circuit.Selector
}

// User sends messages through freshly selected circuits and keeps an inbox of
// the last message delivered to it.
type User struct {
	id         uint32
	addressing onion.Addressing
	directory  interfaces.IDirectory
	forwarder  interfaces.IForwarder
	selector   *circuit.Selector
	builder    *onion.Builder
	state      *State
	metrics    *Metrics
}

// NewUser creates a user from config.
func NewUser(config UserConfig) (*User, error) {
	if config.Directory == nil || config.Forwarder == nil {
		return nil, fmt.Errorf("user %d: %w", config.ID, ErrMissingCollaborator)
	}
	if config.Scheme == nil {
		config.Scheme = crypto.NaCl()
	}
	if err := config.Addressing.Validate(); err != nil {
		return nil, err
	}
	if config.ID >= config.Addressing.MaxNodes {
		return nil, fmt.Errorf("user %d: %w", config.ID, onion.ErrAddressOutOfRange)
	}
	selector := config.Selector
	if selector == nil {
		selector = circuit.NewSelector(nil)
	}

	return &User{
		id:         config.ID,
		addressing: config.Addressing,
		directory:  config.Directory,
		forwarder:  config.Forwarder,
		selector:   selector,
		builder:    onion.NewBuilder(config.Scheme),
		state:      NewState(),
		metrics:    NewMetrics(onion.RoleUser.String(), config.ID),
	}, nil
}

// ID returns the user identifier.
func (u *User) ID() uint32 { return u.id }

// Address returns the user's inbox address.
func (u *User) Address() onion.Address { return u.addressing.UserAddress(u.id) }

// State returns the user's observability state.
func (u *User) State() *State { return u.state }

// Metrics returns the user's collectors.
func (u *User) Metrics() *Metrics { return u.metrics }

// Send wraps message for user destinationUserID and hands it to the entry
// relay of a new circuit. It returns once the entry relay accepted or
// refused the hand-off; end-to-end delivery is never confirmed.
func (u *User) Send(ctx context.Context, message string, destinationUserID uint32) error {
	trace := uuid.NewString()
	log := logrus.WithFields(logrus.Fields{
		"function":    "User.Send",
		"user_id":     u.id,
		"destination": destinationUserID,
		"trace_id":    trace,
	})

	if err := limits.ValidatePlaintextMessage([]byte(message)); err != nil {
		return fmt.Errorf("%w: %w", onion.ErrInvalidMessage, err)
	}
	if destinationUserID >= u.addressing.MaxNodes {
		return fmt.Errorf("%w: user %d", onion.ErrAddressOutOfRange, destinationUserID)
	}

	relays, err := u.directory.Relays(ctx)
	if err != nil {
		log.WithField("error", err.Error()).Error("Directory lookup failed")
		return fmt.Errorf("relay directory: %w", err)
	}

	path, err := u.selector.Select(relays)
	if err != nil {
		return err
	}

	start := time.Now()
	blob, err := u.builder.Build(ctx, path, u.addressing.UserAddress(destinationUserID), []byte(message))
	u.metrics.ObserveBuild(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	u.state.RecordSent(message)
	u.state.RecordCircuit(path.IDs())

	entry := path.Entry()
	if err := u.forwarder.Forward(ctx, entry.Address, blob); err != nil {
		u.metrics.Dropped(DropForwarding)
		log.WithFields(logrus.Fields{
			"entry": entry.ID,
			"error": err.Error(),
		}).Warn("Entry relay refused hand-off")
		return fmt.Errorf("%w: entry relay %d: %w", onion.ErrForwardingFailed, entry.ID, err)
	}

	u.metrics.Sent()
	log.WithFields(logrus.Fields{
		"circuit":      path.IDs(),
		"message_size": len(message),
		"onion_size":   len(blob),
	}).Info("Message handed to entry relay")
	return nil
}

// Receive stores a message delivered by an exit relay. An empty message is
// rejected and leaves the inbox untouched.
func (u *User) Receive(message string) error {
	if message == "" {
		return fmt.Errorf("%w: %w", onion.ErrInvalidMessage, limits.ErrMessageEmpty)
	}

	u.state.RecordReceived(message)
	u.metrics.Received()

	logrus.WithFields(logrus.Fields{
		"function":     "User.Receive",
		"user_id":      u.id,
		"message_size": len(message),
	}).Info("Message received")
	return nil
}

// Endpoint adapts Receive to the in-memory network.
func (u *User) Endpoint(_ context.Context, message string) error {
	return u.Receive(message)
}
