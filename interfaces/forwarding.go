package interfaces

import (
	"context"

	"github.com/opd-ai/onionrelay/onion"
)

// IForwarder delivers an opaque onion blob to the participant at an address.
// It reports only whether the hand-off succeeded; nothing is returned from
// the far side and nothing is retried.
type IForwarder interface {
	// Forward hands message to the participant listening at addr.
	Forward(ctx context.Context, addr onion.Address, message string) error

	// IsSimulation returns true if this is a simulation implementation
	IsSimulation() bool
}

// IDirectory supplies the current relay set.
type IDirectory interface {
	// Relays returns a snapshot of the registered relays with their
	// public keys and derived addresses.
	Relays(ctx context.Context) ([]onion.Relay, error)
}

// IRegistrar publishes a relay's public key to the directory.
type IRegistrar interface {
	// Register announces relay id with publicKey.
	Register(ctx context.Context, id uint32, publicKey []byte) error
}

// TransportConfig holds configuration for forwarder implementations
type TransportConfig struct {
	// UseSimulation determines whether to use simulation or real network
	UseSimulation bool

	// NetworkTimeout sets the timeout for a single hand-off in milliseconds
	NetworkTimeout int

	// Host is the network host every participant listens on
	Host string
}

// IRegistry is a directory that also accepts registrations.
type IRegistry interface {
	IDirectory
	IRegistrar
}
