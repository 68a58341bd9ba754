package onionrelay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"

	"github.com/opd-ai/onionrelay/circuit"
	"github.com/opd-ai/onionrelay/config"
	"github.com/opd-ai/onionrelay/crypto"
	"github.com/opd-ai/onionrelay/directory"
	"github.com/opd-ai/onionrelay/factory"
	"github.com/opd-ai/onionrelay/interfaces"
	"github.com/opd-ai/onionrelay/node"
	"github.com/opd-ai/onionrelay/onion"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnknownParticipant is returned when an id names no running user or relay.
	ErrUnknownParticipant = errors.New("unknown participant")

	// ErrNetworkStopped is returned by operations on a killed network.
	ErrNetworkStopped = errors.New("network stopped")
)

// Options contains configuration options for creating a Network.
type Options struct {
	// Relays is the number of relays to start, with ids 0..Relays-1.
	Relays int

	// Users is the number of users to start, with ids 0..Users-1.
	Users int

	// Config is the deployment configuration. Nil uses config.Default().
	Config *config.Config

	// RandomSource drives circuit selection. Nil uses crypto/rand.
	RandomSource circuit.RandomSource

	// KeyStorePassphrase unlocks Config.Crypto.KeyStore. It is wiped once the
	// store is open.
	KeyStorePassphrase []byte

	// NoRegistry uses the registry at Config.Network.RegistryURL() instead of
	// serving one. Ignored in simulation mode.
	NoRegistry bool
}

// NewOptions creates a new default Options.
func NewOptions() *Options {
	return &Options{
		Relays: 10,
		Users:  2,
	}
}

// Network runs a registry, a set of relays and a set of users in one process.
// In simulation mode they share an in-memory network; otherwise each listens
// on its own port and they talk HTTP.
type Network struct {
	options   *Options
	config    *config.Config
	scheme    crypto.Scheme
	factory   *factory.TransportFactory
	forwarder interfaces.IForwarder
	registry  interfaces.IRegistry
	keyStore  *crypto.KeyStore

	mu      sync.RWMutex
	relays  map[uint32]*node.Relay
	users   map[uint32]*node.User
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and starts a Network with the given options.
func New(options *Options) (*Network, error) {
	if options == nil {
		options = NewOptions()
	}
	if options.Relays < 0 || options.Users < 0 {
		return nil, fmt.Errorf("participant counts must not be negative")
	}

	cfg := options.Config
	if cfg == nil {
		cfg = config.Default()
	} else if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	if uint32(options.Relays) > cfg.Network.MaxNodes || uint32(options.Users) > cfg.Network.MaxNodes {
		return nil, fmt.Errorf("at most %d participants per role", cfg.Network.MaxNodes)
	}

	scheme, err := cfg.Crypto.SchemeImpl()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Network{
		options: options,
		config:  cfg,
		scheme:  scheme,
		factory: factory.NewTransportFactory(cfg.Transport.TransportConfig(cfg.Network.Host)),
		relays:  make(map[uint32]*node.Relay),
		users:   make(map[uint32]*node.User),
		running: true,
		ctx:     ctx,
		cancel:  cancel,
	}

	if err := n.start(); err != nil {
		n.Kill()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":   "New",
		"relays":     options.Relays,
		"users":      options.Users,
		"scheme":     scheme.Name(),
		"simulation": n.IsSimulation(),
	}).Info("Onion network started")
	return n, nil
}

func (n *Network) start() error {
	if n.config.Crypto.KeyStore != "" {
		ks, err := crypto.OpenKeyStore(n.config.Crypto.KeyStore, n.options.KeyStorePassphrase)
		if err != nil {
			return err
		}
		n.keyStore = ks
	}

	if err := n.startRegistry(); err != nil {
		return err
	}

	forwarder, err := n.factory.CreateForwarder(n.config.Transport.ProxyConfig())
	if err != nil {
		return err
	}
	n.forwarder = forwarder

	for i := 0; i < n.options.Relays; i++ {
		if _, err := n.StartRelay(uint32(i)); err != nil {
			return err
		}
	}
	for i := 0; i < n.options.Users; i++ {
		if _, err := n.StartUser(uint32(i)); err != nil {
			return err
		}
	}
	return nil
}

func (n *Network) startRegistry() error {
	addressing := n.config.Network.Addressing()

	if n.IsSimulation() {
		n.registry = n.factory.CreateDirectory("", n.scheme, addressing)
		return nil
	}

	if n.options.NoRegistry {
		n.registry = n.factory.CreateDirectory(n.config.Network.RegistryURL(), n.scheme, addressing)
		return nil
	}

	reg := directory.NewRegistry(n.scheme, addressing)
	if err := n.listen(n.config.Network.RegistryAddress(), reg.Router()); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	n.registry = n.factory.CreateDirectory(n.config.Network.RegistryURL(), n.scheme, addressing)
	return nil
}

// StartRelay starts relay id, serves it and registers its public key.
func (n *Network) StartRelay(id uint32) (*node.Relay, error) {
	if err := n.claim(onion.RoleRelay, id); err != nil {
		return nil, err
	}

	keyPair, err := n.relayKeyPair(id)
	if err != nil {
		return nil, err
	}

	relay, err := node.NewRelay(node.RelayConfig{
		ID:             id,
		Scheme:         n.scheme,
		Addressing:     n.config.Network.Addressing(),
		Forwarder:      n.forwarder,
		Registrar:      n.registry,
		KeyPair:        keyPair,
		ForwardTimeout: n.config.Transport.ForwardTimeoutDuration(),
	})
	if err != nil {
		return nil, err
	}

	if n.IsSimulation() {
		n.factory.SimulatedNetwork().Attach(relay.Address(), relay.Endpoint)
	} else if err := n.listen(n.config.Network.ListenAddress(relay.Address()), relay.Router()); err != nil {
		relay.Close()
		return nil, fmt.Errorf("relay %d: %w", id, err)
	}

	if err := relay.Register(n.ctx); err != nil {
		return nil, fmt.Errorf("relay %d: %w", id, err)
	}

	n.mu.Lock()
	n.relays[id] = relay
	n.mu.Unlock()
	return relay, nil
}

// claim rejects a second participant with the same id and role.
func (n *Network) claim(role onion.Role, id uint32) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if !n.running {
		return ErrNetworkStopped
	}
	if id >= n.config.Network.MaxNodes {
		return fmt.Errorf("%s %d: %w", role, id, onion.ErrAddressOutOfRange)
	}
	exists := false
	switch role {
	case onion.RoleRelay:
		_, exists = n.relays[id]
	case onion.RoleUser:
		_, exists = n.users[id]
	}
	if exists {
		return fmt.Errorf("%s %d already running", role, id)
	}
	return nil
}

func (n *Network) relayKeyPair(id uint32) (*crypto.KeyPair, error) {
	if n.keyStore == nil {
		return nil, nil
	}
	kp, generated, err := n.keyStore.LoadOrGenerate(RelayKeyName(id), n.scheme)
	if err != nil {
		return nil, fmt.Errorf("relay %d: %w", id, err)
	}
	logrus.WithFields(logrus.Fields{
		"function":  "Network.relayKeyPair",
		"relay_id":  id,
		"generated": generated,
	}).Debug("Relay key loaded")
	return kp, nil
}

// RelayKeyName is the key store entry of relay id.
func RelayKeyName(id uint32) string {
	return fmt.Sprintf("relay-%d", id)
}

// StartUser starts user id and serves it.
func (n *Network) StartUser(id uint32) (*node.User, error) {
	if err := n.claim(onion.RoleUser, id); err != nil {
		return nil, err
	}

	user, err := node.NewUser(node.UserConfig{
		ID:         id,
		Scheme:     n.scheme,
		Addressing: n.config.Network.Addressing(),
		Directory:  n.registry,
		Forwarder:  n.forwarder,
		Selector:   circuit.NewSelector(n.options.RandomSource),
	})
	if err != nil {
		return nil, err
	}

	if n.IsSimulation() {
		n.factory.SimulatedNetwork().Attach(user.Address(), user.Endpoint)
	} else if err := n.listen(n.config.Network.ListenAddress(user.Address()), user.Router()); err != nil {
		return nil, fmt.Errorf("user %d: %w", id, err)
	}

	n.mu.Lock()
	n.users[id] = user
	n.mu.Unlock()
	return user, nil
}

// listen binds addr synchronously so port conflicts surface from New, then
// serves handler until the network is killed.
func (n *Network) listen(addr string, handler http.Handler) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := node.ServeListener(n.ctx, listener, handler); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Network.listen",
				"address":  addr,
				"error":    err.Error(),
			}).Error("Participant server failed")
		}
	}()
	return nil
}

// Send asks user from to send message to user to.
func (n *Network) Send(ctx context.Context, from, to uint32, message string) error {
	user, ok := n.User(from)
	if !ok {
		if !n.IsRunning() {
			return ErrNetworkStopped
		}
		return fmt.Errorf("%w: user %d", ErrUnknownParticipant, from)
	}
	return user.Send(ctx, message, to)
}

// User returns user id.
func (n *Network) User(id uint32) (*node.User, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	u, ok := n.users[id]
	return u, ok
}

// Relay returns relay id.
func (n *Network) Relay(id uint32) (*node.Relay, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	r, ok := n.relays[id]
	return r, ok
}

// RelayIDs returns the ids of the running relays in ascending order.
func (n *Network) RelayIDs() []uint32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ids := make([]uint32, 0, len(n.relays))
	for id := range n.relays {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Directory returns the relay directory the users consult.
func (n *Network) Directory() interfaces.IDirectory {
	return n.registry
}

// Config returns the validated configuration.
func (n *Network) Config() *config.Config {
	return n.config
}

// IsSimulation reports whether participants share the in-memory network.
func (n *Network) IsSimulation() bool {
	return n.factory.IsUsingSimulation()
}

// IsRunning reports whether Kill has not been called.
func (n *Network) IsRunning() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.running
}

// Flush blocks until every relay has finished the forwards dispatched so far,
// including the ones those forwards trigger further along their circuits.
func (n *Network) Flush() {
	n.mu.RLock()
	relays := make([]*node.Relay, 0, len(n.relays))
	for _, r := range n.relays {
		relays = append(relays, r)
	}
	n.mu.RUnlock()

	// A hop registers its forward before the previous hop's hand-off returns,
	// so one pass per circuit position drains every circuit.
	for pass := 0; pass < onion.CircuitLength; pass++ {
		for _, r := range relays {
			r.Wait()
		}
	}
}

// Wait blocks until every participant server has stopped.
func (n *Network) Wait() {
	n.wg.Wait()
}

// Kill stops every participant and wipes relay keys.
func (n *Network) Kill() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	n.running = false
	relays := n.relays
	n.relays = make(map[uint32]*node.Relay)
	n.users = make(map[uint32]*node.User)
	n.mu.Unlock()

	n.cancel()
	n.wg.Wait()

	for _, r := range relays {
		r.Close()
	}
	if n.keyStore != nil {
		if err := n.keyStore.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Network.Kill",
				"error":    err.Error(),
			}).Warn("Failed to close key store")
		}
		n.keyStore = nil
	}

	logrus.WithFields(logrus.Fields{
		"function": "Network.Kill",
	}).Info("Onion network stopped")
}
