package factory

import (
	"fmt"
	"sync"
	"time"

	"github.com/opd-ai/onionrelay/crypto"
	"github.com/opd-ai/onionrelay/interfaces"
	"github.com/opd-ai/onionrelay/onion"
	"github.com/opd-ai/onionrelay/real"
	"github.com/opd-ai/onionrelay/testing"
	"github.com/sirupsen/logrus"
)

// TransportFactory creates forwarder and directory implementations based on
// configuration. In simulation mode every forwarder it hands out shares one
// SimulatedNetwork and every directory shares one SimulatedDirectory, so
// participants created from the same factory can reach each other.
// It is safe for concurrent use.
type TransportFactory struct {
	mu        sync.Mutex
	config    interfaces.TransportConfig
	network   *testing.SimulatedNetwork
	directory *testing.SimulatedDirectory
}

// NewTransportFactory creates a factory for config, normally obtained from
// config.Transport.TransportConfig.
func NewTransportFactory(config interfaces.TransportConfig) *TransportFactory {
	logrus.WithFields(logrus.Fields{
		"function":        "NewTransportFactory",
		"use_simulation":  config.UseSimulation,
		"network_timeout": config.NetworkTimeout,
		"host":            config.Host,
	}).Info("Created transport factory with configuration")

	return &TransportFactory{config: config}
}

// CreateForwarder creates a forwarder for the configured mode.
// proxyConfig is ignored in simulation mode and may be nil.
func (f *TransportFactory) CreateForwarder(proxyConfig *real.ProxyConfig) (interfaces.IForwarder, error) {
	logrus.WithFields(logrus.Fields{
		"function":        "CreateForwarder",
		"use_simulation":  f.config.UseSimulation,
		"network_timeout": f.config.NetworkTimeout,
	}).Info("Creating forwarder implementation")

	if f.config.UseSimulation {
		return f.SimulatedNetwork(), nil
	}

	if f.config.NetworkTimeout <= 0 {
		return nil, fmt.Errorf("network timeout must be positive for the real forwarder")
	}

	config := f.config
	return real.NewHTTPForwarder(&config, proxyConfig)
}

// CreateDirectory creates the relay directory for the configured mode. In real
// mode it is a client of the registry at registryURL; in simulation mode it is
// the factory's shared SimulatedDirectory.
func (f *TransportFactory) CreateDirectory(registryURL string, scheme crypto.Scheme, addressing onion.Addressing) interfaces.IRegistry {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.config.UseSimulation {
		if f.directory == nil {
			f.directory = testing.NewSimulatedDirectory(scheme, addressing)
		}
		return f.directory
	}

	timeout := time.Duration(f.config.NetworkTimeout) * time.Millisecond
	return real.NewDirectoryClient(registryURL, scheme, addressing, timeout)
}

// SimulatedNetwork returns the shared in-memory network, creating it on first use.
func (f *TransportFactory) SimulatedNetwork() *testing.SimulatedNetwork {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.network == nil {
		config := f.config
		config.UseSimulation = true
		f.network = testing.NewSimulatedNetwork(&config)
	}
	return f.network
}

// IsUsingSimulation returns true if the factory is configured for simulation
func (f *TransportFactory) IsUsingSimulation() bool {
	return f.config.UseSimulation
}
