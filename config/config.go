package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/opd-ai/onionrelay/crypto"
	"github.com/opd-ai/onionrelay/interfaces"
	"github.com/opd-ai/onionrelay/onion"
	"github.com/opd-ai/onionrelay/real"
)

const (
	defaultHost           = "localhost"
	defaultRegistryPort   = 8080
	defaultNetworkTimeout = 5000 // 5 sec.
	defaultForwardTimeout = 5000 // 5 sec.

	minTimeout = 100
	maxTimeout = 600000
)

// Network is the addressing of the deployment. Every participant listens on
// Host; its port is the role base plus its id.
type Network struct {
	Host          string
	RegistryPort  uint32
	BaseUserPort  uint32
	BaseRelayPort uint32
	MaxNodes      uint32
}

func (nCfg *Network) applyDefaults() {
	if nCfg.Host == "" {
		nCfg.Host = defaultHost
	}
	if nCfg.RegistryPort == 0 {
		nCfg.RegistryPort = defaultRegistryPort
	}
	if nCfg.BaseUserPort == 0 {
		nCfg.BaseUserPort = onion.DefaultBaseUserPort
	}
	if nCfg.BaseRelayPort == 0 {
		nCfg.BaseRelayPort = onion.DefaultBaseRelayPort
	}
	if nCfg.MaxNodes == 0 {
		nCfg.MaxNodes = onion.DefaultMaxNodes
	}
}

func (nCfg *Network) validate() error {
	if err := nCfg.Addressing().Validate(); err != nil {
		return fmt.Errorf("config: Network: %v", err)
	}
	if nCfg.RegistryPort > 65535 {
		return fmt.Errorf("config: Network: RegistryPort %d is invalid", nCfg.RegistryPort)
	}
	a := nCfg.Addressing()
	if role, _, ok := a.Resolve(onion.Address(nCfg.RegistryPort)); ok {
		return fmt.Errorf("config: Network: RegistryPort %d collides with the %s range", nCfg.RegistryPort, role)
	}
	return nil
}

// Addressing returns the participant addressing scheme.
func (nCfg *Network) Addressing() onion.Addressing {
	return onion.Addressing{
		BaseUserPort:  nCfg.BaseUserPort,
		BaseRelayPort: nCfg.BaseRelayPort,
		MaxNodes:      nCfg.MaxNodes,
	}
}

// RegistryURL returns the base URL of the registry service.
func (nCfg *Network) RegistryURL() string {
	return "http://" + nCfg.RegistryAddress()
}

// RegistryAddress returns host:port of the registry service.
func (nCfg *Network) RegistryAddress() string {
	return net.JoinHostPort(nCfg.Host, strconv.FormatUint(uint64(nCfg.RegistryPort), 10))
}

// ListenAddress returns host:port for a participant address.
func (nCfg *Network) ListenAddress(addr onion.Address) string {
	return net.JoinHostPort(nCfg.Host, addr.String())
}

// Proxy routes hand-offs through a SOCKS5 or HTTP proxy.
type Proxy struct {
	Type     string
	Host     string
	Port     uint16
	Username string
	Password string
}

func (pCfg *Proxy) validate() error {
	switch pCfg.Type {
	case "socks5", "http":
	default:
		return fmt.Errorf("config: Transport: Proxy: Type '%v' is invalid", pCfg.Type)
	}
	if pCfg.Host == "" || pCfg.Port == 0 {
		return errors.New("config: Transport: Proxy: Host and Port are required")
	}
	return nil
}

// Transport configures how participants reach each other.
type Transport struct {
	// UseSimulation runs every participant over the in-memory network.
	UseSimulation bool

	// NetworkTimeout bounds a hand-off or directory call, in milliseconds.
	NetworkTimeout int

	// ForwardTimeout bounds a relay's hand-off to the next hop, in milliseconds.
	ForwardTimeout int

	Proxy *Proxy
}

func (tCfg *Transport) applyDefaults() {
	if tCfg.NetworkTimeout <= 0 {
		tCfg.NetworkTimeout = defaultNetworkTimeout
	}
	if tCfg.ForwardTimeout <= 0 {
		tCfg.ForwardTimeout = defaultForwardTimeout
	}
}

func (tCfg *Transport) validate() error {
	for name, v := range map[string]int{"NetworkTimeout": tCfg.NetworkTimeout, "ForwardTimeout": tCfg.ForwardTimeout} {
		if v < minTimeout || v > maxTimeout {
			return fmt.Errorf("config: Transport: %s %d out of range [%d, %d]", name, v, minTimeout, maxTimeout)
		}
	}
	if tCfg.Proxy != nil {
		return tCfg.Proxy.validate()
	}
	return nil
}

// TransportConfig returns the forwarder configuration for host.
func (tCfg *Transport) TransportConfig(host string) interfaces.TransportConfig {
	return interfaces.TransportConfig{
		UseSimulation:  tCfg.UseSimulation,
		NetworkTimeout: tCfg.NetworkTimeout,
		Host:           host,
	}
}

// ProxyConfig returns the proxy settings, or nil when no proxy is set.
func (tCfg *Transport) ProxyConfig() *real.ProxyConfig {
	if tCfg.Proxy == nil {
		return nil
	}
	return &real.ProxyConfig{
		Type:     tCfg.Proxy.Type,
		Host:     tCfg.Proxy.Host,
		Port:     tCfg.Proxy.Port,
		Username: tCfg.Proxy.Username,
		Password: tCfg.Proxy.Password,
	}
}

// Timeout returns NetworkTimeout as a duration.
func (tCfg *Transport) Timeout() time.Duration {
	return time.Duration(tCfg.NetworkTimeout) * time.Millisecond
}

// ForwardTimeoutDuration returns ForwardTimeout as a duration.
func (tCfg *Transport) ForwardTimeoutDuration() time.Duration {
	return time.Duration(tCfg.ForwardTimeout) * time.Millisecond
}

// Crypto selects the layer encryption scheme and relay key persistence.
type Crypto struct {
	// Scheme is "nacl" or "rsa".
	Scheme string

	// KeyStore is the path of the relay key database. Empty keeps relay keys
	// in memory only.
	KeyStore string
}

func (cCfg *Crypto) applyDefaults() {
	if cCfg.Scheme == "" {
		cCfg.Scheme = crypto.DefaultScheme
	}
}

func (cCfg *Crypto) validate() error {
	if _, err := crypto.SchemeByName(cCfg.Scheme); err != nil {
		return fmt.Errorf("config: Crypto: %v", err)
	}
	return nil
}

// SchemeImpl returns the configured scheme.
func (cCfg *Crypto) SchemeImpl() (crypto.Scheme, error) {
	return crypto.SchemeByName(cCfg.Scheme)
}

// Config is the top level onionrelay configuration.
type Config struct {
	Network   *Network
	Transport *Transport
	Crypto    *Crypto
	Logging   *Logging
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := new(Config)
	if err := cfg.FixupAndValidate(); err != nil {
		panic(err)
	}
	return cfg
}

// FixupAndValidate applies defaults to config entries and validates the
// supplied configuration. Most people should call one of the Load variants
// instead.
func (cfg *Config) FixupAndValidate() error {
	if cfg.Network == nil {
		cfg.Network = &Network{}
	}
	if cfg.Transport == nil {
		cfg.Transport = &Transport{}
	}
	if cfg.Crypto == nil {
		cfg.Crypto = &Crypto{}
	}
	if cfg.Logging == nil {
		cfg.Logging = &Logging{}
	}

	cfg.Network.applyDefaults()
	cfg.Transport.applyDefaults()
	cfg.Crypto.applyDefaults()

	if err := cfg.Network.validate(); err != nil {
		return err
	}
	if err := cfg.Transport.validate(); err != nil {
		return err
	}
	if err := cfg.Crypto.validate(); err != nil {
		return err
	}
	return cfg.Logging.validate()
}

// Load parses the provided buffer b as a config file body, applies ONION_*
// environment overrides and returns the validated Config.
func Load(b []byte) (*Config, error) {
	if b == nil {
		return nil, errors.New("config: nil buffer as config file")
	}

	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: undecoded keys in config file: %v", undecoded)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	cfg.ApplyEnvironment()
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}

// LoadDefault returns the defaults with ONION_* environment overrides applied.
func LoadDefault() (*Config, error) {
	return Load([]byte{})
}

// Store writes cfg to w as TOML.
func Store(cfg *Config, w io.Writer) error {
	return toml.NewEncoder(w).Encode(cfg)
}
