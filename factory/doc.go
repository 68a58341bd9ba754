// Package factory creates the forwarding and directory collaborators of an
// onion participant, switching between the network implementations in
// package real and the in-memory ones in package testing without changing
// consuming code.
//
// # Configuration
//
// The factory takes an interfaces.TransportConfig, normally produced by
// config.Transport.TransportConfig after the ONION_* environment overrides
// have been applied by the config package.
//
// # Usage
//
//	cfg, _ := config.LoadDefault()
//	f := factory.NewTransportFactory(cfg.Transport.TransportConfig(cfg.Network.Host))
//
//	forwarder, err := f.CreateForwarder(cfg.Transport.ProxyConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	directory := f.CreateDirectory(cfg.Network.RegistryURL(), crypto.NaCl(), cfg.Network.Addressing())
//
// In simulation mode the forwarder is the factory's shared SimulatedNetwork;
// participants attach themselves to it with SimulatedNetwork().Attach.
package factory
