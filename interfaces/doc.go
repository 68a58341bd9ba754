// Package interfaces defines the collaborator abstractions of the onion
// routing system: the transport that hands blobs between participants and the
// directory that lists relays.
//
// This package provides the foundational interfaces that enable switching between
// simulation and real network implementations, supporting both production deployments
// and deterministic testing scenarios.
//
// # Core Interfaces
//
// [IForwarder] delivers an opaque blob to an address and reports success or
// failure of the hand-off only. Relays use it to pass a peeled layer on, users
// use it to hand a fresh onion to the entry relay:
//
//	forwarder, _ := factory.NewTransportFactory(config).CreateForwarder(nil)
//	if err := forwarder.Forward(ctx, nextHop, blob); err != nil {
//	    // dropped: no retry, no report back along the circuit
//	}
//
// [IDirectory] returns the current relay set; [IRegistrar] publishes a relay's
// public key to it.
//
// # Implementations
//
//   - real.HTTPForwarder / real.DirectoryClient: JSON over HTTP
//   - testing.SimulatedNetwork / testing.SimulatedDirectory: in-memory
//
// # Configuration
//
// [TransportConfig] carries the simulation switch, the per-hand-off timeout and
// the listening host. The config package builds it from the TOML file and ONION_*
// environment variables.
package interfaces
