// Package testing provides in-memory stand-ins for the network collaborators
// of the onion overlay, for deterministic testing without sockets.
//
// # Simulation vs Real Implementation
//
// Participants reach each other through two abstractions in package
// interfaces:
//
//   - IForwarder hands an onion blob to an address. SimulatedNetwork
//     (this package) calls an in-memory Endpoint; real.HTTPForwarder POSTs to
//     http://host:port/message.
//
//   - IDirectory lists relays and IRegistrar publishes them.
//     SimulatedDirectory (this package) keeps them in a map;
//     real.DirectoryClient talks to the registry service.
//
// The factory package chooses between the two.
//
// # Usage
//
//	sim := testing.NewSimulatedNetwork(&interfaces.TransportConfig{
//	    UseSimulation:  true,
//	    NetworkTimeout: 5000,
//	})
//	sim.Attach(4001, relay.HandleMessage)
//
//	err := sim.Forward(ctx, 4001, blob)
//	for _, record := range sim.GetDeliveryLog() {
//	    fmt.Println(record.Address, record.Success)
//	}
//
// Hand-offs run synchronously on the caller's goroutine, so a blob handed to
// the entry relay has travelled the whole circuit by the time Forward
// returns. Failures can be injected per address with FailDeliveriesTo.
//
// Every constructor logs a "SIMULATION FUNCTION - NOT A REAL OPERATION"
// warning so simulated deployments are obvious in logs.
package testing
