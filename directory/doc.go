// Package directory implements the registry service relays publish their
// public keys to and users fetch the relay set from.
//
// The registry is a collaborator of the circuit protocol, not part of it:
// it hands out {nodeId, pubKey} pairs and nothing else. A relay's address is
// derived from its id by the shared onion.Addressing.
package directory
