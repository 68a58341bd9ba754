// Package node implements the two kinds of onion participant.
//
// A User selects a fresh circuit from the relay directory for every message,
// builds the onion and hands it to the entry relay. It also serves as the
// inbox for messages addressed to it. A Relay peels exactly one layer off
// each blob and forwards the remainder to the address the layer names.
//
// Both keep last-write-wins observability State and per-instance prometheus
// Metrics, and expose an HTTP surface through Router:
//
//	GET  /status                          "live"
//	GET  /getLastReceivedMessage          {"result": ...}
//	GET  /getLastSentMessage              {"result": ...}
//	GET  /getLastCircuit                  {"result": [ids]}
//	GET  /metrics                         prometheus text format
//	POST /message                         {"message": ...}
//	POST /sendMessage                     {"message": ..., "destinationUserId": n}   (users; "destinationId" also accepted)
//	GET  /getLastReceivedEncryptedMessage {"result": ...}                         (relays)
//	GET  /getLastReceivedDecryptedMessage {"result": ...}                         (relays)
//	GET  /getLastMessageDestination       {"result": ...}                         (relays)
//
// Failures answer {"error": ...} with the status chosen by StatusFor.
package node
