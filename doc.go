// Package onionrelay runs a minimal onion-routing overlay.
//
// Users send text messages to each other through a circuit of three relays.
// The sender wraps the message in one encryption layer per relay; each relay
// peels its layer, learns only the next hop and forwards the remainder. A
// registry lists every relay's public key so that senders can build circuits.
//
// # Getting Started
//
// Start a whole overlay in one process and send a message:
//
//	cfg := config.Default()
//	cfg.Transport.UseSimulation = true
//
//	options := onionrelay.NewOptions()
//	options.Config = cfg
//
//	network, err := onionrelay.New(options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer network.Kill()
//
//	if err := network.Send(ctx, 0, 1, "hello"); err != nil {
//	    log.Fatal(err)
//	}
//	network.Flush()
//
//	user, _ := network.User(1)
//	fmt.Println(*user.State().LastReceived())
//
// With UseSimulation unset every participant listens on its own port
// (registry on 8080, relays from 4000, users from 3000) and hands messages
// on over HTTP.
//
// # Packages
//
//   - [github.com/opd-ai/onionrelay/onion]: wire format, layer construction and peeling
//   - [github.com/opd-ai/onionrelay/circuit]: uniform circuit selection
//   - [github.com/opd-ai/onionrelay/crypto]: key pairs, hybrid schemes and the key store
//   - [github.com/opd-ai/onionrelay/node]: user and relay behavior with their HTTP surfaces
//   - [github.com/opd-ai/onionrelay/directory]: the relay registry service
//   - [github.com/opd-ai/onionrelay/config]: TOML configuration with ONION_* overrides
//   - [github.com/opd-ai/onionrelay/factory]: simulated or HTTP transport selection
//
// # Thread Safety
//
// A [Network] and every participant it owns may be used from multiple
// goroutines.
package onionrelay
