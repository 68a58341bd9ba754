// Package real provides the network-backed implementations of the forwarding
// and directory abstractions in package interfaces.
//
// HTTPForwarder hands onion blobs to the next hop with a single JSON POST to
// http://host:port/message. There are no retries and no acknowledgements
// beyond the HTTP status: a relay that accepted a blob has taken ownership of
// it. Hand-offs may optionally be routed through a SOCKS5 or HTTP proxy:
//
//	fwd, err := real.NewHTTPForwarder(&interfaces.TransportConfig{
//	    NetworkTimeout: 5000,
//	    Host:           "localhost",
//	}, &real.ProxyConfig{Type: "socks5", Host: "127.0.0.1", Port: 9050})
//
// DirectoryClient fetches and publishes relay entries on the registry service.
// UserClient drives a running user participant and is used by the command
// line tool.
//
// Counters for every hand-off are available through HTTPForwarder.Stats.
package real
