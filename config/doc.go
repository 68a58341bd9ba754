// Package config provides the onionrelay configuration.
//
// Configuration is read from a TOML file; every field has a default, so an
// empty file is valid:
//
//	[Network]
//	Host = "localhost"
//	RegistryPort = 8080
//	BaseUserPort = 3000
//	BaseRelayPort = 4000
//
//	[Transport]
//	NetworkTimeout = 5000
//
//	[Crypto]
//	Scheme = "nacl"
//	KeyStore = "/var/lib/onionrelay/keys.db"
//
//	[Logging]
//	Level = "debug"
//	Format = "json"
//
// After the file is parsed, ONION_* environment variables override individual
// fields (see ApplyEnvironment).
package config
