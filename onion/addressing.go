package onion

import "fmt"

// Role is the kind of participant an address belongs to.
type Role int

const (
	// RoleUnknown marks an address outside every participant range.
	RoleUnknown Role = iota
	// RoleUser marks a user inbox.
	RoleUser
	// RoleRelay marks an onion relay.
	RoleRelay
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleRelay:
		return "relay"
	default:
		return "unknown"
	}
}

// Default addressing, matching the reference deployment.
const (
	DefaultBaseUserPort  = 3000
	DefaultBaseRelayPort = 4000
	DefaultMaxNodes      = 1000
)

// Addressing derives every participant's address from a role-specific base
// plus its numeric identifier. Ranges are [base, base+MaxNodes).
type Addressing struct {
	BaseUserPort  uint32
	BaseRelayPort uint32
	MaxNodes      uint32
}

// DefaultAddressing returns the reference addressing scheme.
func DefaultAddressing() Addressing {
	return Addressing{
		BaseUserPort:  DefaultBaseUserPort,
		BaseRelayPort: DefaultBaseRelayPort,
		MaxNodes:      DefaultMaxNodes,
	}
}

// Validate checks that both ranges are non-empty, fit AddressWidth and do not overlap.
func (a Addressing) Validate() error {
	if a.MaxNodes == 0 {
		return fmt.Errorf("addressing: MaxNodes must be positive")
	}
	userEnd := uint64(a.BaseUserPort) + uint64(a.MaxNodes)
	relayEnd := uint64(a.BaseRelayPort) + uint64(a.MaxNodes)
	if userEnd-1 > uint64(MaxAddress) || relayEnd-1 > uint64(MaxAddress) {
		return fmt.Errorf("addressing: %w", ErrAddressOutOfRange)
	}
	if uint64(a.BaseUserPort) < relayEnd && uint64(a.BaseRelayPort) < userEnd {
		return fmt.Errorf("addressing: user range [%d,%d) overlaps relay range [%d,%d)",
			a.BaseUserPort, userEnd, a.BaseRelayPort, relayEnd)
	}
	return nil
}

// UserAddress returns the inbox address of user id.
func (a Addressing) UserAddress(id uint32) Address {
	return Address(uint64(a.BaseUserPort) + uint64(id))
}

// RelayAddress returns the address of relay id.
func (a Addressing) RelayAddress(id uint32) Address {
	return Address(uint64(a.BaseRelayPort) + uint64(id))
}

// Resolve maps an address back to its role and identifier.
func (a Addressing) Resolve(addr Address) (Role, uint32, bool) {
	if id, ok := a.within(addr, a.BaseRelayPort); ok {
		return RoleRelay, id, true
	}
	if id, ok := a.within(addr, a.BaseUserPort); ok {
		return RoleUser, id, true
	}
	return RoleUnknown, 0, false
}

func (a Addressing) within(addr Address, base uint32) (uint32, bool) {
	if uint64(addr) < uint64(base) {
		return 0, false
	}
	offset := uint64(addr) - uint64(base)
	if offset >= uint64(a.MaxNodes) {
		return 0, false
	}
	return uint32(offset), true
}
