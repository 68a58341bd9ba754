package onion

import (
	"fmt"
	"strconv"
)

// Address is a numeric endpoint identifier (a port in the default deployment).
// Inside a layer it is carried as a DestinationAddress: exactly AddressWidth
// decimal digits, zero-left-padded.
type Address uint64

// MaxAddress is the largest address that fits AddressWidth digits.
const MaxAddress Address = 9_999_999_999

// Encode renders the address as a fixed-width DestinationAddress.
func (a Address) Encode() (string, error) {
	if a > MaxAddress {
		return "", fmt.Errorf("%w: %d has more than %d digits", ErrAddressOutOfRange, uint64(a), AddressWidth)
	}
	return fmt.Sprintf("%0*d", AddressWidth, uint64(a)), nil
}

// String returns the plain decimal form.
func (a Address) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// DecodeAddress parses a DestinationAddress. The input must be exactly
// AddressWidth ASCII digits.
func DecodeAddress(s string) (Address, error) {
	if len(s) != AddressWidth {
		return 0, fmt.Errorf("%w: destination is %d characters, want %d", ErrMalformedLayer, len(s), AddressWidth)
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: destination contains non-digit at offset %d", ErrMalformedLayer, i)
		}
		v = v*10 + uint64(c-'0')
	}
	return Address(v), nil
}
