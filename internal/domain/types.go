package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ZeroAddress is the null address. It is never a valid recipient of value.
var ZeroAddress = common.Address{}

var (
	// ErrInvalidAddressFormat is returned when a string is not a 20-byte hex address
	ErrInvalidAddressFormat = errors.New("invalid address format")

	// ErrInvalidAmountFormat is returned when a string is not a base-10 unsigned 256-bit integer
	ErrInvalidAmountFormat = errors.New("invalid amount format")

	// ErrInvalidTokenID is returned when a string is not a base-10 token id
	ErrInvalidTokenID = errors.New("invalid token id")
)

// ParseAddress parses a 0x-prefixed hex address. Unlike common.HexToAddress it
// refuses malformed input instead of silently truncating it.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") || !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddressFormat, s)
	}
	return common.HexToAddress(s), nil
}

// ParseAddresses parses every entry of addrs, failing on the first malformed one
func ParseAddresses(addrs []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(addrs))
	for _, a := range addrs {
		addr, err := ParseAddress(a)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// ParseAmount parses a base-10 payment token amount in its smallest unit
func ParseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmountFormat, s)
	}
	return v, nil
}

// ParseTokenID parses a base-10 token id
func ParseTokenID(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTokenID, s)
	}
	return id, nil
}

// IsZeroAddress reports whether addr is the null address
func IsZeroAddress(addr common.Address) bool {
	return addr == ZeroAddress
}
