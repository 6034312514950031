package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of decimals between wei and ether.
const EtherDecimals = 18

// ShortenAddress renders an address as 0x1234...abcd.
func ShortenAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// IsValidAddress reports whether s is 0x followed by exactly 40 hex characters.
// Checksum casing is not verified.
func IsValidAddress(s string) bool {
	return len(s) == 2+2*common.AddressLength && hasHexPrefix(s) && common.IsHexAddress(s)
}

// IsValidTxHash reports whether s is 0x followed by exactly 64 hex characters.
func IsValidTxHash(s string) bool {
	if len(s) != 2+2*common.HashLength || !hasHexPrefix(s) {
		return false
	}
	_, err := hexutil.Decode(s)
	return err == nil
}

// common.IsHexAddress also accepts a bare or upper-case "0X" prefix.
func hasHexPrefix(s string) bool {
	return strings.HasPrefix(s, "0x")
}

// WeiToEth converts a base-10 wei string to ether.
func WeiToEth(wei string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(wei))
	if err != nil {
		return 0, fmt.Errorf("invalid wei amount %q: %w", wei, err)
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("invalid wei amount %q: fractional wei", wei)
	}
	f, _ := d.Shift(-EtherDecimals).Float64()
	return f, nil
}

// ParseTokenAmount converts a decimal amount such as "1.5" into base units.
// Amounts with more fractional digits than decimals are rejected.
func ParseTokenAmount(amount string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("invalid token amount %q: %w", amount, err)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("invalid token amount %q: more than %d decimals", amount, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatUnits renders base units as a decimal string with the given decimals.
func FormatUnits(value *big.Int, decimals int32) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -decimals).String()
}

// ParseDisplayAmount extracts the number from a rendered amount such as
// "0.25 ETH", "1,234.5" or "2.5%". Every character other than digits and the
// decimal point is dropped.
func ParseDisplayAmount(text string) (decimal.Decimal, error) {
	numeric := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, text)
	if numeric == "" {
		return decimal.Zero, fmt.Errorf("no amount in %q", text)
	}
	d, err := decimal.NewFromString(numeric)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", text, err)
	}
	return d, nil
}
