package marketplace

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidPrice = errors.New("invalid price")

// FormatPrice renders base units as a human amount with two decimals.
func FormatPrice(base *big.Int, decimals int32) string {
	if base == nil {
		return decimal.Zero.StringFixed(2)
	}
	return decimal.NewFromBigInt(base, -decimals).StringFixed(2)
}

// ParsePrice scales a human amount such as "12.5" to token base units.
func ParsePrice(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrInvalidPrice, s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w %q: negative", ErrInvalidPrice, s)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w %q: more than %d decimals", ErrInvalidPrice, s, decimals)
	}
	return scaled.BigInt(), nil
}
