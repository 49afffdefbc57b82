package catalog

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidPrice is returned by ParsePrice for malformed or negative input.
var ErrInvalidPrice error = goerrors.New("invalid price", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidPrice)

// PriceScale is the number of fraction digits used when formatting prices.
const PriceScale = 2

// ParsePrice accepts "10.50", "10,50" and " 10 " style input. Empty input is zero.
func ParsePrice(raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return decimal.Zero, nil
	}

	value = strings.ReplaceAll(value, " ", "")
	value = strings.ReplaceAll(value, ",", ".")

	price, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, ErrInvalidPrice
	}
	if price.IsNegative() {
		return decimal.Zero, ErrInvalidPrice
	}
	return price.Round(PriceScale), nil
}

// MustParsePrice is ParsePrice for literals in fixtures and tests.
func MustParsePrice(raw string) decimal.Decimal {
	price, err := ParsePrice(raw)
	if err != nil {
		panic(err)
	}
	return price
}

// FormatPrice renders a price with PriceScale fraction digits, e.g. "10.50".
func FormatPrice(price decimal.Decimal) string {
	return price.StringFixed(PriceScale)
}
