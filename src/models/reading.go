package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultBaselineReading seeds the previous reading of a tenant with no billing history
var DefaultBaselineReading = decimal.NewFromInt(1000)

// ParseReading parses a meter reading entered as text. Readings are cumulative
// counters, so negative values are rejected along with anything non-numeric.
func ParseReading(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: reading is required", ErrInvalidReading)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidReading, raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: reading %s is negative", ErrInvalidReading, d)
	}
	return d, nil
}

// ReadingFromFloat converts a float reading, rejecting NaN and infinities
func ReadingFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: reading is not finite", ErrInvalidReading)
	}
	if f < 0 {
		return decimal.Zero, fmt.Errorf("%w: reading %v is negative", ErrInvalidReading, f)
	}
	return decimal.NewFromFloat(f), nil
}

// ParseAmount parses a non-negative configuration amount entered as text
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q is not a number", ErrValidation, field, raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s must be non-negative, got %s", ErrValidation, field, d)
	}
	return d, nil
}

// Readings holds the meter readings supplied for one bill. A nil Previous
// means the ledger seeds it from the tenant's most recent bill.
type Readings struct {
	Previous *decimal.Decimal
	Present  decimal.Decimal
}
