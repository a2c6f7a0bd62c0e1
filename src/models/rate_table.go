package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RateTable holds the tariff configuration used to price meter readings
type RateTable struct {
	ResidentialRate decimal.Decimal `json:"residential_rate"` // Per unit
	CommercialRate  decimal.Decimal `json:"commercial_rate"`  // Per unit
	GSTPercent      decimal.Decimal `json:"gst_percent"`      // Applied to the energy subtotal
	FixedCharge     decimal.Decimal `json:"fixed_charge"`     // Flat monthly charge
}

// DefaultRateTable returns the tariff the ledger ships with
func DefaultRateTable() RateTable {
	return RateTable{
		ResidentialRate: decimal.RequireFromString("8.50"),
		CommercialRate:  decimal.RequireFromString("12.00"),
		GSTPercent:      decimal.NewFromInt(18),
		FixedCharge:     decimal.NewFromInt(150),
	}
}

// Validate rejects negative values. Anything else, including GST above 100,
// is accepted as configured.
func (r RateTable) Validate() error {
	fields := []struct {
		name  string
		value decimal.Decimal
	}{
		{"residential_rate", r.ResidentialRate},
		{"commercial_rate", r.CommercialRate},
		{"gst_percent", r.GSTPercent},
		{"fixed_charge", r.FixedCharge},
	}
	for _, f := range fields {
		if f.value.IsNegative() {
			return fmt.Errorf("%w: %s must be non-negative, got %s", ErrValidation, f.name, f.value)
		}
	}
	return nil
}

// RateFor returns the per-unit rate for a property type
func (r RateTable) RateFor(pt PropertyType) decimal.Decimal {
	if pt == PropertyTypeResidential {
		return r.ResidentialRate
	}
	return r.CommercialRate
}

// RateTableInput carries rate updates as submitted by a form, where every
// numeric field arrives as text
type RateTableInput struct {
	ResidentialRate string `json:"residential_rate"`
	CommercialRate  string `json:"commercial_rate"`
	GSTPercent      string `json:"gst_percent"`
	FixedCharge     string `json:"fixed_charge"`
}

// Parse converts the input into a validated RateTable
func (in RateTableInput) Parse() (RateTable, error) {
	var table RateTable
	var err error
	if table.ResidentialRate, err = ParseAmount("residential_rate", in.ResidentialRate); err != nil {
		return RateTable{}, err
	}
	if table.CommercialRate, err = ParseAmount("commercial_rate", in.CommercialRate); err != nil {
		return RateTable{}, err
	}
	if table.GSTPercent, err = ParseAmount("gst_percent", in.GSTPercent); err != nil {
		return RateTable{}, err
	}
	if table.FixedCharge, err = ParseAmount("fixed_charge", in.FixedCharge); err != nil {
		return RateTable{}, err
	}
	return table, table.Validate()
}
