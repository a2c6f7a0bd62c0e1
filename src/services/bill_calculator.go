package services

import (
	"fmt"

	"github.com/livefire2015/ez-solar-ledger/src/models"
	"github.com/shopspring/decimal"
)

// CalculatorOptions tunes how a bill is priced
type CalculatorOptions struct {
	// IncludeFixedCharge adds the rate table's fixed charge to the subtotal
	// before tax. Off by default, which keeps totals at units x rate + GST.
	IncludeFixedCharge bool
}

// BillBreakdown is the priced result for one pair of readings
type BillBreakdown struct {
	Units       decimal.Decimal `json:"units"`
	Rate        decimal.Decimal `json:"rate"`
	FixedCharge decimal.Decimal `json:"fixed_charge"` // Zero unless IncludeFixedCharge
	Subtotal    decimal.Decimal `json:"subtotal"`     // Rounded to 2 places
	TaxAmount   decimal.Decimal `json:"tax_amount"`   // Total - Subtotal
	Total       decimal.Decimal `json:"total"`
}

var hundred = decimal.NewFromInt(100)

// ComputeBill prices a reading pair for a tenant using the default options
func ComputeBill(tenant *models.Tenant, previous, present decimal.Decimal, rates models.RateTable) (*BillBreakdown, error) {
	return ComputeBillWithOptions(tenant, previous, present, rates, CalculatorOptions{})
}

// ComputeBillWithOptions prices a reading pair.
//
// Formula: total = round((units x rate [+ fixed]) x (1 + gst/100), 2)
// Tax is reported as total minus the rounded subtotal so that the receipt
// lines always add up to the total.
func ComputeBillWithOptions(
	tenant *models.Tenant,
	previous, present decimal.Decimal,
	rates models.RateTable,
	opts CalculatorOptions,
) (*BillBreakdown, error) {
	if tenant == nil {
		return nil, fmt.Errorf("%w: tenant is required", models.ErrValidation)
	}
	if previous.IsNegative() || present.IsNegative() {
		return nil, fmt.Errorf("%w: readings must be non-negative (previous %s, present %s)",
			models.ErrInvalidReading, previous, present)
	}
	if !present.GreaterThan(previous) {
		return nil, fmt.Errorf("%w: present reading %s must exceed previous reading %s",
			models.ErrInvalidReading, present, previous)
	}

	units := present.Sub(previous)
	rate := rates.RateFor(tenant.PropertyType)

	subtotal := units.Mul(rate)
	fixed := decimal.Zero
	if opts.IncludeFixedCharge {
		fixed = rates.FixedCharge
		subtotal = subtotal.Add(fixed)
	}

	tax := subtotal.Mul(rates.GSTPercent).Div(hundred)
	total := subtotal.Add(tax).Round(2)
	roundedSubtotal := subtotal.Round(2)

	return &BillBreakdown{
		Units:       units,
		Rate:        rate,
		FixedCharge: fixed,
		Subtotal:    roundedSubtotal,
		TaxAmount:   total.Sub(roundedSubtotal),
		Total:       total,
	}, nil
}
