package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillStatus represents the settlement status of a bill
type BillStatus string

const (
	BillStatusPending BillStatus = "PENDING" // Generated, awaiting settlement
	BillStatusPaid    BillStatus = "PAID"    // Settled; terminal
)

// Valid reports whether s is a known bill status
func (s BillStatus) Valid() bool {
	return s == BillStatusPending || s == BillStatusPaid
}

// BillingMonthLayout formats the human-readable billing period, e.g. "October 2023"
const BillingMonthLayout = "January 2006"

// Bill is one priced meter reading for a tenant.
// Readings and amounts are fixed at creation; only Status (and PaidAt) change.
type Bill struct {
	ID           string `json:"id" db:"id"`
	TenantID     string `json:"tenant_id" db:"tenant_id"`
	TenantName   string `json:"tenant_name" db:"tenant_name"` // Snapshot at creation
	BillingMonth string `json:"billing_month" db:"billing_month"`

	// Meter readings
	PreviousReading decimal.Decimal `json:"previous_reading" db:"previous_reading"`
	PresentReading  decimal.Decimal `json:"present_reading" db:"present_reading"`
	UnitsConsumed   decimal.Decimal `json:"units_consumed" db:"units_consumed"`

	// Pricing snapshot
	RatePerUnit decimal.Decimal `json:"rate_per_unit" db:"rate_per_unit"`
	TaxAmount   decimal.Decimal `json:"tax_amount" db:"tax_amount"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`

	// Status
	Status      BillStatus `json:"status" db:"status"`
	GeneratedAt time.Time  `json:"generated_at" db:"generated_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty" db:"paid_at"`
}

// CanTransitionTo checks if the bill can move to a new status
func (b *Bill) CanTransitionTo(newStatus BillStatus) bool {
	validTransitions := map[BillStatus][]BillStatus{
		BillStatusPending: {BillStatusPaid},
		BillStatusPaid:    {}, // Terminal state
	}

	for _, s := range validTransitions[b.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

// IsPaid returns true once the bill has been settled
func (b *Bill) IsPaid() bool {
	return b.Status == BillStatusPaid
}

// BillBuilder helps construct new bills
type BillBuilder struct {
	bill *Bill
}

// NewBillBuilder creates a builder for a PENDING bill generated at the given time
func NewBillBuilder(id string, generatedAt time.Time) *BillBuilder {
	return &BillBuilder{
		bill: &Bill{
			ID:           id,
			Status:       BillStatusPending,
			GeneratedAt:  generatedAt,
			BillingMonth: generatedAt.Format(BillingMonthLayout),
		},
	}
}

// WithTenant snapshots the tenant reference
func (b *BillBuilder) WithTenant(t *Tenant) *BillBuilder {
	b.bill.TenantID = t.ID
	b.bill.TenantName = t.Name
	return b
}

// WithReadings sets the meter readings and the consumed units
func (b *BillBuilder) WithReadings(previous, present decimal.Decimal) *BillBuilder {
	b.bill.PreviousReading = previous
	b.bill.PresentReading = present
	b.bill.UnitsConsumed = present.Sub(previous)
	return b
}

// WithAmounts sets the pricing snapshot
func (b *BillBuilder) WithAmounts(rate, tax, total decimal.Decimal) *BillBuilder {
	b.bill.RatePerUnit = rate
	b.bill.TaxAmount = tax
	b.bill.TotalAmount = total
	return b
}

// Build returns the bill
func (b *BillBuilder) Build() *Bill {
	return b.bill
}

// BillSummary is the dashboard view of the ledger
type BillSummary struct {
	TotalBills     int             `json:"total_bills"`
	PaidBills      int             `json:"paid_bills"`
	PendingBills   int             `json:"pending_bills"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`  // Sum of PAID totals
	PendingAmount  decimal.Decimal `json:"pending_amount"` // Sum of PENDING totals
	TotalUnits     decimal.Decimal `json:"total_units"`
	PaymentRatePct int             `json:"payment_rate_pct"` // Paid bills as a rounded percentage
}
