// Package insights produces short advisory text for tenants and owners.
// The text is decorative: providers never fail, they fall back to fixed copy.
package insights

import (
	"context"

	"github.com/livefire2015/ez-solar-ledger/src/models"
	"github.com/shopspring/decimal"
)

// Fallback copy returned whenever generation is unavailable
const (
	FallbackEnergyTips     = "Conserve energy by using high-drain appliances during peak sun hours (10 AM - 3 PM)."
	FallbackBillingSummary = "Revenue is stable. Consider checking meter MTR-102 for potential maintenance."
)

// TextInsightProvider generates advisory text. Implementations must absorb
// their own failures and return fallback copy instead.
type TextInsightProvider interface {
	EnergyTips(ctx context.Context, units decimal.Decimal, period string) string
	BillingSummary(ctx context.Context, bills []models.Bill) string
}

// StaticProvider always returns the fallback copy
type StaticProvider struct{}

func (StaticProvider) EnergyTips(context.Context, decimal.Decimal, string) string {
	return FallbackEnergyTips
}

func (StaticProvider) BillingSummary(context.Context, []models.Bill) string {
	return FallbackBillingSummary
}
