package services

import (
	"strings"

	"github.com/livefire2015/ez-solar-ledger/src/models"
	"github.com/shopspring/decimal"
)

// StatusAll disables status filtering
const StatusAll = "ALL"

// BillFilter narrows a list of bills. Zero values match everything.
type BillFilter struct {
	SearchText string            // Case-insensitive substring of tenant name or billing month
	Status     models.BillStatus // PENDING, PAID, or "" / ALL
}

// FilterBills returns the bills matching every set predicate, keeping their
// relative order. The input is not modified.
func FilterBills(bills []models.Bill, filter BillFilter) []models.Bill {
	needle := strings.ToLower(filter.SearchText)
	status := filter.Status
	if status == StatusAll {
		status = ""
	}

	out := make([]models.Bill, 0, len(bills))
	for _, b := range bills {
		if status != "" && b.Status != status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(b.TenantName), needle) &&
			!strings.Contains(strings.ToLower(b.BillingMonth), needle) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// ReverseBills returns a most-recent-first copy of a creation-ordered list
func ReverseBills(bills []models.Bill) []models.Bill {
	out := make([]models.Bill, len(bills))
	for i, b := range bills {
		out[len(bills)-1-i] = b
	}
	return out
}

// SummarizeBills computes the dashboard totals
func SummarizeBills(bills []models.Bill) models.BillSummary {
	summary := models.BillSummary{
		TotalBills:    len(bills),
		TotalRevenue:  decimal.Zero,
		PendingAmount: decimal.Zero,
		TotalUnits:    decimal.Zero,
	}

	for _, b := range bills {
		summary.TotalUnits = summary.TotalUnits.Add(b.UnitsConsumed)
		switch b.Status {
		case models.BillStatusPaid:
			summary.PaidBills++
			summary.TotalRevenue = summary.TotalRevenue.Add(b.TotalAmount)
		case models.BillStatusPending:
			summary.PendingBills++
			summary.PendingAmount = summary.PendingAmount.Add(b.TotalAmount)
		}
	}

	if summary.TotalBills > 0 {
		pct := decimal.NewFromInt(int64(summary.PaidBills)).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(summary.TotalBills))).
			Round(0)
		summary.PaymentRatePct = int(pct.IntPart())
	}
	return summary
}
