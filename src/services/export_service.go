package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/livefire2015/ez-solar-ledger/src/models"
)

var billCSVHeader = []string{"ID", "Tenant", "Month", "Units", "Amount", "Status", "Date"}

// ExportBillsCSV writes the bill history as CSV, one row per bill
func ExportBillsCSV(w io.Writer, bills []models.Bill) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(billCSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, b := range bills {
		row := []string{
			b.ID,
			b.TenantName,
			b.BillingMonth,
			b.UnitsConsumed.String(),
			b.TotalAmount.StringFixed(2),
			string(b.Status),
			b.GeneratedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", b.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFileName names an export generated on the given day
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("solar_history_%s.csv", now.UTC().Format("2006-01-02"))
}
