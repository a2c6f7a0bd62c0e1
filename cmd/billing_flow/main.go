package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/livefire2015/ez-solar-ledger/src/insights"
	"github.com/livefire2015/ez-solar-ledger/src/models"
	"github.com/livefire2015/ez-solar-ledger/src/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// This example walks one billing cycle through the ledger, in memory:
// 1. Onboard tenants
// 2. Generate bills from meter readings
// 3. Settle a bill (and try to settle it twice)
// 4. Search the history
// 5. Print the dashboard summary and export the history

func main() {
	ctx := context.Background()
	logger := zap.NewNop()

	rates, err := services.NewRateService(models.DefaultRateTable(), logger)
	if err != nil {
		log.Fatal(err)
	}
	tenants := services.NewTenantDirectory(nil, logger)
	if err := tenants.Load(ctx, services.DemoTenants(time.Now().UTC())); err != nil {
		log.Fatal(err)
	}
	ledger := services.NewLedgerService(services.LedgerConfig{Logger: logger})
	provider := insights.StaticProvider{}

	fmt.Println("=== Solar Ledger - Billing Flow Example ===")
	fmt.Println()

	// Step 1: Onboard a tenant next to the demo ones
	fmt.Println("Step 1: Onboarding Tenant")
	fmt.Println("-------------------------")

	priya, err := tenants.Onboard(ctx, models.TenantInput{
		Name:         "Priya Sharma",
		Phone:        "+91 99887 66554",
		Address:      "Villa 7, Green Meadows",
		PropertyType: models.PropertyTypeResidential,
		HouseID:      "V-7",
		MeterNumber:  "MTR-103-PQR",
	})
	if err != nil {
		log.Fatal(err)
	}
	for _, t := range tenants.List() {
		fmt.Printf("  ✓ %s %-14s %-11s meter %s\n", t.ID, t.Name, t.PropertyType, t.MeterNumber)
	}
	fmt.Println()

	// Step 2: Generate bills
	fmt.Println("Step 2: Generating Bills")
	fmt.Println("------------------------")

	table := rates.Current()
	fmt.Printf("  Rates: residential %s, commercial %s, GST %s%%\n\n",
		table.ResidentialRate.StringFixed(2), table.CommercialRate.StringFixed(2), table.GSTPercent)

	readings := []struct {
		tenantID string
		present  string
	}{
		{"T-8821", "1095"},
		{"T-9910", "1240.5"},
		{priya.ID, "1062"},
	}

	var bills []*models.Bill
	for _, r := range readings {
		tenant, err := tenants.GetBillable(r.tenantID)
		if err != nil {
			log.Fatal(err)
		}
		present, err := models.ParseReading(r.present)
		if err != nil {
			log.Fatal(err)
		}
		bill, err := ledger.CreateBill(ctx, tenant, models.Readings{Present: present}, table)
		if err != nil {
			log.Fatal(err)
		}
		bills = append(bills, bill)
		fmt.Printf("  ✓ %s %-14s %s → %s = %s units, rate %s, GST %s, total %s\n",
			bill.ID, bill.TenantName,
			bill.PreviousReading, bill.PresentReading, bill.UnitsConsumed,
			bill.RatePerUnit.StringFixed(2), bill.TaxAmount.StringFixed(2), bill.TotalAmount.StringFixed(2))
	}

	// A reading below the last one is rejected and nothing is recorded
	tenant, _ := tenants.GetBillable("T-8821")
	_, err = ledger.CreateBill(ctx, tenant, models.Readings{Present: decimal.NewFromInt(1090)}, table)
	fmt.Printf("\n  Rollback reading 1090 for T-8821 rejected: %v\n", errors.Is(err, models.ErrInvalidReading))
	fmt.Printf("  Next bill for T-8821 starts at: %s\n\n", ledger.NextPreviousReading("T-8821"))

	// Step 3: Settle a bill
	fmt.Println("Step 3: Settling Bill")
	fmt.Println("---------------------")

	paid, err := ledger.MarkPaid(ctx, bills[0].ID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("  ✓ %s → %s at %s\n", paid.ID, paid.Status, paid.PaidAt.Format(time.RFC1123))

	_, err = ledger.MarkPaid(ctx, bills[0].ID)
	fmt.Printf("  Settling again rejected: %v\n\n", errors.Is(err, models.ErrInvalidTransition))

	// Step 4: Search the history
	fmt.Println("Step 4: Searching History")
	fmt.Println("-------------------------")

	pending := services.FilterBills(ledger.ListBills(), services.BillFilter{Status: models.BillStatusPending})
	fmt.Printf("  Pending bills: %d\n", len(pending))
	for _, b := range services.FilterBills(ledger.ListBills(), services.BillFilter{SearchText: "meena"}) {
		fmt.Printf("  Match for \"meena\": %s %s %s\n", b.ID, b.BillingMonth, b.Status)
	}
	fmt.Println()

	// Step 5: Dashboard
	fmt.Println("Step 5: Dashboard")
	fmt.Println("=================")

	summary := services.SummarizeBills(ledger.ListBills())
	fmt.Printf("  Bills: %d (%d paid, %d pending)\n", summary.TotalBills, summary.PaidBills, summary.PendingBills)
	fmt.Printf("  Revenue collected: %s\n", summary.TotalRevenue.StringFixed(2))
	fmt.Printf("  Outstanding: %s\n", summary.PendingAmount.StringFixed(2))
	fmt.Printf("  Units billed: %s\n", summary.TotalUnits)
	fmt.Printf("  Payment rate: %d%%\n", summary.PaymentRatePct)
	fmt.Printf("  Insight: %s\n\n", provider.BillingSummary(ctx, ledger.ListBills()))

	fmt.Printf("  Export (%s):\n", services.ExportFileName(time.Now()))
	if err := services.ExportBillsCSV(os.Stdout, ledger.ListBills()); err != nil {
		log.Fatal(err)
	}

	fmt.Println()
	fmt.Println("=== Example Complete ===")
}
