package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/livefire2015/ez-solar-ledger/src/models"
	"github.com/shopspring/decimal"
)

// memoryBillRepo is an in-memory BillRepository that can be told to fail
type memoryBillRepo struct {
	mu    sync.Mutex
	bills []models.Bill
	saves int
	fail  error
}

func (r *memoryBillRepo) LoadBills(ctx context.Context) ([]models.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Bill(nil), r.bills...), nil
}

func (r *memoryBillRepo) SaveBills(ctx context.Context, bills []models.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.saves++
	r.bills = append([]models.Bill(nil), bills...)
	return nil
}

// recordingPublisher remembers every event it receives
type recordingPublisher struct {
	mu      sync.Mutex
	created []string
	paid    []string
	fail    error
}

func (p *recordingPublisher) BillCreated(ctx context.Context, bill models.Bill) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, bill.ID)
	return p.fail
}

func (p *recordingPublisher) BillPaid(ctx context.Context, bill models.Bill) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paid = append(p.paid, bill.ID)
	return p.fail
}

// steppingClock advances one hour per call
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Hour)
		return now
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("BL-%08d", n)
	}
}

var testStart = time.Date(2023, time.October, 1, 8, 0, 0, 0, time.UTC)

func newTestLedger(repo *memoryBillRepo, pub *recordingPublisher) *LedgerService {
	cfg := LedgerConfig{
		Clock: steppingClock(testStart),
		NewID: sequentialIDs(),
	}
	if repo != nil {
		cfg.Repository = repo
	}
	if pub != nil {
		cfg.Publisher = pub
	}
	return NewLedgerService(cfg)
}

func present(s string) models.Readings {
	return models.Readings{Present: decimal.RequireFromString(s)}
}

func TestCreateBillFirstBillUsesBaseline(t *testing.T) {
	ledger := newTestLedger(nil, nil)

	bill, err := ledger.CreateBill(context.Background(), residentialTenant, present("1095"), models.DefaultRateTable())
	if err != nil {
		t.Fatalf("CreateBill() unexpected error: %v", err)
	}

	if bill.ID != "BL-00000001" {
		t.Errorf("ID = %s, want BL-00000001", bill.ID)
	}
	if bill.Status != models.BillStatusPending {
		t.Errorf("Status = %s, want PENDING", bill.Status)
	}
	if !bill.PreviousReading.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("PreviousReading = %s, want 1000", bill.PreviousReading)
	}
	if !bill.UnitsConsumed.Equal(decimal.NewFromInt(95)) {
		t.Errorf("UnitsConsumed = %s, want 95", bill.UnitsConsumed)
	}
	if !bill.RatePerUnit.Equal(decimal.RequireFromString("8.50")) {
		t.Errorf("RatePerUnit = %s, want 8.50", bill.RatePerUnit)
	}
	if !bill.TotalAmount.Equal(decimal.RequireFromString("952.85")) {
		t.Errorf("TotalAmount = %s, want 952.85", bill.TotalAmount)
	}
	if bill.BillingMonth != "October 2023" {
		t.Errorf("BillingMonth = %q, want October 2023", bill.BillingMonth)
	}
	if !bill.GeneratedAt.Equal(testStart) {
		t.Errorf("GeneratedAt = %v, want %v", bill.GeneratedAt, testStart)
	}

	bills := ledger.ListBills()
	if len(bills) != 1 || bills[0].ID != bill.ID {
		t.Fatalf("ListBills() = %+v, want the new bill", bills)
	}
}

func TestCreateBillMatchesComputeBill(t *testing.T) {
	ledger := newTestLedger(nil, nil)
	rates := models.DefaultRateTable()
	prev := decimal.NewFromInt(1250)
	readings := models.Readings{Previous: &prev, Present: decimal.NewFromInt(1345)}

	bill, err := ledger.CreateBill(context.Background(), residentialTenant, readings, rates)
	if err != nil {
		t.Fatalf("CreateBill() unexpected error: %v", err)
	}
	want, err := ComputeBill(residentialTenant, prev, readings.Present, rates)
	if err != nil {
		t.Fatal(err)
	}

	bills := ledger.ListBills()
	if len(bills) != 1 {
		t.Fatalf("ListBills() = %d bills, want 1", len(bills))
	}
	got := bills[0]
	if got.ID != bill.ID || got.Status != models.BillStatusPending {
		t.Errorf("listed bill = %s/%s, want %s/PENDING", got.ID, got.Status, bill.ID)
	}
	if !got.UnitsConsumed.Equal(want.Units) || !got.TaxAmount.Equal(want.TaxAmount) || !got.TotalAmount.Equal(want.Total) {
		t.Errorf("listed bill amounts = %s/%s/%s, want %s/%s/%s",
			got.UnitsConsumed, got.TaxAmount, got.TotalAmount, want.Units, want.TaxAmount, want.Total)
	}
	if !got.TotalAmount.Equal(decimal.RequireFromString("952.85")) {
		t.Errorf("TotalAmount = %s, want 952.85", got.TotalAmount)
	}
}

func TestCreateBillSeedsPreviousFromHistory(t *testing.T) {
	ledger := newTestLedger(nil, nil)
	ctx := context.Background()
	rates := models.DefaultRateTable()

	if _, err := ledger.CreateBill(ctx, residentialTenant, present("1095"), rates); err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.CreateBill(ctx, commercialTenant, present("1500"), rates); err != nil {
		t.Fatal(err)
	}
	second, err := ledger.CreateBill(ctx, residentialTenant, present("1180"), rates)
	if err != nil {
		t.Fatal(err)
	}

	if !second.PreviousReading.Equal(decimal.NewFromInt(1095)) {
		t.Errorf("PreviousReading = %s, want 1095", second.PreviousReading)
	}
	if !second.UnitsConsumed.Equal(decimal.NewFromInt(85)) {
		t.Errorf("UnitsConsumed = %s, want 85", second.UnitsConsumed)
	}
	if got := ledger.NextPreviousReading(residentialTenant.ID); !got.Equal(decimal.NewFromInt(1180)) {
		t.Errorf("NextPreviousReading = %s, want 1180", got)
	}
	if got := ledger.NextPreviousReading("T-0000"); !got.Equal(models.DefaultBaselineReading) {
		t.Errorf("NextPreviousReading for new tenant = %s, want baseline", got)
	}

	latest, err := ledger.LatestBillForTenant(residentialTenant.ID)
	if err != nil || latest.ID != second.ID {
		t.Errorf("LatestBillForTenant() = %v, %v; want %s", latest, err, second.ID)
	}
	if _, err := ledger.LatestBillForTenant("T-0000"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("LatestBillForTenant() for new tenant error = %v, want ErrNotFound", err)
	}
}

func TestCreateBillSuppliedPreviousReading(t *testing.T) {
	ctx := context.Background()
	rates := models.DefaultRateTable()

	t.Run("accepted for a tenant without history", func(t *testing.T) {
		ledger := newTestLedger(nil, nil)
		prev := decimal.NewFromInt(500)
		bill, err := ledger.CreateBill(ctx, residentialTenant, models.Readings{Previous: &prev, Present: decimal.NewFromInt(520)}, rates)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bill.UnitsConsumed.Equal(decimal.NewFromInt(20)) {
			t.Errorf("UnitsConsumed = %s, want 20", bill.UnitsConsumed)
		}
	})

	t.Run("must match the last present reading", func(t *testing.T) {
		ledger := newTestLedger(nil, nil)
		if _, err := ledger.CreateBill(ctx, residentialTenant, present("1095"), rates); err != nil {
			t.Fatal(err)
		}
		prev := decimal.NewFromInt(1000)
		_, err := ledger.CreateBill(ctx, residentialTenant, models.Readings{Previous: &prev, Present: decimal.NewFromInt(1200)}, rates)
		if !errors.Is(err, models.ErrInvalidReading) {
			t.Errorf("error = %v, want ErrInvalidReading", err)
		}
		if len(ledger.ListBills()) != 1 {
			t.Errorf("rejected bill was recorded")
		}
	})
}

func TestCreateBillRejectsInvalidReadings(t *testing.T) {
	repo := &memoryBillRepo{}
	pub := &recordingPublisher{}
	ledger := newTestLedger(repo, pub)
	ctx := context.Background()

	for _, reading := range []string{"1000", "999", "0"} {
		_, err := ledger.CreateBill(ctx, residentialTenant, present(reading), models.DefaultRateTable())
		if !errors.Is(err, models.ErrInvalidReading) {
			t.Errorf("present %s: error = %v, want ErrInvalidReading", reading, err)
		}
	}
	if len(ledger.ListBills()) != 0 {
		t.Errorf("ListBills() = %d bills, want 0", len(ledger.ListBills()))
	}
	if repo.saves != 0 {
		t.Errorf("repository saved %d times, want 0", repo.saves)
	}
	if len(pub.created) != 0 {
		t.Errorf("published %d events, want 0", len(pub.created))
	}
}

func TestCreateBillArchivedTenant(t *testing.T) {
	ledger := newTestLedger(nil, nil)
	archived := *residentialTenant
	archived.Status = models.TenantStatusArchived

	_, err := ledger.CreateBill(context.Background(), &archived, present("1095"), models.DefaultRateTable())
	if !errors.Is(err, models.ErrTenantNotBillable) {
		t.Errorf("error = %v, want ErrTenantNotBillable", err)
	}
}

func TestCreateBillKeepsRateSnapshot(t *testing.T) {
	ledger := newTestLedger(nil, nil)
	ctx := context.Background()

	bill, err := ledger.CreateBill(ctx, residentialTenant, present("1095"), models.DefaultRateTable())
	if err != nil {
		t.Fatal(err)
	}

	raised := models.DefaultRateTable()
	raised.ResidentialRate = decimal.NewFromInt(20)
	if _, err := ledger.CreateBill(ctx, commercialTenant, present("1010"), raised); err != nil {
		t.Fatal(err)
	}

	stored, err := ledger.GetBill(bill.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.RatePerUnit.Equal(decimal.RequireFromString("8.50")) || !stored.TotalAmount.Equal(decimal.RequireFromString("952.85")) {
		t.Errorf("stored bill changed after a rate update: rate %s total %s", stored.RatePerUnit, stored.TotalAmount)
	}
}

func TestCreateBillPersistenceFailureLeavesNoRecord(t *testing.T) {
	repo := &memoryBillRepo{fail: errors.New("disk full")}
	pub := &recordingPublisher{}
	ledger := newTestLedger(repo, pub)

	_, err := ledger.CreateBill(context.Background(), residentialTenant, present("1095"), models.DefaultRateTable())
	if err == nil {
		t.Fatal("CreateBill() expected an error")
	}
	if len(ledger.ListBills()) != 0 {
		t.Errorf("bill was committed despite the failed save")
	}
	if len(pub.created) != 0 {
		t.Errorf("event published for an uncommitted bill")
	}
	if got := ledger.NextPreviousReading(residentialTenant.ID); !got.Equal(models.DefaultBaselineReading) {
		t.Errorf("NextPreviousReading = %s, want baseline", got)
	}
}

func TestCreateBillPublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{fail: errors.New("broker down")}
	ledger := newTestLedger(&memoryBillRepo{}, pub)

	if _, err := ledger.CreateBill(context.Background(), residentialTenant, present("1095"), models.DefaultRateTable()); err != nil {
		t.Fatalf("CreateBill() error = %v, want nil", err)
	}
	if len(ledger.ListBills()) != 1 {
		t.Errorf("bill not recorded")
	}
	if len(pub.created) != 1 {
		t.Errorf("created events = %d, want 1", len(pub.created))
	}
}

func TestMarkPaid(t *testing.T) {
	repo := &memoryBillRepo{}
	pub := &recordingPublisher{}
	ledger := newTestLedger(repo, pub)
	ctx := context.Background()

	bill, err := ledger.CreateBill(ctx, residentialTenant, present("1095"), models.DefaultRateTable())
	if err != nil {
		t.Fatal(err)
	}

	paid, err := ledger.MarkPaid(ctx, bill.ID)
	if err != nil {
		t.Fatalf("MarkPaid() unexpected error: %v", err)
	}
	if paid.Status != models.BillStatusPaid {
		t.Errorf("Status = %s, want PAID", paid.Status)
	}
	if paid.PaidAt == nil || !paid.PaidAt.Equal(testStart.Add(time.Hour)) {
		t.Errorf("PaidAt = %v, want %v", paid.PaidAt, testStart.Add(time.Hour))
	}
	if !paid.TotalAmount.Equal(bill.TotalAmount) || !paid.PresentReading.Equal(bill.PresentReading) {
		t.Errorf("settlement changed amounts or readings")
	}
	if got := repo.bills[0].Status; got != models.BillStatusPaid {
		t.Errorf("persisted status = %s, want PAID", got)
	}
	if len(pub.paid) != 1 || pub.paid[0] != bill.ID {
		t.Errorf("paid events = %v, want [%s]", pub.paid, bill.ID)
	}

	// A second settlement is rejected and leaves the bill untouched
	_, err = ledger.MarkPaid(ctx, bill.ID)
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("second MarkPaid() error = %v, want ErrInvalidTransition", err)
	}
	stored, _ := ledger.GetBill(bill.ID)
	if !stored.PaidAt.Equal(*paid.PaidAt) {
		t.Errorf("PaidAt moved on the rejected settlement")
	}
	if len(pub.paid) != 1 {
		t.Errorf("paid events = %d, want 1", len(pub.paid))
	}
}

func TestMarkPaidUnknownBill(t *testing.T) {
	ledger := newTestLedger(nil, nil)
	_, err := ledger.MarkPaid(context.Background(), "BL-MISSING")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestMarkPaidPersistenceFailure(t *testing.T) {
	repo := &memoryBillRepo{}
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	bill, err := ledger.CreateBill(ctx, residentialTenant, present("1095"), models.DefaultRateTable())
	if err != nil {
		t.Fatal(err)
	}
	repo.fail = errors.New("disk full")

	if _, err := ledger.MarkPaid(ctx, bill.ID); err == nil {
		t.Fatal("MarkPaid() expected an error")
	}
	stored, _ := ledger.GetBill(bill.ID)
	if stored.Status != models.BillStatusPending || stored.PaidAt != nil {
		t.Errorf("bill = %s/%v, want PENDING with no PaidAt", stored.Status, stored.PaidAt)
	}

	repo.fail = nil
	if _, err := ledger.MarkPaid(ctx, bill.ID); err != nil {
		t.Errorf("retry after failure: %v", err)
	}
}

func TestListBillsReturnsCopy(t *testing.T) {
	ledger := newTestLedger(nil, nil)
	if _, err := ledger.CreateBill(context.Background(), residentialTenant, present("1095"), models.DefaultRateTable()); err != nil {
		t.Fatal(err)
	}

	bills := ledger.ListBills()
	bills[0].Status = models.BillStatusPaid
	bills[0].TotalAmount = decimal.Zero

	again := ledger.ListBills()
	if again[0].Status != models.BillStatusPending || again[0].TotalAmount.IsZero() {
		t.Errorf("mutating the returned slice changed the ledger")
	}
}

func TestLoadRestoresLedger(t *testing.T) {
	repo := &memoryBillRepo{}
	ctx := context.Background()

	first := newTestLedger(repo, nil)
	bill, err := first.CreateBill(ctx, residentialTenant, present("1095"), models.DefaultRateTable())
	if err != nil {
		t.Fatal(err)
	}

	second := NewLedgerService(LedgerConfig{Repository: repo})
	if err := second.Load(ctx); err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if _, err := second.GetBill(bill.ID); err != nil {
		t.Errorf("GetBill() after Load: %v", err)
	}
	if got := second.NextPreviousReading(residentialTenant.ID); !got.Equal(decimal.NewFromInt(1095)) {
		t.Errorf("NextPreviousReading after Load = %s, want 1095", got)
	}
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	repo := &memoryBillRepo{bills: []models.Bill{{ID: "BL-1"}, {ID: "BL-1"}}}
	ledger := NewLedgerService(LedgerConfig{Repository: repo})
	if err := ledger.Load(context.Background()); err == nil {
		t.Error("Load() expected an error for duplicate ids")
	}
}

func TestCreateBillRetriesIDCollision(t *testing.T) {
	ids := []string{"BL-AAAAAAAA", "BL-AAAAAAAA", "BL-BBBBBBBB"}
	n := 0
	ledger := NewLedgerService(LedgerConfig{
		Clock: steppingClock(testStart),
		NewID: func() string {
			id := ids[n]
			n++
			return id
		},
	})
	ctx := context.Background()

	first, err := ledger.CreateBill(ctx, residentialTenant, present("1095"), models.DefaultRateTable())
	if err != nil {
		t.Fatal(err)
	}
	second, err := ledger.CreateBill(ctx, commercialTenant, present("1010"), models.DefaultRateTable())
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == second.ID {
		t.Errorf("duplicate bill id %s", first.ID)
	}
}

func TestPreviewBillDoesNotRecord(t *testing.T) {
	ledger := newTestLedger(nil, nil)

	previous, breakdown, err := ledger.PreviewBill(residentialTenant, present("1095"), models.DefaultRateTable())
	if err != nil {
		t.Fatalf("PreviewBill() unexpected error: %v", err)
	}
	if !previous.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("previous = %s, want 1000", previous)
	}
	if !breakdown.Total.Equal(decimal.RequireFromString("952.85")) {
		t.Errorf("Total = %s, want 952.85", breakdown.Total)
	}
	if len(ledger.ListBills()) != 0 {
		t.Errorf("preview recorded a bill")
	}
}

func TestStatementForTenant(t *testing.T) {
	ledger := newTestLedger(nil, nil)
	ctx := context.Background()
	rates := models.DefaultRateTable()

	first, _ := ledger.CreateBill(ctx, residentialTenant, present("1095"), rates)
	second, _ := ledger.CreateBill(ctx, residentialTenant, present("1180"), rates)
	if _, err := ledger.CreateBill(ctx, commercialTenant, present("1100"), rates); err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.MarkPaid(ctx, first.ID); err != nil {
		t.Fatal(err)
	}

	stmt := ledger.StatementForTenant(residentialTenant.ID)
	if stmt.PendingBill == nil || stmt.PendingBill.ID != second.ID {
		t.Errorf("PendingBill = %+v, want %s", stmt.PendingBill, second.ID)
	}
	if len(stmt.PaidBills) != 1 || stmt.PaidBills[0].ID != first.ID {
		t.Errorf("PaidBills = %+v, want [%s]", stmt.PaidBills, first.ID)
	}

	empty := ledger.StatementForTenant("T-0000")
	if empty.PendingBill != nil || len(empty.PaidBills) != 0 {
		t.Errorf("statement for unknown tenant = %+v, want empty", empty)
	}
}

func TestConcurrentCreateBill(t *testing.T) {
	ledger := NewLedgerService(LedgerConfig{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tenant := &models.Tenant{
				ID:           fmt.Sprintf("T-%06d", i),
				Name:         "Tenant",
				PropertyType: models.PropertyTypeResidential,
				Status:       models.TenantStatusActive,
			}
			if _, err := ledger.CreateBill(ctx, tenant, present("1010"), models.DefaultRateTable()); err != nil {
				t.Errorf("CreateBill() unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	bills := ledger.ListBills()
	if len(bills) != 20 {
		t.Fatalf("ListBills() = %d bills, want 20", len(bills))
	}
	seen := make(map[string]bool)
	for _, b := range bills {
		if seen[b.ID] {
			t.Errorf("duplicate id %s", b.ID)
		}
		seen[b.ID] = true
	}
}

func TestLedgerTimestampsKeepMicrosecondResolution(t *testing.T) {
	precise := time.Date(2023, time.October, 1, 8, 0, 0, 123456789, time.UTC)
	ledger := NewLedgerService(LedgerConfig{
		Clock: func() time.Time { return precise },
		NewID: sequentialIDs(),
	})
	ctx := context.Background()

	bill, err := ledger.CreateBill(ctx, residentialTenant, present("1000.0004"), models.DefaultRateTable())
	if err != nil {
		t.Fatalf("CreateBill() unexpected error: %v", err)
	}
	want := precise.Truncate(time.Microsecond)
	if !bill.GeneratedAt.Equal(want) {
		t.Errorf("GeneratedAt = %v, want %v", bill.GeneratedAt, want)
	}
	if !bill.UnitsConsumed.Equal(decimal.RequireFromString("0.0004")) {
		t.Errorf("UnitsConsumed = %s, want 0.0004", bill.UnitsConsumed)
	}

	paid, err := ledger.MarkPaid(ctx, bill.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !paid.PaidAt.Equal(want) {
		t.Errorf("PaidAt = %v, want %v", paid.PaidAt, want)
	}
}
