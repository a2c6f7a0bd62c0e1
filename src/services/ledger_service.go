package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-solar-ledger/src/events"
	"github.com/livefire2015/ez-solar-ledger/src/models"
	"github.com/livefire2015/ez-solar-ledger/src/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerConfig wires the ledger's collaborators. Every field is optional.
type LedgerConfig struct {
	Repository      repository.BillRepository // Nil keeps the ledger in memory only
	Publisher       events.Publisher
	Logger          *zap.Logger
	Options         CalculatorOptions
	BaselineReading *decimal.Decimal // Defaults to models.DefaultBaselineReading
	Clock           func() time.Time
	NewID           func() string
}

// LedgerService owns the append-only collection of bills.
// Creation and settlement are serialized by a single mutex; a mutation is
// committed in memory only after the repository accepted it.
type LedgerService struct {
	mu    sync.Mutex
	bills []models.Bill
	index map[string]int

	repo      repository.BillRepository
	publisher events.Publisher
	logger    *zap.Logger
	opts      CalculatorOptions
	baseline  decimal.Decimal
	clock     func() time.Time
	newID     func() string
}

// NewLedgerService creates an empty ledger
func NewLedgerService(cfg LedgerConfig) *LedgerService {
	s := &LedgerService{
		index:     make(map[string]int),
		repo:      cfg.Repository,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		opts:      cfg.Options,
		baseline:  models.DefaultBaselineReading,
		clock:     cfg.Clock,
		newID:     cfg.NewID,
	}
	if cfg.BaselineReading != nil {
		s.baseline = *cfg.BaselineReading
	}
	if s.publisher == nil {
		s.publisher = events.NoopPublisher{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.newID == nil {
		s.newID = generateBillID
	}
	return s
}

// now is the ledger clock at the microsecond resolution every store keeps
func (s *LedgerService) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// generateBillID returns ids shaped like "BL-3F9A1C0D"
func generateBillID() string {
	return "BL-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

// Load replaces the in-memory ledger with the repository contents
func (s *LedgerService) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	bills, err := s.repo.LoadBills(ctx)
	if err != nil {
		return fmt.Errorf("failed to load bills: %w", err)
	}

	index := make(map[string]int, len(bills))
	for i, b := range bills {
		if _, dup := index[b.ID]; dup {
			return fmt.Errorf("failed to load bills: duplicate bill id %s", b.ID)
		}
		index[b.ID] = i
	}

	s.mu.Lock()
	s.bills = bills
	s.index = index
	s.mu.Unlock()

	s.logger.Info("Ledger loaded", zap.Int("bills", len(bills)))
	return nil
}

// CreateBill prices the readings for a tenant and appends a PENDING bill.
//
// When readings.Previous is nil it is seeded from the tenant's most recent
// bill, or from the baseline reading for a tenant with no history. A supplied
// previous reading must match the last present reading when history exists.
// Nothing is recorded if pricing or persistence fails.
func (s *LedgerService) CreateBill(
	ctx context.Context,
	tenant *models.Tenant,
	readings models.Readings,
	rates models.RateTable,
) (*models.Bill, error) {
	if tenant == nil {
		return nil, fmt.Errorf("%w: tenant is required", models.ErrValidation)
	}
	if !tenant.IsBillable() {
		return nil, fmt.Errorf("%w: %s is %s", models.ErrTenantNotBillable, tenant.ID, tenant.Status)
	}

	s.mu.Lock()
	bill, err := s.createLocked(ctx, tenant, readings, rates)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info("Bill generated",
		zap.String("bill_id", bill.ID),
		zap.String("tenant_id", bill.TenantID),
		zap.String("units", bill.UnitsConsumed.String()),
		zap.String("total", bill.TotalAmount.StringFixed(2)),
	)
	if err := s.publisher.BillCreated(ctx, *bill); err != nil {
		s.logger.Warn("Failed to publish bill created event", zap.String("bill_id", bill.ID), zap.Error(err))
	}
	return bill, nil
}

func (s *LedgerService) createLocked(
	ctx context.Context,
	tenant *models.Tenant,
	readings models.Readings,
	rates models.RateTable,
) (*models.Bill, error) {
	previous, err := s.resolvePreviousLocked(tenant.ID, readings.Previous)
	if err != nil {
		return nil, err
	}

	breakdown, err := ComputeBillWithOptions(tenant, previous, readings.Present, rates, s.opts)
	if err != nil {
		return nil, err
	}

	id, err := s.uniqueIDLocked()
	if err != nil {
		return nil, err
	}

	bill := models.NewBillBuilder(id, s.now()).
		WithTenant(tenant).
		WithReadings(previous, readings.Present).
		WithAmounts(breakdown.Rate, breakdown.TaxAmount, breakdown.Total).
		Build()

	next := make([]models.Bill, len(s.bills), len(s.bills)+1)
	copy(next, s.bills)
	next = append(next, *bill)

	if s.repo != nil {
		if err := s.repo.SaveBills(ctx, next); err != nil {
			return nil, fmt.Errorf("failed to save bill: %w", err)
		}
	}

	s.bills = next
	s.index[bill.ID] = len(next) - 1
	out := *bill
	return &out, nil
}

func (s *LedgerService) resolvePreviousLocked(tenantID string, supplied *decimal.Decimal) (decimal.Decimal, error) {
	last := s.latestForTenantLocked(tenantID)
	if supplied == nil {
		if last == nil {
			return s.baseline, nil
		}
		return last.PresentReading, nil
	}
	if last != nil && !supplied.Equal(last.PresentReading) {
		return decimal.Zero, fmt.Errorf("%w: previous reading %s does not match last billed reading %s",
			models.ErrInvalidReading, supplied, last.PresentReading)
	}
	return *supplied, nil
}

// latestForTenantLocked picks the newest bill by GeneratedAt; ties go to the later insertion
func (s *LedgerService) latestForTenantLocked(tenantID string) *models.Bill {
	var latest *models.Bill
	for i := range s.bills {
		b := &s.bills[i]
		if b.TenantID != tenantID {
			continue
		}
		if latest == nil || !b.GeneratedAt.Before(latest.GeneratedAt) {
			latest = b
		}
	}
	return latest
}

func (s *LedgerService) uniqueIDLocked() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		id := s.newID()
		if _, taken := s.index[id]; !taken && id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique bill id")
}

// MarkPaid settles a PENDING bill. Settling a bill twice fails with
// models.ErrInvalidTransition.
func (s *LedgerService) MarkPaid(ctx context.Context, billID string) (*models.Bill, error) {
	s.mu.Lock()
	bill, err := s.markPaidLocked(ctx, billID)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info("Bill settled", zap.String("bill_id", bill.ID), zap.String("tenant_id", bill.TenantID))
	if err := s.publisher.BillPaid(ctx, *bill); err != nil {
		s.logger.Warn("Failed to publish bill paid event", zap.String("bill_id", bill.ID), zap.Error(err))
	}
	return bill, nil
}

func (s *LedgerService) markPaidLocked(ctx context.Context, billID string) (*models.Bill, error) {
	i, ok := s.index[billID]
	if !ok {
		return nil, fmt.Errorf("%w: bill %s", models.ErrNotFound, billID)
	}

	updated := s.bills[i]
	if !updated.CanTransitionTo(models.BillStatusPaid) {
		return nil, fmt.Errorf("%w: bill %s is already %s", models.ErrInvalidTransition, billID, updated.Status)
	}
	now := s.now()
	updated.Status = models.BillStatusPaid
	updated.PaidAt = &now

	next := make([]models.Bill, len(s.bills))
	copy(next, s.bills)
	next[i] = updated

	if s.repo != nil {
		if err := s.repo.SaveBills(ctx, next); err != nil {
			return nil, fmt.Errorf("failed to save settlement: %w", err)
		}
	}

	s.bills = next
	return &updated, nil
}

// ListBills returns every bill in creation order
func (s *LedgerService) ListBills() []models.Bill {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Bill, len(s.bills))
	copy(out, s.bills)
	return out
}

// GetBill returns a single bill
func (s *LedgerService) GetBill(billID string) (*models.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[billID]
	if !ok {
		return nil, fmt.Errorf("%w: bill %s", models.ErrNotFound, billID)
	}
	b := s.bills[i]
	return &b, nil
}

// BillsForTenant returns a tenant's bills in creation order
func (s *LedgerService) BillsForTenant(tenantID string) []models.Bill {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Bill
	for _, b := range s.bills {
		if b.TenantID == tenantID {
			out = append(out, b)
		}
	}
	return out
}

// LatestBillForTenant returns the tenant's most recent bill by generation time
func (s *LedgerService) LatestBillForTenant(tenantID string) (*models.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := s.latestForTenantLocked(tenantID)
	if last == nil {
		return nil, fmt.Errorf("%w: no bills for tenant %s", models.ErrNotFound, tenantID)
	}
	b := *last
	return &b, nil
}

// NextPreviousReading returns the reading the next bill for a tenant starts from
func (s *LedgerService) NextPreviousReading(tenantID string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last := s.latestForTenantLocked(tenantID); last != nil {
		return last.PresentReading
	}
	return s.baseline
}

// PreviewBill prices readings without recording anything. The returned
// previous reading is the one CreateBill would use.
func (s *LedgerService) PreviewBill(
	tenant *models.Tenant,
	readings models.Readings,
	rates models.RateTable,
) (decimal.Decimal, *BillBreakdown, error) {
	if tenant == nil {
		return decimal.Zero, nil, fmt.Errorf("%w: tenant is required", models.ErrValidation)
	}
	s.mu.Lock()
	previous, err := s.resolvePreviousLocked(tenant.ID, readings.Previous)
	s.mu.Unlock()
	if err != nil {
		return decimal.Zero, nil, err
	}
	breakdown, err := ComputeBillWithOptions(tenant, previous, readings.Present, rates, s.opts)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return previous, breakdown, nil
}

// TenantStatement is a tenant's own view of the ledger
type TenantStatement struct {
	TenantID    string        `json:"tenant_id"`
	PendingBill *models.Bill  `json:"pending_bill,omitempty"` // Oldest unpaid bill
	PaidBills   []models.Bill `json:"paid_bills"`
}

// StatementForTenant collects the oldest pending bill and the paid history
func (s *LedgerService) StatementForTenant(tenantID string) TenantStatement {
	stmt := TenantStatement{TenantID: tenantID, PaidBills: []models.Bill{}}
	for _, b := range s.BillsForTenant(tenantID) {
		switch b.Status {
		case models.BillStatusPending:
			if stmt.PendingBill == nil {
				bill := b
				stmt.PendingBill = &bill
			}
		case models.BillStatusPaid:
			stmt.PaidBills = append(stmt.PaidBills, b)
		}
	}
	return stmt
}
