package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-solar-ledger/src/models"
	"github.com/livefire2015/ez-solar-ledger/src/repository"
	"go.uber.org/zap"
)

// TenantDirectory is the landlord's list of metered tenants
type TenantDirectory struct {
	mu      sync.Mutex
	tenants []models.Tenant

	repo   repository.TenantRepository
	logger *zap.Logger
	clock  func() time.Time
	newID  func() string
}

// NewTenantDirectory creates an empty directory. A nil repository keeps it in memory.
func NewTenantDirectory(repo repository.TenantRepository, logger *zap.Logger) *TenantDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TenantDirectory{
		repo:   repo,
		logger: logger,
		clock:  time.Now,
		newID:  generateTenantID,
	}
}

func generateTenantID() string {
	return "T-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
}

// Load replaces the directory with the repository contents, seeding it with
// the given tenants when the repository holds none
func (d *TenantDirectory) Load(ctx context.Context, seed []models.Tenant) error {
	var tenants []models.Tenant
	if d.repo != nil {
		loaded, err := d.repo.LoadTenants(ctx)
		if err != nil {
			return fmt.Errorf("failed to load tenants: %w", err)
		}
		tenants = loaded
	}
	if len(tenants) == 0 && len(seed) > 0 {
		tenants = append([]models.Tenant(nil), seed...)
		if d.repo != nil {
			if err := d.repo.SaveTenants(ctx, tenants); err != nil {
				return fmt.Errorf("failed to seed tenants: %w", err)
			}
		}
	}

	d.mu.Lock()
	d.tenants = tenants
	d.mu.Unlock()
	return nil
}

// Onboard validates the form and adds an ACTIVE tenant
func (d *TenantDirectory) Onboard(ctx context.Context, in models.TenantInput) (*models.Tenant, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.newID()
	for d.findLocked(id) >= 0 {
		id = d.newID()
	}
	tenant := models.Tenant{
		ID:            id,
		Name:          strings.TrimSpace(in.Name),
		Phone:         strings.TrimSpace(in.Phone),
		Address:       strings.TrimSpace(in.Address),
		PropertyType:  in.PropertyType,
		HouseID:       strings.TrimSpace(in.HouseID),
		MeterNumber:   strings.TrimSpace(in.MeterNumber),
		Status:        models.TenantStatusActive,
		OnboardedDate: d.clock().UTC().Truncate(time.Microsecond),
	}

	next := append(append([]models.Tenant(nil), d.tenants...), tenant)
	if err := d.saveLocked(ctx, next); err != nil {
		return nil, err
	}

	d.logger.Info("Tenant onboarded", zap.String("tenant_id", tenant.ID), zap.String("meter_number", tenant.MeterNumber))
	return &tenant, nil
}

// Get returns a tenant in any status
func (d *TenantDirectory) Get(id string) (*models.Tenant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.findLocked(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: tenant %s", models.ErrNotFound, id)
	}
	t := d.tenants[i]
	return &t, nil
}

// GetBillable returns an ACTIVE tenant
func (d *TenantDirectory) GetBillable(id string) (*models.Tenant, error) {
	t, err := d.Get(id)
	if err != nil {
		return nil, err
	}
	if !t.IsBillable() {
		return nil, fmt.Errorf("%w: %s is %s", models.ErrTenantNotBillable, t.ID, t.Status)
	}
	return t, nil
}

// TenantFilter narrows the directory listing
type TenantFilter struct {
	SearchText   string              // Name or meter number
	PropertyType models.PropertyType // "" or ALL matches both
}

// Search lists ACTIVE tenants matching the filter in directory order
func (d *TenantDirectory) Search(filter TenantFilter) []models.Tenant {
	needle := strings.ToLower(strings.TrimSpace(filter.SearchText))
	pt := filter.PropertyType
	if pt == StatusAll {
		pt = ""
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	out := []models.Tenant{}
	for _, t := range d.tenants {
		if !t.IsBillable() {
			continue
		}
		if pt != "" && t.PropertyType != pt {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.Name), needle) &&
			!strings.Contains(strings.ToLower(t.MeterNumber), needle) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// List returns every tenant, archived ones included
func (d *TenantDirectory) List() []models.Tenant {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.Tenant{}, d.tenants...)
}

// Archive moves an ACTIVE tenant to ARCHIVED. Their bills stay in the ledger.
func (d *TenantDirectory) Archive(ctx context.Context, id string) (*models.Tenant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.findLocked(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: tenant %s", models.ErrNotFound, id)
	}
	if d.tenants[i].Status == models.TenantStatusArchived {
		return nil, fmt.Errorf("%w: tenant %s is already archived", models.ErrInvalidTransition, id)
	}

	next := append([]models.Tenant(nil), d.tenants...)
	next[i].Status = models.TenantStatusArchived
	if err := d.saveLocked(ctx, next); err != nil {
		return nil, err
	}

	d.logger.Info("Tenant archived", zap.String("tenant_id", id))
	t := next[i]
	return &t, nil
}

func (d *TenantDirectory) findLocked(id string) int {
	for i := range d.tenants {
		if d.tenants[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *TenantDirectory) saveLocked(ctx context.Context, next []models.Tenant) error {
	if d.repo != nil {
		if err := d.repo.SaveTenants(ctx, next); err != nil {
			return fmt.Errorf("failed to save tenants: %w", err)
		}
	}
	d.tenants = next
	return nil
}
