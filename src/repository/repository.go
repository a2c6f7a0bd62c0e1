// Package repository persists the ledger and tenant directory behind a plain
// load/save contract. Implementations store whole ordered collections; the
// services decide what goes into them.
package repository

import (
	"context"

	"github.com/livefire2015/ez-solar-ledger/src/models"
)

// SchemaVersion tags every persisted document. Bump it when the bill or
// tenant layout changes incompatibly.
const SchemaVersion = 1

// BillRepository stores the ledger in creation order
type BillRepository interface {
	LoadBills(ctx context.Context) ([]models.Bill, error)
	SaveBills(ctx context.Context, bills []models.Bill) error
}

// TenantRepository stores the tenant directory
type TenantRepository interface {
	LoadTenants(ctx context.Context) ([]models.Tenant, error)
	SaveTenants(ctx context.Context, tenants []models.Tenant) error
}
