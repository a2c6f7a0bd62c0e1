package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/livefire2015/ez-solar-ledger/src/models"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore persists bills and tenants in PostgreSQL.
// Saving a bill only ever inserts it or updates its status; readings and
// amounts of an existing row are never rewritten.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to the database and verifies the connection
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return NewPostgresStore(db), nil
}

// NewPostgresStore wraps an open connection
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the embedded schema migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) LoadBills(ctx context.Context) ([]models.Bill, error) {
	query := `
		SELECT id, tenant_id, tenant_name, billing_month,
		       previous_reading, present_reading, units_consumed,
		       rate_per_unit, tax_amount, total_amount,
		       status, generated_at, paid_at
		FROM bills
		ORDER BY position
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying bills: %w", err)
	}
	defer rows.Close()

	bills := []models.Bill{}
	for rows.Next() {
		var b models.Bill
		err := rows.Scan(
			&b.ID,
			&b.TenantID,
			&b.TenantName,
			&b.BillingMonth,
			&b.PreviousReading,
			&b.PresentReading,
			&b.UnitsConsumed,
			&b.RatePerUnit,
			&b.TaxAmount,
			&b.TotalAmount,
			&b.Status,
			&b.GeneratedAt,
			&b.PaidAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning bill: %w", err)
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func (s *PostgresStore) SaveBills(ctx context.Context, bills []models.Bill) error {
	query := `
		INSERT INTO bills (
			id, position, tenant_id, tenant_name, billing_month,
			previous_reading, present_reading, units_consumed,
			rate_per_unit, tax_amount, total_amount,
			status, generated_at, paid_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, paid_at = EXCLUDED.paid_at
		WHERE bills.status <> EXCLUDED.status
	`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing bill upsert: %w", err)
	}
	defer stmt.Close()

	for i, b := range bills {
		_, err := stmt.ExecContext(ctx,
			b.ID,
			i,
			b.TenantID,
			b.TenantName,
			b.BillingMonth,
			b.PreviousReading,
			b.PresentReading,
			b.UnitsConsumed,
			b.RatePerUnit,
			b.TaxAmount,
			b.TotalAmount,
			b.Status,
			b.GeneratedAt,
			b.PaidAt,
		)
		if err != nil {
			return fmt.Errorf("saving bill %s: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) LoadTenants(ctx context.Context) ([]models.Tenant, error) {
	query := `
		SELECT id, name, phone, address, property_type, house_id,
		       meter_number, status, onboarded_date
		FROM tenants
		ORDER BY position
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying tenants: %w", err)
	}
	defer rows.Close()

	tenants := []models.Tenant{}
	for rows.Next() {
		var t models.Tenant
		err := rows.Scan(
			&t.ID,
			&t.Name,
			&t.Phone,
			&t.Address,
			&t.PropertyType,
			&t.HouseID,
			&t.MeterNumber,
			&t.Status,
			&t.OnboardedDate,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *PostgresStore) SaveTenants(ctx context.Context, tenants []models.Tenant) error {
	query := `
		INSERT INTO tenants (
			id, position, name, phone, address, property_type,
			house_id, meter_number, status, onboarded_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET position = EXCLUDED.position, name = EXCLUDED.name, phone = EXCLUDED.phone,
		    address = EXCLUDED.address, property_type = EXCLUDED.property_type,
		    house_id = EXCLUDED.house_id, meter_number = EXCLUDED.meter_number,
		    status = EXCLUDED.status
	`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for i, t := range tenants {
		_, err := tx.ExecContext(ctx, query,
			t.ID,
			i,
			t.Name,
			t.Phone,
			t.Address,
			t.PropertyType,
			t.HouseID,
			t.MeterNumber,
			t.Status,
			t.OnboardedDate,
		)
		if err != nil {
			return fmt.Errorf("saving tenant %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}
