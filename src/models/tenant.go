package models

import (
	"fmt"
	"strings"
	"time"
)

// PropertyType selects which tariff applies to a tenant
type PropertyType string

const (
	PropertyTypeResidential PropertyType = "RESIDENTIAL"
	PropertyTypeCommercial  PropertyType = "COMMERCIAL"
)

// Valid reports whether the property type is one of the known tariffs
func (p PropertyType) Valid() bool {
	return p == PropertyTypeResidential || p == PropertyTypeCommercial
}

// TenantStatus represents valid tenant statuses
type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "ACTIVE"   // Billable
	TenantStatusArchived TenantStatus = "ARCHIVED" // Moved out, kept for history
)

// Tenant represents a metered occupant of a unit
type Tenant struct {
	ID            string       `json:"id" db:"id"`
	Name          string       `json:"name" db:"name"`
	Phone         string       `json:"phone" db:"phone"`
	Address       string       `json:"address" db:"address"`
	PropertyType  PropertyType `json:"property_type" db:"property_type"`
	HouseID       string       `json:"house_id" db:"house_id"`
	MeterNumber   string       `json:"meter_number" db:"meter_number"`
	Status        TenantStatus `json:"status" db:"status"`
	OnboardedDate time.Time    `json:"onboarded_date" db:"onboarded_date"`
}

// IsBillable returns true if new bills may be generated for the tenant
func (t *Tenant) IsBillable() bool {
	return t.Status == TenantStatusActive
}

// TenantInput is used for onboarding tenants
type TenantInput struct {
	Name         string       `json:"name"`
	Phone        string       `json:"phone"`
	Address      string       `json:"address"`
	PropertyType PropertyType `json:"property_type"`
	HouseID      string       `json:"house_id"`
	MeterNumber  string       `json:"meter_number"`
}

// Validate checks the onboarding form
func (in *TenantInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(in.Phone) == "" {
		return fmt.Errorf("%w: phone is required", ErrValidation)
	}
	if strings.TrimSpace(in.MeterNumber) == "" {
		return fmt.Errorf("%w: meter_number is required", ErrValidation)
	}
	if !in.PropertyType.Valid() {
		return fmt.Errorf("%w: property_type must be one of: RESIDENTIAL, COMMERCIAL", ErrValidation)
	}
	return nil
}
