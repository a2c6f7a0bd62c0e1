package services

import (
	"time"

	"github.com/livefire2015/ez-solar-ledger/src/models"
)

// DemoTenants returns the two tenants a fresh installation starts with
func DemoTenants(onboarded time.Time) []models.Tenant {
	return []models.Tenant{
		{
			ID:            "T-8821",
			Name:          "Suresh Raina",
			Phone:         "+91 98765 43210",
			Address:       "Flat 402, Sunshine Apts",
			PropertyType:  models.PropertyTypeResidential,
			HouseID:       "H-402",
			MeterNumber:   "MTR-101-ABC",
			Status:        models.TenantStatusActive,
			OnboardedDate: onboarded,
		},
		{
			ID:            "T-9910",
			Name:          "Meena Gupta",
			Phone:         "+91 87654 32109",
			Address:       "Shop 12, Market Complex",
			PropertyType:  models.PropertyTypeCommercial,
			HouseID:       "S-12",
			MeterNumber:   "MTR-102-XYZ",
			Status:        models.TenantStatusActive,
			OnboardedDate: onboarded,
		},
	}
}
