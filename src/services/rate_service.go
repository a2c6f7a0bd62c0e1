package services

import (
	"sync"

	"github.com/livefire2015/ez-solar-ledger/src/models"
	"go.uber.org/zap"
)

// RateService holds the current tariff. The calculator only ever sees
// snapshots returned by Current.
type RateService struct {
	mu      sync.RWMutex
	current models.RateTable
	logger  *zap.Logger
}

// NewRateService validates and installs the initial tariff
func NewRateService(initial models.RateTable, logger *zap.Logger) (*RateService, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateService{current: initial, logger: logger}, nil
}

// Current returns a snapshot of the tariff
func (s *RateService) Current() models.RateTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update replaces the tariff wholesale. Negative values fail with models.ErrValidation.
func (s *RateService) Update(table models.RateTable) (models.RateTable, error) {
	if err := table.Validate(); err != nil {
		return models.RateTable{}, err
	}

	s.mu.Lock()
	s.current = table
	s.mu.Unlock()

	s.logger.Info("Rate table updated",
		zap.String("residential_rate", table.ResidentialRate.String()),
		zap.String("commercial_rate", table.CommercialRate.String()),
		zap.String("gst_percent", table.GSTPercent.String()),
		zap.String("fixed_charge", table.FixedCharge.String()),
	)
	return table, nil
}
