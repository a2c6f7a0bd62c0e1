package models

import "errors"

// Error kinds surfaced by the billing ledger. Callers match them with errors.Is;
// the returned errors wrap these with the offending values.
var (
	// ErrValidation is returned for malformed or out-of-domain configuration input
	ErrValidation = errors.New("validation error")

	// ErrInvalidReading is returned when a meter reading is non-numeric, negative,
	// or does not advance past the previous reading
	ErrInvalidReading = errors.New("invalid meter reading")

	// ErrNotFound is returned when a bill or tenant id is unknown
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a status change is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTenantNotBillable is returned when billing an archived tenant
	ErrTenantNotBillable = errors.New("tenant is not billable")
)
