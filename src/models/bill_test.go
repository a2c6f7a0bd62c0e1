package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBillCanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     BillStatus
		to       BillStatus
		expected bool
	}{
		{"pending to paid", BillStatusPending, BillStatusPaid, true},
		{"pending to pending", BillStatusPending, BillStatusPending, false},
		{"paid to pending", BillStatusPaid, BillStatusPending, false},
		{"paid to paid", BillStatusPaid, BillStatusPaid, false},
		{"unknown status", BillStatus("VOID"), BillStatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Bill{Status: tt.from}
			if got := b.CanTransitionTo(tt.to); got != tt.expected {
				t.Errorf("CanTransitionTo(%s) from %s = %v, want %v", tt.to, tt.from, got, tt.expected)
			}
		})
	}
}

func TestBillBuilder(t *testing.T) {
	generatedAt := time.Date(2023, time.October, 15, 9, 30, 0, 0, time.UTC)
	tenant := &Tenant{ID: "T-8821", Name: "Suresh Raina", PropertyType: PropertyTypeResidential}

	bill := NewBillBuilder("BL-00000001", generatedAt).
		WithTenant(tenant).
		WithReadings(decimal.NewFromInt(1000), decimal.NewFromInt(1095)).
		WithAmounts(decimal.RequireFromString("8.50"), decimal.RequireFromString("145.35"), decimal.RequireFromString("952.85")).
		Build()

	if bill.Status != BillStatusPending {
		t.Errorf("Status = %s, want PENDING", bill.Status)
	}
	if bill.BillingMonth != "October 2023" {
		t.Errorf("BillingMonth = %q, want %q", bill.BillingMonth, "October 2023")
	}
	if bill.TenantID != "T-8821" || bill.TenantName != "Suresh Raina" {
		t.Errorf("tenant snapshot = %s/%s", bill.TenantID, bill.TenantName)
	}
	if !bill.UnitsConsumed.Equal(decimal.NewFromInt(95)) {
		t.Errorf("UnitsConsumed = %s, want 95", bill.UnitsConsumed)
	}
	if !bill.TotalAmount.Equal(decimal.RequireFromString("952.85")) {
		t.Errorf("TotalAmount = %s, want 952.85", bill.TotalAmount)
	}
	if bill.PaidAt != nil {
		t.Errorf("PaidAt = %v, want nil", bill.PaidAt)
	}
	if bill.IsPaid() {
		t.Error("new bill should not be paid")
	}
}

func TestBillStatusValid(t *testing.T) {
	for _, s := range []BillStatus{BillStatusPending, BillStatusPaid} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []BillStatus{"", "ALL", "pending"} {
		if s.Valid() {
			t.Errorf("%q should not be valid", s)
		}
	}
}
