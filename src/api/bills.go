package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/livefire2015/ez-solar-ledger/src/models"
	"github.com/livefire2015/ez-solar-ledger/src/services"
	"go.uber.org/zap"
)

// BillRequest carries the wizard's confirmation. Readings may be sent as JSON
// numbers or strings.
type BillRequest struct {
	TenantID        string    `json:"tenant_id"`
	PreviousReading formValue `json:"previous_reading,omitempty"` // Optional; seeded from history
	PresentReading  formValue `json:"present_reading"`
}

func (req BillRequest) readings() (models.Readings, error) {
	var readings models.Readings
	if strings.TrimSpace(string(req.PreviousReading)) != "" {
		prev, err := models.ParseReading(string(req.PreviousReading))
		if err != nil {
			return readings, fmt.Errorf("previous_reading: %w", err)
		}
		readings.Previous = &prev
	}
	present, err := models.ParseReading(string(req.PresentReading))
	if err != nil {
		return readings, fmt.Errorf("present_reading: %w", err)
	}
	readings.Present = present
	return readings, nil
}

// BillPreview is the wizard's review step
type BillPreview struct {
	TenantID        string                  `json:"tenant_id"`
	TenantName      string                  `json:"tenant_name"`
	PreviousReading string                  `json:"previous_reading"`
	Breakdown       *services.BillBreakdown `json:"breakdown"`
	Insight         string                  `json:"insight"`
}

// ListBills lists bills
// @Summary      List bills
// @Description  Get the bill history, optionally filtered by search text and status.
// @Tags         bills
// @Produce      json
// @Param        search  query     string  false  "Tenant name or billing month"
// @Param        status  query     string  false  "PENDING, PAID or ALL"
// @Param        order   query     string  false  "asc (creation order, default) or desc"
// @Success      200     {object}  Response{data=[]models.Bill}
// @Router       /bills [get]
func (h *Handler) ListBills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := models.BillStatus(strings.ToUpper(q.Get("status")))
	if status != "" && status != services.StatusAll && !status.Valid() {
		writeError(w, http.StatusBadRequest, "status must be one of: PENDING, PAID, ALL")
		return
	}

	bills := services.FilterBills(h.ledger.ListBills(), services.BillFilter{
		SearchText: q.Get("search"),
		Status:     status,
	})
	if strings.EqualFold(q.Get("order"), "desc") {
		bills = services.ReverseBills(bills)
	}
	writeJSON(w, http.StatusOK, bills)
}

// GetBill retrieves a single bill
// @Summary      Get bill
// @Tags         bills
// @Produce      json
// @Param        id   path      string  true  "Bill ID"
// @Success      200  {object}  Response{data=models.Bill}
// @Failure      404  {object}  Response{error=string}
// @Router       /bills/{id} [get]
func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := h.ledger.GetBill(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), "bill not found")
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

// CreateBill generates a bill
// @Summary      Create bill
// @Description  Price a present reading for an active tenant and record a PENDING bill.
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        bill  body      BillRequest  true  "Tenant and readings"
// @Success      201   {object}  Response{data=models.Bill}
// @Failure      400   {object}  Response{error=string}
// @Router       /bills [post]
func (h *Handler) CreateBill(w http.ResponseWriter, r *http.Request) {
	var req BillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	readings, err := req.readings()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tenant, err := h.tenants.GetBillable(req.TenantID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	bill, err := h.ledger.CreateBill(r.Context(), tenant, readings, h.rates.Current())
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Failed to create bill", zap.String("tenant_id", tenant.ID), zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

// PreviewBill prices readings without recording a bill
// @Summary      Preview bill
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        bill  body      BillRequest  true  "Tenant and readings"
// @Success      200   {object}  Response{data=BillPreview}
// @Failure      400   {object}  Response{error=string}
// @Router       /bills/preview [post]
func (h *Handler) PreviewBill(w http.ResponseWriter, r *http.Request) {
	var req BillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	readings, err := req.readings()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tenant, err := h.tenants.GetBillable(req.TenantID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	previous, breakdown, err := h.ledger.PreviewBill(tenant, readings, h.rates.Current())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, BillPreview{
		TenantID:        tenant.ID,
		TenantName:      tenant.Name,
		PreviousReading: previous.String(),
		Breakdown:       breakdown,
		Insight:         h.insights.EnergyTips(r.Context(), breakdown.Units, "current cycle"),
	})
}

// MarkBillPaid settles a bill
// @Summary      Settle bill
// @Description  Move a PENDING bill to PAID. Settling twice is rejected.
// @Tags         bills
// @Produce      json
// @Param        id   path      string  true  "Bill ID"
// @Success      200  {object}  Response{data=models.Bill}
// @Failure      404  {object}  Response{error=string}
// @Failure      409  {object}  Response{error=string}
// @Router       /bills/{id}/pay [post]
func (h *Handler) MarkBillPaid(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	bill, err := h.ledger.MarkPaid(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrInvalidTransition) {
			// A well-formed client never settles an unknown or settled bill
			h.logger.Warn("Rejected settlement", zap.String("bill_id", id), zap.Error(err))
		} else {
			h.logger.Error("Failed to settle bill", zap.String("bill_id", id), zap.Error(err))
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

// ExportBills downloads the history as CSV
// @Summary      Export bills
// @Tags         bills
// @Produce      text/csv
// @Success      200
// @Router       /bills/export [get]
func (h *Handler) ExportBills(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := services.ExportBillsCSV(&buf, h.ledger.ListBills()); err != nil {
		h.logger.Error("Failed to export bills", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, services.ExportFileName(time.Now())))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("Failed to write bill export", zap.Error(err))
	}
}
