package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/livefire2015/ez-solar-ledger/src/models"
	"github.com/livefire2015/ez-solar-ledger/src/services"
	"go.uber.org/zap"
)

// NextReading tells the billing wizard where a tenant's meter stopped last cycle
type NextReading struct {
	TenantID        string `json:"tenant_id"`
	PreviousReading string `json:"previous_reading"`
}

// ListTenants lists active tenants
// @Summary      List tenants
// @Tags         tenants
// @Produce      json
// @Param        search         query     string  false  "Name or meter number"
// @Param        property_type  query     string  false  "RESIDENTIAL, COMMERCIAL or ALL"
// @Success      200            {object}  Response{data=[]models.Tenant}
// @Router       /tenants [get]
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pt := models.PropertyType(strings.ToUpper(q.Get("property_type")))
	if pt != "" && pt != services.StatusAll && !pt.Valid() {
		writeError(w, http.StatusBadRequest, "property_type must be one of: RESIDENTIAL, COMMERCIAL, ALL")
		return
	}
	writeJSON(w, http.StatusOK, h.tenants.Search(services.TenantFilter{
		SearchText:   q.Get("search"),
		PropertyType: pt,
	}))
}

// OnboardTenant adds a tenant
// @Summary      Onboard tenant
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        tenant  body      models.TenantInput  true  "Tenant"
// @Success      201     {object}  Response{data=models.Tenant}
// @Failure      400     {object}  Response{error=string}
// @Router       /tenants [post]
func (h *Handler) OnboardTenant(w http.ResponseWriter, r *http.Request) {
	var in models.TenantInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	tenant, err := h.tenants.Onboard(r.Context(), in)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Failed to onboard tenant", zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, tenant)
}

// GetTenant retrieves a tenant
// @Summary      Get tenant
// @Tags         tenants
// @Produce      json
// @Param        id   path      string  true  "Tenant ID"
// @Success      200  {object}  Response{data=models.Tenant}
// @Failure      404  {object}  Response{error=string}
// @Router       /tenants/{id} [get]
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenants.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// ArchiveTenant stops billing a tenant
// @Summary      Archive tenant
// @Tags         tenants
// @Produce      json
// @Param        id   path      string  true  "Tenant ID"
// @Success      200  {object}  Response{data=models.Tenant}
// @Failure      404  {object}  Response{error=string}
// @Failure      409  {object}  Response{error=string}
// @Router       /tenants/{id}/archive [post]
func (h *Handler) ArchiveTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenants.Archive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// GetTenantStatement is the tenant portal view
// @Summary      Tenant statement
// @Description  The tenant's pending bill and paid history.
// @Tags         tenants
// @Produce      json
// @Param        id   path      string  true  "Tenant ID"
// @Success      200  {object}  Response{data=services.TenantStatement}
// @Failure      404  {object}  Response{error=string}
// @Router       /tenants/{id}/statement [get]
func (h *Handler) GetTenantStatement(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenants.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, h.ledger.StatementForTenant(tenant.ID))
}

// GetNextReading returns the previous reading the next bill will use
// @Summary      Next previous reading
// @Tags         tenants
// @Produce      json
// @Param        id   path      string  true  "Tenant ID"
// @Success      200  {object}  Response{data=NextReading}
// @Failure      404  {object}  Response{error=string}
// @Router       /tenants/{id}/next-reading [get]
func (h *Handler) GetNextReading(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenants.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, NextReading{
		TenantID:        tenant.ID,
		PreviousReading: h.ledger.NextPreviousReading(tenant.ID).String(),
	})
}
