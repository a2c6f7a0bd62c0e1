package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/livefire2015/ez-solar-ledger/src/models"
	"github.com/livefire2015/ez-solar-ledger/src/services"
)

// Dashboard is the landlord's overview
type Dashboard struct {
	Summary models.BillSummary `json:"summary"`
	Insight string             `json:"insight"`
}

// EnergyInsight wraps the generated advice
type EnergyInsight struct {
	Units  string `json:"units"`
	Period string `json:"period"`
	Tips   string `json:"tips"`
}

// GetRates returns the active tariff
// @Summary      Get rates
// @Tags         rates
// @Produce      json
// @Success      200  {object}  Response{data=models.RateTable}
// @Router       /rates [get]
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rates.Current())
}

// UpdateRates replaces the tariff. Existing bills keep the rate they were priced at.
// @Summary      Update rates
// @Tags         rates
// @Accept       json
// @Produce      json
// @Param        rates  body      models.RateTableInput  true  "Rates"
// @Success      200    {object}  Response{data=models.RateTable}
// @Failure      400    {object}  Response{error=string}
// @Router       /rates [put]
func (h *Handler) UpdateRates(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ResidentialRate formValue `json:"residential_rate"`
		CommercialRate  formValue `json:"commercial_rate"`
		GSTPercent      formValue `json:"gst_percent"`
		FixedCharge     formValue `json:"fixed_charge"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	table, err := models.RateTableInput{
		ResidentialRate: string(in.ResidentialRate),
		CommercialRate:  string(in.CommercialRate),
		GSTPercent:      string(in.GSTPercent),
		FixedCharge:     string(in.FixedCharge),
	}.Parse()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	updated, err := h.rates.Update(table)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// GetDashboard returns ledger totals and a short narrative
// @Summary      Dashboard
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  Response{data=Dashboard}
// @Router       /dashboard [get]
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	bills := h.ledger.ListBills()
	writeJSON(w, http.StatusOK, Dashboard{
		Summary: services.SummarizeBills(bills),
		Insight: h.insights.BillingSummary(r.Context(), bills),
	})
}

// GetEnergyInsights returns saving tips for a consumption figure
// @Summary      Energy tips
// @Tags         dashboard
// @Produce      json
// @Param        units   query     string  true   "Units consumed"
// @Param        period  query     string  false  "Billing period label"
// @Success      200     {object}  Response{data=EnergyInsight}
// @Failure      400     {object}  Response{error=string}
// @Router       /insights/energy [get]
func (h *Handler) GetEnergyInsights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	units, err := models.ParseReading(q.Get("units"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "units: "+err.Error())
		return
	}
	period := strings.TrimSpace(q.Get("period"))
	if period == "" {
		period = "current cycle"
	}
	writeJSON(w, http.StatusOK, EnergyInsight{
		Units:  units.String(),
		Period: period,
		Tips:   h.insights.EnergyTips(r.Context(), units, period),
	})
}
