package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/livefire2015/ez-solar-ledger/src/insights"
	"github.com/livefire2015/ez-solar-ledger/src/services"
	"go.uber.org/zap"
)

// Handler serves the ledger over HTTP
type Handler struct {
	ledger   *services.LedgerService
	rates    *services.RateService
	tenants  *services.TenantDirectory
	insights insights.TextInsightProvider
	logger   *zap.Logger
}

// NewHandler wires the HTTP layer to the services. A nil insight provider
// falls back to static text.
func NewHandler(
	ledger *services.LedgerService,
	rates *services.RateService,
	tenants *services.TenantDirectory,
	provider insights.TextInsightProvider,
	logger *zap.Logger,
) *Handler {
	if provider == nil {
		provider = insights.StaticProvider{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		ledger:   ledger,
		rates:    rates,
		tenants:  tenants,
		insights: provider,
		logger:   logger,
	}
}

// Routes builds the router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Bills
		r.Get("/bills", h.ListBills)
		r.Post("/bills", h.CreateBill)
		r.Post("/bills/preview", h.PreviewBill)
		r.Get("/bills/export", h.ExportBills)
		r.Get("/bills/{id}", h.GetBill)
		r.Post("/bills/{id}/pay", h.MarkBillPaid)

		// Rates
		r.Get("/rates", h.GetRates)
		r.Put("/rates", h.UpdateRates)

		// Tenants
		r.Get("/tenants", h.ListTenants)
		r.Post("/tenants", h.OnboardTenant)
		r.Get("/tenants/{id}", h.GetTenant)
		r.Post("/tenants/{id}/archive", h.ArchiveTenant)
		r.Get("/tenants/{id}/statement", h.GetTenantStatement)
		r.Get("/tenants/{id}/next-reading", h.GetNextReading)

		// Dashboard
		r.Get("/dashboard", h.GetDashboard)
		r.Get("/insights/energy", h.GetEnergyInsights)
	})

	return r
}
