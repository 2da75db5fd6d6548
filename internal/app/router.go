package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-re/meridian/internal/audit"
	"github.com/meridian-re/meridian/internal/balance"
	"github.com/meridian-re/meridian/internal/capital"
	"github.com/meridian-re/meridian/internal/coa"
	"github.com/meridian-re/meridian/internal/consol"
	"github.com/meridian-re/meridian/internal/entities"
	"github.com/meridian-re/meridian/internal/journal"
	"github.com/meridian-re/meridian/internal/observability"
	"github.com/meridian-re/meridian/internal/periods"
	"github.com/meridian-re/meridian/internal/reports"
	"github.com/meridian-re/meridian/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	EntityHandler   *entities.Handler
	AccountHandler  *coa.Handler
	PeriodHandler   *periods.Handler
	JournalHandler  *journal.Handler
	BalanceHandler  *balance.Handler
	CapitalHandler  *capital.Handler
	ConsolHandler   *consol.Handler
	ReportHandler   *reports.Handler
	AuditHandler    *audit.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/entities", params.EntityHandler.MountRoutes)
	r.Route("/accounts", params.AccountHandler.MountRoutes)
	r.Route("/periods", params.PeriodHandler.MountRoutes)
	r.Route("/entries", params.JournalHandler.MountRoutes)
	r.Route("/balances", params.BalanceHandler.MountRoutes)
	r.Route("/capital", params.CapitalHandler.MountRoutes)
	r.Route("/consolidation", params.ConsolHandler.MountRoutes)
	r.Route("/reports", params.ReportHandler.MountRoutes)
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
