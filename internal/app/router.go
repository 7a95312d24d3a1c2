package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fabricflow/fabricflow/internal/auth"
	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/dispatch"
	"github.com/fabricflow/fabricflow/internal/fabric"
	"github.com/fabricflow/fabricflow/internal/inventory"
	"github.com/fabricflow/fabricflow/internal/ledger"
	"github.com/fabricflow/fabricflow/internal/observability"
	"github.com/fabricflow/fabricflow/internal/platform/httpx"
	"github.com/fabricflow/fabricflow/internal/production"
	"github.com/fabricflow/fabricflow/internal/rbac"
	"github.com/fabricflow/fabricflow/internal/reports"
	"github.com/fabricflow/fabricflow/internal/returns"
	"github.com/fabricflow/fabricflow/internal/sales"
	"github.com/fabricflow/fabricflow/jobs"
)

// APIPrefix is where every versioned route lives.
const APIPrefix = "/api/v1"

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger     *slog.Logger
	Config     *Config
	Services   *Services
	Metrics    *observability.Metrics
	JobHandler *jobs.Handler
	PDF        dispatch.PDFRenderer
	// Ready reports whether backing stores answer; nil means always ready.
	Ready func(r *http.Request) error
}

// NewRouter constructs the chi.Router with the API mounted under APIPrefix.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	svc := params.Services
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   logger,
		Config:   params.Config,
		Resolver: svc.Auth,
		Metrics:  params.Metrics,
	}) {
		r.Use(mw)
	}
	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" is not supported here")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Ready != nil {
			if err := params.Ready(r); err != nil {
				logger.Warn("readiness failed", slog.Any("error", err))
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	guard := rbac.Middleware{Logger: logger}
	r.Route(APIPrefix, func(r chi.Router) {
		auth.NewHandler(logger, svc.Auth, guard).MountRoutes(r)
		catalog.NewHandler(logger, svc.Catalog, guard).MountRoutes(r)
		fabric.NewHandler(logger, svc.Fabric, guard).MountRoutes(r)
		production.NewHandler(logger, svc.Production, guard).MountRoutes(r)
		dispatch.NewHandler(logger, svc.Dispatch, guard).WithPDF(params.PDF).MountRoutes(r)
		sales.NewHandler(logger, svc.Sales, guard).MountRoutes(r)
		returns.NewHandler(logger, svc.Returns, guard).MountRoutes(r)
		inventory.NewHandler(logger, svc.Inventory, guard).MountRoutes(r)
		ledger.NewHandler(logger, svc.Ledger, guard).MountRoutes(r)
		reports.NewHandler(logger, svc.Reports, guard).MountRoutes(r)
		if params.JobHandler != nil {
			r.Group(func(r chi.Router) {
				r.Use(guard.RequireAdmin())
				params.JobHandler.MountRoutes(r)
			})
		}
	})
	return r
}
