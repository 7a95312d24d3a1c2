package ledger

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fabricflow/fabricflow/internal/platform/httpx"
	"github.com/fabricflow/fabricflow/internal/rbac"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// Handler exposes the stock history.
type Handler struct {
	logger   *slog.Logger
	recorder *Recorder
	rbac     rbac.Middleware
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, recorder *Recorder, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, recorder: recorder, rbac: rbac}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Get("/ledger", h.list)
		r.Get("/products/{id}/stock-card", h.stockCard)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var f Filter
	var err error
	if f.ProductID, err = httpx.QueryUUID(r, "product_id"); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if f.StoreID, err = httpx.QueryUUID(r, "store_id"); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if f.ReferenceID, err = httpx.QueryUUID(r, "reference_id"); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if f.From, err = httpx.QueryTime(r, "from"); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if f.To, err = httpx.QueryTime(r, "to"); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	f.Type = MovementType(r.URL.Query().Get("type"))
	if f.Type != "" && !f.Type.Valid() {
		httpx.RespondError(w, h.logger, shared.Validation("unknown movement type %q", f.Type))
		return
	}
	f.FactoryOnly = f.StoreID == nil && httpx.QueryBool(r, "factory")
	page := shared.PageFromQuery(r.URL.Query())
	f.Limit, f.Offset = page.Limit, page.Offset

	entries, err := h.recorder.List(r.Context(), f)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) stockCard(w http.ResponseWriter, r *http.Request) {
	productID, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	storeID, err := httpx.QueryUUID(r, "store_id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	page := shared.PageFromQuery(r.URL.Query())
	entries, err := h.recorder.StockCard(r.Context(), productID, storeID, page.Limit)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}
