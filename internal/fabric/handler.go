package fabric

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fabricflow/fabricflow/internal/platform/httpx"
	"github.com/fabricflow/fabricflow/internal/rbac"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// Handler exposes fabric purchase endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers fabric routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Get("/fabrics", h.list)
		r.Post("/fabrics", h.purchase)
		r.Get("/fabrics/{id}", h.get)
		r.Patch("/fabrics/{id}", h.update)
		r.Delete("/fabrics/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	supplierID, err := httpx.QueryUUID(r, "supplier_id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	page := shared.PageFromQuery(r.URL.Query())
	fabrics, err := h.service.List(r.Context(), Filter{
		Status:     Status(r.URL.Query().Get("status")),
		SupplierID: supplierID,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fabrics)
}

func (h *Handler) purchase(w http.ResponseWriter, r *http.Request) {
	var input PurchaseInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	fabric, err := h.service.Purchase(r.Context(), input, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, fabric)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	fabric, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fabric)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var input UpdateInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	fabric, err := h.service.Update(r.Context(), id, input, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fabric)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.Delete(r.Context(), id, rbac.Actor(r)); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
