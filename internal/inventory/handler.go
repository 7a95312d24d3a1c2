package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fabricflow/fabricflow/internal/platform/httpx"
	"github.com/fabricflow/fabricflow/internal/rbac"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// Handler exposes stock level and adjustment endpoints.
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

// MountRoutes registers inventory routes. Store scoping is enforced by the
// service.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.RoleAdmin, shared.RoleStoreStaff))
		r.Get("/stores/{id}/inventory", h.listStore)
		r.Get("/stores/{id}/inventory/{productId}", h.getStock)
		r.Put("/stores/{id}/inventory/{productId}/min-stock", h.setMinStock)
		r.Get("/inventory/low-stock", h.lowStock)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Post("/inventory/adjustments/factory", h.adjustFactory)
		r.Post("/inventory/adjustments/store", h.adjustStore)
	})
}

type minStockRequest struct {
	MinStock int `json:"min_stock" validate:"gte=0"`
}

func (h *Handler) listStore(w http.ResponseWriter, r *http.Request) {
	storeID, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	page := shared.PageFromQuery(r.URL.Query())
	levels, err := h.service.ListStoreInventory(r.Context(), storeID, rbac.Actor(r), StockFilter{
		LowOnly: httpx.QueryBool(r, "low"),
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, levels)
}

func (h *Handler) getStock(w http.ResponseWriter, r *http.Request) {
	storeID, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	productID, err := httpx.PathUUID(r, "productId")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	level, err := h.service.GetStoreStock(r.Context(), storeID, productID, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, level)
}

func (h *Handler) setMinStock(w http.ResponseWriter, r *http.Request) {
	storeID, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	productID, err := httpx.PathUUID(r, "productId")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req minStockRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	stock, err := h.service.SetMinStock(r.Context(), storeID, productID, req.MinStock, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stock)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	storeID, err := httpx.QueryUUID(r, "store_id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	levels, err := h.service.LowStock(r.Context(), storeID, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, levels)
}

func (h *Handler) adjustFactory(w http.ResponseWriter, r *http.Request) {
	var input ManualFactoryAdjustment
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	change, err := h.service.AdjustFactory(r.Context(), input, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, change)
}

func (h *Handler) adjustStore(w http.ResponseWriter, r *http.Request) {
	var input ManualStoreAdjustment
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	change, err := h.service.AdjustStore(r.Context(), input, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, change)
}
