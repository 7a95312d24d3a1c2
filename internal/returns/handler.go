package returns

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fabricflow/fabricflow/internal/platform/httpx"
	"github.com/fabricflow/fabricflow/internal/rbac"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// Handler exposes return endpoints.
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

// MountRoutes registers return routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.RoleAdmin, shared.RoleStoreStaff))
		r.Get("/returns", h.list)
		r.Post("/returns", h.process)
		r.Get("/returns/{id}", h.get)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	storeID, err := httpx.QueryUUID(r, "store_id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	saleID, err := httpx.QueryUUID(r, "sale_id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	page := shared.PageFromQuery(r.URL.Query())
	list, err := h.service.List(r.Context(), Filter{
		StoreID: storeID,
		Type:    Type(r.URL.Query().Get("type")),
		SaleID:  saleID,
		Limit:   page.Limit,
		Offset:  page.Offset,
	}, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	ret, err := h.service.Process(r.Context(), input, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ret)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	ret, err := h.service.Get(r.Context(), id, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ret)
}
