package sales

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fabricflow/fabricflow/internal/platform/httpx"
	"github.com/fabricflow/fabricflow/internal/rbac"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// IdempotencyHeader lets a till retry a sale without charging twice.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes point-of-sale endpoints.
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

// MountRoutes registers sale routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.RoleAdmin, shared.RoleStoreStaff))
		r.Get("/sales", h.list)
		r.Post("/sales", h.create)
		r.Get("/sales/{id}", h.get)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	storeID, err := httpx.QueryUUID(r, "store_id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	cashierID, err := httpx.QueryUUID(r, "cashier_id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	from, err := httpx.QueryTime(r, "from")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	to, err := httpx.QueryTime(r, "to")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	page := shared.PageFromQuery(r.URL.Query())
	list, err := h.service.List(r.Context(), Filter{
		StoreID:   storeID,
		CashierID: cashierID,
		From:      from,
		To:        to,
		Limit:     page.Limit,
		Offset:    page.Offset,
	}, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	input.IdempotencyKey = strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if len(input.IdempotencyKey) > 128 {
		httpx.RespondError(w, h.logger, shared.Validation("%s must be at most 128 characters", IdempotencyHeader))
		return
	}
	sale, err := h.service.Create(r.Context(), input, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	sale, err := h.service.Get(r.Context(), id, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}
