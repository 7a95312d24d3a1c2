package dispatch

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fabricflow/fabricflow/internal/platform/httpx"
	"github.com/fabricflow/fabricflow/internal/rbac"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// PDFRenderer turns an HTML document into a PDF.
type PDFRenderer interface {
	Enabled() bool
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler exposes dispatch endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	pdf     PDFRenderer
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// WithPDF enables the PDF challan route.
func (h *Handler) WithPDF(pdf PDFRenderer) *Handler {
	h.pdf = pdf
	return h
}

// MountRoutes registers dispatch routes. Store staff can read their own
// store's dispatches and mark them received.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.RoleAdmin, shared.RoleStoreStaff))
		r.Get("/dispatches", h.list)
		r.Get("/dispatches/{id}", h.get)
		r.Get("/dispatches/{id}/challan", h.challan)
		r.Get("/dispatches/{id}/challan.pdf", h.challanPDF)
		r.Patch("/dispatches/{id}/status", h.updateStatus)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Post("/dispatches", h.create)
		r.Delete("/dispatches/{id}", h.delete)
	})
}

type statusRequest struct {
	Status Status `json:"status" validate:"required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	storeID, err := httpx.QueryUUID(r, "store_id")
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
	dispatches, err := h.service.List(r.Context(), Filter{
		StoreID: storeID,
		Status:  Status(r.URL.Query().Get("status")),
		From:    from,
		To:      to,
		Limit:   page.Limit,
		Offset:  page.Offset,
	}, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dispatches)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	d, err := h.service.Create(r.Context(), input, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	d, err := h.service.Get(r.Context(), id, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) challan(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	_, html, err := h.service.Challan(r.Context(), id, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

func (h *Handler) challanPDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil || !h.pdf.Enabled() {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "pdf rendering is not configured")
		return
	}
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	d, html, err := h.service.Challan(r.Context(), id, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	pdf, err := h.pdf.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render challan pdf", slog.String("dispatch", d.DispatchNumber), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "pdf rendering failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+d.DispatchNumber+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req statusRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	d, err := h.service.UpdateStatus(r.Context(), id, req.Status, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
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
