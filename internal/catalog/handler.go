package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fabricflow/fabricflow/internal/platform/httpx"
	"github.com/fabricflow/fabricflow/internal/rbac"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// Handler exposes catalog endpoints. Reads are open to any signed-in user,
// writes are admin only.
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

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny())
		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)
		r.Get("/products/barcode/{code}", h.getProductByBarcode)
		r.Get("/stores", h.listStores)
		r.Get("/stores/{id}", h.getStore)
		r.Get("/categories", h.listCategories)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Post("/products", h.createProduct)
		r.Patch("/products/{id}", h.updateProduct)
		r.Delete("/products/{id}", h.deleteProduct)
		r.Post("/stores", h.createStore)
		r.Put("/stores/{id}", h.updateStore)
		r.Delete("/stores/{id}", h.deleteStore)
		r.Get("/suppliers", h.listSuppliers)
		r.Post("/suppliers", h.createSupplier)
		r.Get("/suppliers/{id}", h.getSupplier)
		r.Delete("/suppliers/{id}", h.deleteSupplier)
		r.Post("/categories", h.createCategory)
	})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, err := httpx.QueryUUID(r, "category_id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	batchID, err := httpx.QueryUUID(r, "batch_id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	page := shared.PageFromQuery(r.URL.Query())
	products, err := h.service.ListProducts(r.Context(), ProductFilter{
		CategoryID:      categoryID,
		BatchID:         batchID,
		Search:          r.URL.Query().Get("q"),
		IncludeInactive: rbac.Actor(r).IsAdmin() && httpx.QueryBool(r, "include_inactive"),
		Limit:           page.Limit,
		Offset:          page.Offset,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) getProductByBarcode(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProductByBarcode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var input CreateProductInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	product, err := h.service.CreateProduct(r.Context(), input, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var input UpdateProductInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), id, input, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id, rbac.Actor(r)); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.service.ListStores(r.Context(), rbac.Actor(r).IsAdmin() && httpx.QueryBool(r, "include_inactive"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stores)
}

func (h *Handler) getStore(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	store, err := h.service.GetStore(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, store)
}

func (h *Handler) createStore(w http.ResponseWriter, r *http.Request) {
	var input StoreInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	store, err := h.service.CreateStore(r.Context(), input, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, store)
}

func (h *Handler) updateStore(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var input StoreInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	store, err := h.service.UpdateStore(r.Context(), id, input, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, store)
}

func (h *Handler) deleteStore(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteStore(r.Context(), id, rbac.Actor(r)); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.service.ListSuppliers(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, suppliers)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var input SupplierInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	supplier, err := h.service.CreateSupplier(r.Context(), input, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, supplier)
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	supplier, err := h.service.GetSupplier(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteSupplier(r.Context(), id, rbac.Actor(r)); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, categories)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryInput
	if err := httpx.Bind(r, &input); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	category, err := h.service.CreateCategory(r.Context(), input, rbac.Actor(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, category)
}
