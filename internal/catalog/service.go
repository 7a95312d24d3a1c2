package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/sequence"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// Repository persists catalog records. Lookups return shared.ErrNotFound
// for missing rows; unique violations come back as shared.ErrConflict.
type Repository interface {
	InsertProduct(ctx context.Context, p Product) error
	UpdateProduct(ctx context.Context, p Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (Product, error)
	BarcodeExists(ctx context.Context, barcode string) (bool, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)

	InsertStore(ctx context.Context, s Store) error
	UpdateStore(ctx context.Context, s Store) error
	GetStore(ctx context.Context, id uuid.UUID) (Store, error)
	ListStores(ctx context.Context, includeInactive bool) ([]Store, error)

	InsertSupplier(ctx context.Context, s Supplier) error
	UpdateSupplier(ctx context.Context, s Supplier) error
	GetSupplier(ctx context.Context, id uuid.UUID) (Supplier, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)

	InsertCategory(ctx context.Context, c Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
}

// Sequencer mints SKUs.
type Sequencer interface {
	Next(ctx context.Context, series sequence.Series) (string, error)
	Guard(ctx context.Context, series sequence.Series, fn func(ctx context.Context) error) error
}

// OpeningStocker books the opening factory stock of a manual product.
type OpeningStocker interface {
	RecordOpeningStock(ctx context.Context, productID uuid.UUID, quantity int, actor shared.Actor) error
}

// Service owns products, stores, suppliers and categories.
type Service struct {
	repo     Repository
	tx       db.Transactor
	seq      Sequencer
	barcodes *BarcodeGenerator
	stock    OpeningStocker
	audit    shared.Auditor
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service. stock may be nil until the inventory module is
// wired with SetOpeningStocker.
func NewService(repo Repository, tx db.Transactor, seq Sequencer, audit shared.Auditor, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		tx:       tx,
		seq:      seq,
		barcodes: NewBarcodeGenerator(repo.BarcodeExists),
		audit:    audit,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetOpeningStocker wires the factory stock adjuster used for opening stock.
func (s *Service) SetOpeningStocker(stock OpeningStocker) {
	s.stock = stock
}

// CreateProduct registers a product by hand. Opening stock, if any, is booked
// as an IN movement through the factory stock adjuster.
func (s *Service) CreateProduct(ctx context.Context, input CreateProductInput, actor shared.Actor) (Product, error) {
	if input.OpeningStock < 0 {
		return Product{}, shared.Validation("opening stock must not be negative")
	}
	if input.OpeningStock > 0 && s.stock == nil {
		return Product{}, errors.New("catalog: opening stock requires an inventory adjuster")
	}
	var created Product
	err := s.seq.Guard(ctx, sequence.SKU, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			p, err := s.NewProduct(ctx, ProductDraft{ProductDetails: input.ProductDetails, Size: input.Size}, actor)
			if err != nil {
				return err
			}
			if input.OpeningStock > 0 {
				if err := s.stock.RecordOpeningStock(ctx, p.ID, input.OpeningStock, actor); err != nil {
					return err
				}
				p.FactoryStock = input.OpeningStock
			}
			created = p
			return nil
		})
	})
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	s.record(ctx, actor, "product.create", "product", created.ID, map[string]any{"sku": created.SKU})
	return created, nil
}

// NewProduct mints SKU and barcode and inserts a product with zero factory
// stock. The caller must hold the SKU guard and an open atomic unit.
func (s *Service) NewProduct(ctx context.Context, draft ProductDraft, actor shared.Actor) (Product, error) {
	if err := s.validateDetails(ctx, draft.ProductDetails); err != nil {
		return Product{}, err
	}
	if !draft.Size.Valid() {
		return Product{}, shared.Validation("unknown size %q", draft.Size)
	}
	sku, err := s.seq.Next(ctx, sequence.SKU)
	if err != nil {
		return Product{}, err
	}
	barcode, err := s.barcodes.Next(ctx)
	if err != nil {
		return Product{}, err
	}
	now := s.now()
	p := Product{
		ID:         uuid.New(),
		SKU:        sku,
		Barcode:    barcode,
		Name:       strings.TrimSpace(draft.Name),
		Size:       draft.Size,
		Color:      strings.TrimSpace(draft.Color),
		CategoryID: draft.CategoryID,
		Brand:      strings.TrimSpace(draft.Brand),
		CostPrice:  draft.CostPrice,
		SalePrice:  draft.SalePrice,
		BatchID:    draft.BatchID,
		IsActive:   true,
		CreatedBy:  actor.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertProduct(ctx, p); err != nil {
		return Product{}, fmt.Errorf("insert product %s: %w", sku, err)
	}
	return p, nil
}

// GetProduct returns a live product.
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && p.IsDeleted) {
		return Product{}, shared.NotFound("product %s not found", id)
	}
	return p, err
}

// GetSellableProduct returns a product that is live and active.
func (s *Service) GetSellableProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !p.IsActive {
		return Product{}, shared.InvalidState("product %s is inactive", p.SKU)
	}
	return p, nil
}

// GetProductByBarcode resolves a POS scan.
func (s *Service) GetProductByBarcode(ctx context.Context, barcode string) (Product, error) {
	p, err := s.repo.GetProductByBarcode(ctx, barcode)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && p.IsDeleted) {
		return Product{}, shared.NotFound("no product with barcode %s", barcode)
	}
	return p, err
}

// ListProducts returns live products.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	page := shared.NewPage(filter.Limit, filter.Offset)
	filter.Limit, filter.Offset = page.Limit, page.Offset
	return s.repo.ListProducts(ctx, filter)
}

// UpdateProduct changes metadata. Factory stock is never touched here.
func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput, actor shared.Actor) (Product, error) {
	var updated Product
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if input.Name != nil {
			p.Name = strings.TrimSpace(*input.Name)
		}
		if input.Brand != nil {
			p.Brand = strings.TrimSpace(*input.Brand)
		}
		if input.Color != nil {
			p.Color = strings.TrimSpace(*input.Color)
		}
		if input.CategoryID != nil {
			p.CategoryID = input.CategoryID
		}
		if input.CostPrice != nil {
			p.CostPrice = *input.CostPrice
		}
		if input.SalePrice != nil {
			p.SalePrice = *input.SalePrice
		}
		if input.IsActive != nil {
			p.IsActive = *input.IsActive
		}
		details := ProductDetails{Name: p.Name, CategoryID: p.CategoryID, Brand: p.Brand, Color: p.Color, CostPrice: p.CostPrice, SalePrice: p.SalePrice}
		if err := s.validateDetails(ctx, details); err != nil {
			return err
		}
		p.UpdatedAt = s.now()
		if err := s.repo.UpdateProduct(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	s.record(ctx, actor, "product.update", "product", id, nil)
	return updated, nil
}

// DeleteProduct soft-deletes a product. Its ledger history stays intact.
func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID, actor shared.Actor) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		p.IsDeleted = true
		p.IsActive = false
		p.UpdatedAt = s.now()
		return s.repo.UpdateProduct(ctx, p)
	})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.record(ctx, actor, "product.delete", "product", id, nil)
	return nil
}

// CreateStore registers a store.
func (s *Service) CreateStore(ctx context.Context, input StoreInput, actor shared.Actor) (Store, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Store{}, shared.Validation("store name is required")
	}
	now := s.now()
	store := Store{
		ID:        uuid.New(),
		Name:      name,
		Code:      strings.ToUpper(strings.TrimSpace(input.Code)),
		Address:   strings.TrimSpace(input.Address),
		Phone:     strings.TrimSpace(input.Phone),
		IsActive:  input.IsActive == nil || *input.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertStore(ctx, store); err != nil {
		return Store{}, fmt.Errorf("create store: %w", err)
	}
	s.record(ctx, actor, "store.create", "store", store.ID, map[string]any{"name": store.Name})
	return store, nil
}

// GetStore returns a live store.
func (s *Service) GetStore(ctx context.Context, id uuid.UUID) (Store, error) {
	store, err := s.repo.GetStore(ctx, id)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && store.IsDeleted) {
		return Store{}, shared.NotFound("store %s not found", id)
	}
	return store, err
}

// GetOperatingStore returns a store that is live and active.
func (s *Service) GetOperatingStore(ctx context.Context, id uuid.UUID) (Store, error) {
	store, err := s.GetStore(ctx, id)
	if err != nil {
		return Store{}, err
	}
	if !store.IsActive {
		return Store{}, shared.InvalidState("store %s is inactive", store.Name)
	}
	return store, nil
}

// ListStores returns live stores.
func (s *Service) ListStores(ctx context.Context, includeInactive bool) ([]Store, error) {
	return s.repo.ListStores(ctx, includeInactive)
}

// UpdateStore replaces a store's details.
func (s *Service) UpdateStore(ctx context.Context, id uuid.UUID, input StoreInput, actor shared.Actor) (Store, error) {
	store, err := s.GetStore(ctx, id)
	if err != nil {
		return Store{}, err
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		store.Name = name
	}
	store.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	store.Address = strings.TrimSpace(input.Address)
	store.Phone = strings.TrimSpace(input.Phone)
	if input.IsActive != nil {
		store.IsActive = *input.IsActive
	}
	store.UpdatedAt = s.now()
	if err := s.repo.UpdateStore(ctx, store); err != nil {
		return Store{}, fmt.Errorf("update store: %w", err)
	}
	s.record(ctx, actor, "store.update", "store", id, nil)
	return store, nil
}

// DeleteStore soft-deletes a store.
func (s *Service) DeleteStore(ctx context.Context, id uuid.UUID, actor shared.Actor) error {
	store, err := s.GetStore(ctx, id)
	if err != nil {
		return err
	}
	store.IsDeleted = true
	store.IsActive = false
	store.UpdatedAt = s.now()
	if err := s.repo.UpdateStore(ctx, store); err != nil {
		return fmt.Errorf("delete store: %w", err)
	}
	s.record(ctx, actor, "store.delete", "store", id, nil)
	return nil
}

// CreateSupplier registers a supplier.
func (s *Service) CreateSupplier(ctx context.Context, input SupplierInput, actor shared.Actor) (Supplier, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Supplier{}, shared.Validation("supplier name is required")
	}
	supplier := Supplier{
		ID:          uuid.New(),
		Name:        name,
		ContactName: strings.TrimSpace(input.ContactName),
		Phone:       strings.TrimSpace(input.Phone),
		Email:       strings.TrimSpace(input.Email),
		Address:     strings.TrimSpace(input.Address),
		IsActive:    true,
		CreatedAt:   s.now(),
	}
	if err := s.repo.InsertSupplier(ctx, supplier); err != nil {
		return Supplier{}, fmt.Errorf("create supplier: %w", err)
	}
	s.record(ctx, actor, "supplier.create", "supplier", supplier.ID, nil)
	return supplier, nil
}

// GetSupplier returns a live supplier.
func (s *Service) GetSupplier(ctx context.Context, id uuid.UUID) (Supplier, error) {
	supplier, err := s.repo.GetSupplier(ctx, id)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && supplier.IsDeleted) {
		return Supplier{}, shared.NotFound("supplier %s not found", id)
	}
	return supplier, err
}

// ListSuppliers returns live suppliers.
func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

// DeleteSupplier soft-deletes a supplier.
func (s *Service) DeleteSupplier(ctx context.Context, id uuid.UUID, actor shared.Actor) error {
	supplier, err := s.GetSupplier(ctx, id)
	if err != nil {
		return err
	}
	supplier.IsDeleted = true
	supplier.IsActive = false
	if err := s.repo.UpdateSupplier(ctx, supplier); err != nil {
		return fmt.Errorf("delete supplier: %w", err)
	}
	s.record(ctx, actor, "supplier.delete", "supplier", id, nil)
	return nil
}

// CreateCategory registers a category.
func (s *Service) CreateCategory(ctx context.Context, input CategoryInput, actor shared.Actor) (Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Category{}, shared.Validation("category name is required")
	}
	category := Category{ID: uuid.New(), Name: name, Description: strings.TrimSpace(input.Description), CreatedAt: s.now()}
	if err := s.repo.InsertCategory(ctx, category); err != nil {
		return Category{}, fmt.Errorf("create category: %w", err)
	}
	s.record(ctx, actor, "category.create", "category", category.ID, nil)
	return category, nil
}

// ListCategories returns live categories.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) validateDetails(ctx context.Context, d ProductDetails) error {
	if strings.TrimSpace(d.Name) == "" {
		return shared.Validation("product name is required")
	}
	if d.CostPrice.IsNegative() || d.SalePrice.IsNegative() {
		return shared.Validation("prices must not be negative")
	}
	if d.SalePrice.Equal(decimal.Zero) {
		return shared.Validation("sale price is required")
	}
	if d.CategoryID != nil {
		c, err := s.repo.GetCategory(ctx, *d.CategoryID)
		if errors.Is(err, shared.ErrNotFound) || (err == nil && c.IsDeleted) {
			return shared.NotFound("category %s not found", *d.CategoryID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor shared.Actor, action, entity string, id uuid.UUID, meta map[string]any) {
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actor.ID, Action: action, Entity: entity, EntityID: id.String(), Meta: meta}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
