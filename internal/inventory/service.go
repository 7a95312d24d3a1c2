package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/ledger"
	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// CatalogReader resolves stores and products for stock-take corrections.
type CatalogReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (catalog.Product, error)
	GetStore(ctx context.Context, id uuid.UUID) (catalog.Store, error)
}

// Service exposes store inventory reads and manual corrections.
type Service struct {
	repo     Repository
	tx       db.Transactor
	adjuster *Adjuster
	catalog  CatalogReader
	audit    shared.Auditor
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo Repository, tx db.Transactor, adjuster *Adjuster, catalog CatalogReader, audit shared.Auditor, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tx: tx, adjuster: adjuster, catalog: catalog, audit: audit, logger: logger}
}

// ListStoreInventory lists the pairs of one store.
func (s *Service) ListStoreInventory(ctx context.Context, storeID uuid.UUID, actor shared.Actor, filter StockFilter) ([]StockLevel, error) {
	if !actor.CanAccessStore(storeID) {
		return nil, shared.Forbidden("no access to store %s", storeID)
	}
	if _, err := s.catalog.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	filter.StoreID = &storeID
	page := shared.NewPage(filter.Limit, filter.Offset)
	filter.Limit, filter.Offset = page.Limit, page.Offset
	return s.repo.ListStoreStock(ctx, filter)
}

// GetStoreStock returns one pair. A pair that never moved reads as zero.
func (s *Service) GetStoreStock(ctx context.Context, storeID, productID uuid.UUID, actor shared.Actor) (StockLevel, error) {
	if !actor.CanAccessStore(storeID) {
		return StockLevel{}, shared.Forbidden("no access to store %s", storeID)
	}
	level, err := s.repo.GetStoreStock(ctx, storeID, productID)
	if errors.Is(err, shared.ErrNotFound) {
		store, err := s.catalog.GetStore(ctx, storeID)
		if err != nil {
			return StockLevel{}, err
		}
		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return StockLevel{}, err
		}
		return StockLevel{
			StoreStock: StoreStock{StoreID: storeID, ProductID: productID, MinStock: DefaultMinStock},
			StoreName:  store.Name,
			SKU:        product.SKU,
			Barcode:    product.Barcode,
			Name:       product.Name,
			Size:       product.Size,
			SalePrice:  product.SalePrice,
		}, nil
	}
	return level, err
}

// LowStock lists pairs at or below their threshold, optionally for one store.
func (s *Service) LowStock(ctx context.Context, storeID *uuid.UUID, actor shared.Actor) ([]StockLevel, error) {
	if storeID == nil && !actor.IsAdmin() {
		storeID = actor.StoreID
	}
	if storeID != nil && !actor.CanAccessStore(*storeID) {
		return nil, shared.Forbidden("no access to store %s", *storeID)
	}
	return s.repo.ListStoreStock(ctx, StockFilter{StoreID: storeID, LowOnly: true, Limit: shared.MaxPageLimit})
}

// SetMinStock changes the low-stock threshold of a pair, creating it if needed.
func (s *Service) SetMinStock(ctx context.Context, storeID, productID uuid.UUID, minStock int, actor shared.Actor) (StoreStock, error) {
	if minStock < 0 {
		return StoreStock{}, shared.Validation("minimum stock must not be negative")
	}
	if !actor.CanAccessStore(storeID) {
		return StoreStock{}, shared.Forbidden("no access to store %s", storeID)
	}
	var saved StoreStock
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.catalog.GetStore(ctx, storeID); err != nil {
			return err
		}
		if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
			return err
		}
		// Same lock order as the Adjuster.
		if _, err := s.repo.LockProduct(ctx, productID); err != nil {
			return err
		}
		stock, err := s.repo.SetMinStock(ctx, storeID, productID, minStock, time.Now().UTC())
		if err != nil {
			return err
		}
		saved = stock
		return nil
	})
	if err != nil {
		return StoreStock{}, fmt.Errorf("set min stock: %w", err)
	}
	return saved, nil
}

// AdjustFactory books a stock-take correction of factory stock.
func (s *Service) AdjustFactory(ctx context.Context, input ManualFactoryAdjustment, actor shared.Actor) (Change, error) {
	if !actor.IsAdmin() {
		return Change{}, shared.Forbidden("factory adjustments require admin")
	}
	if _, err := s.catalog.GetProduct(ctx, input.ProductID); err != nil {
		return Change{}, err
	}
	refID := uuid.New()
	change, err := s.adjuster.AdjustFactoryStock(ctx, FactoryAdjustment{
		ProductID: input.ProductID,
		Delta:     input.Delta,
		Type:      ledger.MovementAdjustment,
		Reference: &ledger.Reference{Type: ledger.RefAdjustment, ID: refID},
		Actor:     actor,
		Notes:     input.Notes,
	})
	if err != nil {
		return Change{}, fmt.Errorf("adjust factory stock: %w", err)
	}
	s.record(ctx, actor, "inventory.adjust_factory", refID, map[string]any{"product_id": input.ProductID, "delta": input.Delta})
	return change, nil
}

// AdjustStore books a stock-take correction of store stock.
func (s *Service) AdjustStore(ctx context.Context, input ManualStoreAdjustment, actor shared.Actor) (Change, error) {
	if !actor.IsAdmin() {
		return Change{}, shared.Forbidden("store adjustments require admin")
	}
	if _, err := s.catalog.GetStore(ctx, input.StoreID); err != nil {
		return Change{}, err
	}
	if _, err := s.catalog.GetProduct(ctx, input.ProductID); err != nil {
		return Change{}, err
	}
	refID := uuid.New()
	change, err := s.adjuster.AdjustStoreStock(ctx, StoreAdjustment{
		StoreID:   input.StoreID,
		ProductID: input.ProductID,
		Delta:     input.Delta,
		Type:      ledger.MovementAdjustment,
		Reference: &ledger.Reference{Type: ledger.RefAdjustment, ID: refID},
		Actor:     actor,
		Notes:     input.Notes,
	})
	if err != nil {
		return Change{}, fmt.Errorf("adjust store stock: %w", err)
	}
	s.record(ctx, actor, "inventory.adjust_store", refID, map[string]any{"store_id": input.StoreID, "product_id": input.ProductID, "delta": input.Delta})
	return change, nil
}

func (s *Service) record(ctx context.Context, actor shared.Actor, action string, id uuid.UUID, meta map[string]any) {
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actor.ID, Action: action, Entity: "stock_adjustment", EntityID: id.String(), Meta: meta}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
