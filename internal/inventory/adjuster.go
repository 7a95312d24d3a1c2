package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/ledger"
	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// Repository persists stock counters. Lock* methods read with row locks
// when an atomic unit is open.
type Repository interface {
	LockProduct(ctx context.Context, id uuid.UUID) (catalog.Product, error)
	SetFactoryStock(ctx context.Context, productID uuid.UUID, stock int, at time.Time) error
	LockStoreStock(ctx context.Context, storeID, productID uuid.UUID) (StoreStock, error)
	SaveStoreStock(ctx context.Context, stock StoreStock) error
	SetMinStock(ctx context.Context, storeID, productID uuid.UUID, minStock int, at time.Time) (StoreStock, error)
	GetStoreStock(ctx context.Context, storeID, productID uuid.UUID) (StockLevel, error)
	ListStoreStock(ctx context.Context, filter StockFilter) ([]StockLevel, error)
}

// LedgerRecorder appends stock history.
type LedgerRecorder interface {
	Record(ctx context.Context, entry ledger.Entry) (ledger.Entry, error)
}

// Observer receives stock movement events for metrics.
type Observer interface {
	StockMoved(counter string, movement ledger.MovementType, delta int)
	StockRejected(counter string)
}

const (
	counterFactory = "factory"
	counterStore   = "store"
)

// Adjuster is the only writer of factory stock and store stock. Every
// successful call leaves one ledger entry behind.
type Adjuster struct {
	repo     Repository
	tx       db.Transactor
	ledger   LedgerRecorder
	observer Observer
	now      func() time.Time
}

// NewAdjuster builds an Adjuster. observer may be nil.
func NewAdjuster(repo Repository, tx db.Transactor, recorder LedgerRecorder, observer Observer) *Adjuster {
	return &Adjuster{
		repo:     repo,
		tx:       tx,
		ledger:   recorder,
		observer: observer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AdjustFactoryStock applies adj to the product's factory stock. It joins the
// atomic unit carried by ctx or opens its own.
func (a *Adjuster) AdjustFactoryStock(ctx context.Context, adj FactoryAdjustment) (Change, error) {
	if adj.Delta == 0 {
		return Change{}, shared.Validation("factory adjustment needs a non-zero quantity")
	}
	var change Change
	err := a.tx.WithTx(ctx, func(ctx context.Context) error {
		product, err := a.repo.LockProduct(ctx, adj.ProductID)
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("product %s not found", adj.ProductID)
		}
		if err != nil {
			return err
		}
		before := product.FactoryStock
		after := before + adj.Delta
		if after < 0 {
			a.rejected(counterFactory)
			return shared.InsufficientStock("factory stock", product.SKU, before, -adj.Delta)
		}
		now := a.now()
		if err := a.repo.SetFactoryStock(ctx, product.ID, after, now); err != nil {
			return fmt.Errorf("set factory stock %s: %w", product.SKU, err)
		}
		entry, err := a.ledger.Record(ctx, a.entry(adj.ProductID, nil, adj.Type, before, adj.Delta, adj.Reference, adj.Actor, adj.Notes, now))
		if err != nil {
			return err
		}
		change = Change{Before: before, After: after, Entry: entry}
		return nil
	})
	if err != nil {
		return Change{}, err
	}
	a.moved(counterFactory, adj.Type, adj.Delta)
	return change, nil
}

// AdjustStoreStock applies adj to the (store, product) pair, creating the
// pair on first use.
func (a *Adjuster) AdjustStoreStock(ctx context.Context, adj StoreAdjustment) (Change, error) {
	if adj.Delta == 0 {
		return Change{}, shared.Validation("store adjustment needs a non-zero quantity")
	}
	var change Change
	err := a.tx.WithTx(ctx, func(ctx context.Context) error {
		product, err := a.repo.LockProduct(ctx, adj.ProductID)
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("product %s not found", adj.ProductID)
		}
		if err != nil {
			return err
		}
		stock, err := a.repo.LockStoreStock(ctx, adj.StoreID, adj.ProductID)
		if errors.Is(err, shared.ErrNotFound) {
			stock = StoreStock{StoreID: adj.StoreID, ProductID: adj.ProductID, MinStock: DefaultMinStock}
		} else if err != nil {
			return err
		}
		before := stock.QuantityAvailable
		after := before + adj.Delta
		if after < 0 {
			a.rejected(counterStore)
			return shared.InsufficientStock("store stock", product.SKU, before, -adj.Delta)
		}
		sold := stock.QuantitySold + adj.SoldDelta
		returned := stock.QuantityReturned + adj.ReturnedDelta
		if sold < 0 || returned < 0 {
			return shared.InvalidState("sold/returned counters for %s would go negative", product.SKU)
		}
		now := a.now()
		stock.QuantityAvailable = after
		stock.QuantitySold = sold
		stock.QuantityReturned = returned
		stock.LastUpdated = now
		if err := a.repo.SaveStoreStock(ctx, stock); err != nil {
			return fmt.Errorf("save store stock %s: %w", product.SKU, err)
		}
		storeID := adj.StoreID
		entry, err := a.ledger.Record(ctx, a.entry(adj.ProductID, &storeID, adj.Type, before, adj.Delta, adj.Reference, adj.Actor, adj.Notes, now))
		if err != nil {
			return err
		}
		change = Change{Before: before, After: after, Entry: entry}
		return nil
	})
	if err != nil {
		return Change{}, err
	}
	a.moved(counterStore, adj.Type, adj.Delta)
	return change, nil
}

// RecordOpeningStock books the first factory stock of a product.
func (a *Adjuster) RecordOpeningStock(ctx context.Context, productID uuid.UUID, quantity int, actor shared.Actor) error {
	_, err := a.AdjustFactoryStock(ctx, FactoryAdjustment{
		ProductID: productID,
		Delta:     quantity,
		Type:      ledger.MovementIn,
		Reference: &ledger.Reference{Type: ledger.RefProduct, ID: productID},
		Actor:     actor,
		Notes:     "opening stock",
	})
	return err
}

func (a *Adjuster) entry(productID uuid.UUID, storeID *uuid.UUID, movement ledger.MovementType, before, delta int, ref *ledger.Reference, actor shared.Actor, notes string, at time.Time) ledger.Entry {
	e := ledger.Entry{
		ProductID:      productID,
		StoreID:        storeID,
		Type:           movement,
		QuantityBefore: before,
		QuantityChange: delta,
		QuantityAfter:  before + delta,
		Notes:          notes,
		ActorID:        actor.ID,
		CreatedAt:      at,
	}
	if ref != nil {
		refID := ref.ID
		e.ReferenceType = ref.Type
		e.ReferenceID = &refID
	}
	return e
}

func (a *Adjuster) moved(counter string, movement ledger.MovementType, delta int) {
	if a.observer != nil {
		a.observer.StockMoved(counter, movement, delta)
	}
}

func (a *Adjuster) rejected(counter string) {
	if a.observer != nil {
		a.observer.StockRejected(counter)
	}
}
