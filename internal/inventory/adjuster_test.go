package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/inventory"
	"github.com/fabricflow/fabricflow/internal/ledger"
	"github.com/fabricflow/fabricflow/internal/shared"
	"github.com/fabricflow/fabricflow/internal/storage/memory"
	_ "github.com/fabricflow/fabricflow/testing"
)

type movement struct {
	counter string
	kind    ledger.MovementType
	delta   int
}

type recordingObserver struct {
	mu       sync.Mutex
	moves    []movement
	rejected []string
}

func (o *recordingObserver) StockMoved(counter string, kind ledger.MovementType, delta int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.moves = append(o.moves, movement{counter, kind, delta})
}

func (o *recordingObserver) StockRejected(counter string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, counter)
}

type harness struct {
	store    *memory.Store
	adjuster *inventory.Adjuster
	recorder *ledger.Recorder
	observer *recordingObserver
	product  catalog.Product
	actor    shared.Actor
}

func newHarness(t *testing.T) harness {
	t.Helper()
	store := memory.New()
	recorder := ledger.NewRecorder(store.Ledger())
	observer := &recordingObserver{}
	now := time.Now().UTC()
	p := catalog.Product{
		ID:        uuid.New(),
		SKU:       "SKU-2025-00007",
		Barcode:   "412345678901",
		Name:      "Polo",
		Size:      catalog.SizeM,
		SalePrice: decimal.NewFromInt(799),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.Catalog().InsertProduct(context.Background(), p))
	return harness{
		store:    store,
		adjuster: inventory.NewAdjuster(store.Inventory(), store, recorder, observer),
		recorder: recorder,
		observer: observer,
		product:  p,
		actor:    shared.Actor{ID: uuid.New(), Role: shared.RoleAdmin},
	}
}

func TestFactoryAdjustmentWritesLedger(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.adjuster.RecordOpeningStock(ctx, h.product.ID, 30, h.actor))
	change, err := h.adjuster.AdjustFactoryStock(ctx, inventory.FactoryAdjustment{
		ProductID: h.product.ID,
		Delta:     -12,
		Type:      ledger.MovementDispatch,
		Reference: &ledger.Reference{Type: ledger.RefDispatch, ID: uuid.New()},
		Actor:     h.actor,
	})
	require.NoError(t, err)
	require.Equal(t, 30, change.Before)
	require.Equal(t, 18, change.After)
	require.Equal(t, -12, change.Entry.QuantityChange)
	require.Equal(t, ledger.RefDispatch, change.Entry.ReferenceType)
	require.Nil(t, change.Entry.StoreID)

	card, err := h.recorder.StockCard(ctx, h.product.ID, nil, 0)
	require.NoError(t, err)
	require.Len(t, card, 2)
	require.Equal(t, ledger.RefProduct, card[0].ReferenceType)
	require.Equal(t, 30, card[0].QuantityAfter)
	require.Equal(t, 18, card[1].QuantityAfter)

	require.Equal(t, []movement{
		{"factory", ledger.MovementIn, 30},
		{"factory", ledger.MovementDispatch, -12},
	}, h.observer.moves)
}

func TestNegativeFactoryStockIsRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.adjuster.RecordOpeningStock(ctx, h.product.ID, 4, h.actor))

	_, err := h.adjuster.AdjustFactoryStock(ctx, inventory.FactoryAdjustment{
		ProductID: h.product.ID,
		Delta:     -5,
		Type:      ledger.MovementDispatch,
		Actor:     h.actor,
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	var qe *shared.QuantityError
	require.ErrorAs(t, err, &qe)
	require.Equal(t, h.product.SKU, qe.Subject)
	require.True(t, qe.Available.Equal(decimal.NewFromInt(4)))
	require.True(t, qe.Requested.Equal(decimal.NewFromInt(5)))

	p, err := h.store.Catalog().GetProduct(ctx, h.product.ID)
	require.NoError(t, err)
	require.Equal(t, 4, p.FactoryStock)

	entries, err := h.recorder.List(ctx, ledger.Filter{ProductID: &h.product.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, []string{"factory"}, h.observer.rejected)
}

func TestStoreAdjustmentCreatesPairAndMovesCounters(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	storeID := uuid.New()

	change, err := h.adjuster.AdjustStoreStock(ctx, inventory.StoreAdjustment{
		StoreID:   storeID,
		ProductID: h.product.ID,
		Delta:     8,
		Type:      ledger.MovementIn,
		Actor:     h.actor,
	})
	require.NoError(t, err)
	require.Zero(t, change.Before)
	require.Equal(t, 8, change.After)
	require.NotNil(t, change.Entry.StoreID)
	require.Equal(t, storeID, *change.Entry.StoreID)

	_, err = h.adjuster.AdjustStoreStock(ctx, inventory.StoreAdjustment{
		StoreID:   storeID,
		ProductID: h.product.ID,
		Delta:     -3,
		SoldDelta: 3,
		Type:      ledger.MovementSale,
		Actor:     h.actor,
	})
	require.NoError(t, err)

	stock, err := h.store.Inventory().LockStoreStock(ctx, storeID, h.product.ID)
	require.NoError(t, err)
	require.Equal(t, 5, stock.QuantityAvailable)
	require.Equal(t, 3, stock.QuantitySold)
	require.Equal(t, inventory.DefaultMinStock, stock.MinStock)

	// Returning more than was ever sold would break the sold counter.
	_, err = h.adjuster.AdjustStoreStock(ctx, inventory.StoreAdjustment{
		StoreID:       storeID,
		ProductID:     h.product.ID,
		Delta:         4,
		SoldDelta:     -4,
		ReturnedDelta: 4,
		Type:          ledger.MovementReturn,
		Actor:         h.actor,
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = h.adjuster.AdjustStoreStock(ctx, inventory.StoreAdjustment{
		StoreID:   storeID,
		ProductID: h.product.ID,
		Delta:     -6,
		Type:      ledger.MovementOut,
		Actor:     h.actor,
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	stock, err = h.store.Inventory().LockStoreStock(ctx, storeID, h.product.ID)
	require.NoError(t, err)
	require.Equal(t, 5, stock.QuantityAvailable)
	require.Equal(t, 3, stock.QuantitySold)
	require.Zero(t, stock.QuantityReturned)
	require.Equal(t, []string{"store"}, h.observer.rejected)
}

func TestZeroAndUnknownAdjustments(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.adjuster.AdjustFactoryStock(ctx, inventory.FactoryAdjustment{ProductID: h.product.ID, Type: ledger.MovementIn})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = h.adjuster.AdjustStoreStock(ctx, inventory.StoreAdjustment{StoreID: uuid.New(), ProductID: uuid.New(), Delta: 1, Type: ledger.MovementIn})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestConcurrentDebitsNeverOversell(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.adjuster.RecordOpeningStock(ctx, h.product.ID, 20, h.actor))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		errs int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.adjuster.AdjustFactoryStock(ctx, inventory.FactoryAdjustment{
				ProductID: h.product.ID,
				Delta:     -1,
				Type:      ledger.MovementDispatch,
				Actor:     h.actor,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				oks++
			case errors.Is(err, shared.ErrInsufficientStock):
				errs++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 20, oks)
	require.Equal(t, 30, errs)
	p, err := h.store.Catalog().GetProduct(ctx, h.product.ID)
	require.NoError(t, err)
	require.Zero(t, p.FactoryStock)
}
