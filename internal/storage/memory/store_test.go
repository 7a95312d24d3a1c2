package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/inventory"
	"github.com/fabricflow/fabricflow/internal/ledger"
	"github.com/fabricflow/fabricflow/internal/sequence"
	"github.com/fabricflow/fabricflow/internal/shared"
	"github.com/fabricflow/fabricflow/internal/storage/memory"
	_ "github.com/fabricflow/fabricflow/testing"
)

func product(sku, barcode string) catalog.Product {
	now := time.Now().UTC()
	return catalog.Product{
		ID:        uuid.New(),
		SKU:       sku,
		Barcode:   barcode,
		Name:      "Crew tee",
		Size:      catalog.Size("M"),
		SalePrice: decimal.NewFromInt(499),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p := product("SKU-2025-00001", "8900000000017")
	require.NoError(t, store.Catalog().InsertProduct(ctx, p))

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(ctx context.Context) error {
		require.NoError(t, store.Inventory().SetFactoryStock(ctx, p.ID, 40, time.Now()))
		require.NoError(t, store.Ledger().InsertEntry(ctx, ledger.Entry{ID: uuid.New(), ProductID: p.ID, QuantityChange: 40}))

		inside, err := store.Catalog().GetProduct(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, 40, inside.FactoryStock)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Catalog().GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Zero(t, got.FactoryStock)

	entries, err := store.Ledger().ListEntries(ctx, ledger.Filter{})
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestWithTxCommitsNestedUnits(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p := product("SKU-2025-00001", "8900000000017")
	require.NoError(t, store.Catalog().InsertProduct(ctx, p))
	storeID := uuid.New()

	err := store.WithTx(ctx, func(ctx context.Context) error {
		return store.WithTx(ctx, func(ctx context.Context) error {
			return store.Inventory().SaveStoreStock(ctx, inventory.StoreStock{
				StoreID: storeID, ProductID: p.ID, QuantityAvailable: 7, MinStock: inventory.DefaultMinStock,
			})
		})
	})
	require.NoError(t, err)

	got, err := store.Inventory().LockStoreStock(ctx, storeID, p.ID)
	require.NoError(t, err)
	require.Equal(t, 7, got.QuantityAvailable)
}

func TestProductUniqueness(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Catalog().InsertProduct(ctx, product("SKU-2025-00001", "8900000000017")))

	err := store.Catalog().InsertProduct(ctx, product("SKU-2025-00001", "8900000000024"))
	require.ErrorIs(t, err, shared.ErrConflict)

	err = store.Catalog().InsertProduct(ctx, product("SKU-2025-00002", "8900000000017"))
	require.ErrorIs(t, err, shared.ErrConflict)

	exists, err := store.Catalog().BarcodeExists(ctx, "8900000000017")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestStoreNamesIgnoreDeletedRows(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	first := catalog.Store{ID: uuid.New(), Name: "Indiranagar", IsActive: true}
	require.NoError(t, store.Catalog().InsertStore(ctx, first))

	err := store.Catalog().InsertStore(ctx, catalog.Store{ID: uuid.New(), Name: " indiranagar "})
	require.ErrorIs(t, err, shared.ErrConflict)

	first.IsDeleted = true
	require.NoError(t, store.Catalog().UpdateStore(ctx, first))
	require.NoError(t, store.Catalog().InsertStore(ctx, catalog.Store{ID: uuid.New(), Name: "Indiranagar", IsActive: true}))

	stores, err := store.Catalog().ListStores(ctx, true)
	require.NoError(t, err)
	require.Len(t, stores, 1)
}

func TestLastNumberPrefersLongerNumbers(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Catalog().InsertProduct(ctx, product("SKU-2025-99999", "8900000000017")))
	require.NoError(t, store.Catalog().InsertProduct(ctx, product("SKU-2025-100000", "8900000000024")))
	require.NoError(t, store.Catalog().InsertProduct(ctx, product("SKU-2024-00500", "8900000000031")))

	last, ok, err := store.LastNumber(ctx, sequence.SKU, 2025)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "SKU-2025-100000", last)

	_, ok, err = store.LastNumber(ctx, sequence.Dispatch, 2025)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIdempotencyClaim(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, store.Claim(ctx, "sales", "key-1", "sale-1"))
	require.ErrorIs(t, store.Claim(ctx, "sales", "key-1", "sale-2"), shared.ErrIdempotencyConflict)

	id, ok, err := store.Lookup(ctx, "sales", "key-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "sale-1", id)

	require.NoError(t, store.Cleanup(ctx, -time.Minute))
	_, ok, err = store.Lookup(ctx, "sales", "key-1")
	require.NoError(t, err)
	require.False(t, ok)
}
