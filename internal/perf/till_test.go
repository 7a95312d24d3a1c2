package perf

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/fabricflow/fabricflow/internal/app"
	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/dispatch"
	"github.com/fabricflow/fabricflow/internal/sales"
	"github.com/fabricflow/fabricflow/internal/shared"
	"github.com/fabricflow/fabricflow/internal/storage/memory"
	_ "github.com/fabricflow/fabricflow/testing"
)

var owner = shared.Actor{ID: uuid.New(), Role: shared.RoleAdmin}

var price = decimal.NewFromInt(399)

// stockedTill returns services with one store holding units of one product.
func stockedTill(tb testing.TB, units int) (*app.Services, uuid.UUID, uuid.UUID) {
	tb.Helper()
	ctx := context.Background()
	svc := app.BuildServices(app.ServiceDeps{
		Backend:   app.MemoryBackend(memory.New()),
		JWTSecret: "perf-secret",
		JWTTTL:    time.Hour,
		Location:  time.UTC,
	})
	store, err := svc.Catalog.CreateStore(ctx, catalog.StoreInput{Name: "Commercial Street"}, owner)
	require.NoError(tb, err)
	p, err := svc.Catalog.CreateProduct(ctx, catalog.CreateProductInput{
		ProductDetails: catalog.ProductDetails{Name: "Boxer", SalePrice: price},
		Size:           catalog.SizeM,
		OpeningStock:   units,
	}, owner)
	require.NoError(tb, err)
	d, err := svc.Dispatch.Create(ctx, dispatch.CreateInput{
		StoreID: store.ID,
		Items:   []dispatch.LineInput{{ProductID: p.ID, Quantity: units}},
	}, owner)
	require.NoError(tb, err)
	_, err = svc.Dispatch.UpdateStatus(ctx, d.ID, dispatch.StatusReceived, owner)
	require.NoError(tb, err)
	return svc, store.ID, p.ID
}

func oneUnit(storeID, productID uuid.UUID) sales.CreateInput {
	return sales.CreateInput{
		StoreID:     storeID,
		Items:       []sales.LineInput{{ProductID: productID, Quantity: 1, Price: price, Total: price}},
		SubTotal:    price,
		GrandTotal:  price,
		PaymentMode: sales.PaymentCash,
	}
}

func TestConcurrentTillsNeverOversell(t *testing.T) {
	const (
		units  = 40
		tills  = 8
		perTill = 10
	)
	svc, storeID, productID := stockedTill(t, units)
	ctx := context.Background()

	var (
		mu      sync.Mutex
		samples []time.Duration
		sold    int
		refused int
	)
	g, gctx := errgroup.WithContext(ctx)
	for range tills {
		g.Go(func() error {
			for range perTill {
				start := time.Now()
				_, err := svc.Sales.Create(gctx, oneUnit(storeID, productID), owner)
				elapsed := time.Since(start)
				mu.Lock()
				samples = append(samples, elapsed)
				switch {
				case err == nil:
					sold++
				case errors.Is(err, shared.ErrInsufficientStock):
					refused++
				default:
					mu.Unlock()
					return err
				}
				mu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Equal(t, units, sold)
	require.Equal(t, tills*perTill-units, refused)
	level, err := svc.Inventory.GetStoreStock(ctx, storeID, productID, owner)
	require.NoError(t, err)
	require.Zero(t, level.QuantityAvailable)
	require.Equal(t, units, level.QuantitySold)

	if p95 := percentile95(samples); p95 > 250*time.Millisecond {
		t.Fatalf("sale latency regression: p95=%s", p95)
	}
}

func BenchmarkSale(b *testing.B) {
	svc, storeID, productID := stockedTill(b, b.N+1)
	ctx := context.Background()
	b.ResetTimer()
	for range b.N {
		if _, err := svc.Sales.Create(ctx, oneUnit(storeID, productID), owner); err != nil {
			b.Fatal(err)
		}
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	return sorted[index]
}
