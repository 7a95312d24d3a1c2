package reports_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fabricflow/fabricflow/internal/app"
	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/dispatch"
	"github.com/fabricflow/fabricflow/internal/sales"
	"github.com/fabricflow/fabricflow/internal/shared"
	"github.com/fabricflow/fabricflow/internal/storage/memory"
	_ "github.com/fabricflow/fabricflow/testing"
)

var admin = shared.Actor{ID: uuid.New(), Role: shared.RoleAdmin}

type shop struct {
	svc     *app.Services
	store   catalog.Store
	product catalog.Product
}

func openShop(t *testing.T, client redis.UniversalClient) shop {
	t.Helper()
	ctx := context.Background()
	svc := app.BuildServices(app.ServiceDeps{
		Backend:    app.MemoryBackend(memory.New()),
		Redis:      client,
		JWTSecret:  "reports-test-secret",
		JWTTTL:     time.Hour,
		LockTTL:    5 * time.Second,
		Location:   time.UTC,
		SummaryTTL: time.Minute,
	})
	store, err := svc.Catalog.CreateStore(ctx, catalog.StoreInput{Name: "MG Road"}, admin)
	require.NoError(t, err)
	product, err := svc.Catalog.CreateProduct(ctx, catalog.CreateProductInput{
		ProductDetails: catalog.ProductDetails{Name: "Chino", SalePrice: decimal.NewFromInt(1199)},
		Size:           catalog.SizeL,
		OpeningStock:   20,
	}, admin)
	require.NoError(t, err)
	d, err := svc.Dispatch.Create(ctx, dispatch.CreateInput{
		StoreID: store.ID,
		Items:   []dispatch.LineInput{{ProductID: product.ID, Quantity: 4}},
	}, admin)
	require.NoError(t, err)
	_, err = svc.Dispatch.UpdateStatus(ctx, d.ID, dispatch.StatusReceived, admin)
	require.NoError(t, err)
	_, err = svc.Sales.Create(ctx, sales.CreateInput{
		StoreID:     store.ID,
		Items:       []sales.LineInput{{ProductID: product.ID, Quantity: 1, Price: decimal.NewFromInt(1199), Total: decimal.NewFromInt(1199)}},
		SubTotal:    decimal.NewFromInt(1199),
		GrandTotal:  decimal.NewFromInt(1199),
		PaymentMode: sales.PaymentCard,
	}, admin)
	require.NoError(t, err)
	return shop{svc: svc, store: store, product: product}
}

func TestSummary(t *testing.T) {
	s := openShop(t, nil)
	ctx := context.Background()

	sum, err := s.svc.Reports.Summary(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, 1, sum.ProductCount)
	require.Equal(t, 16, sum.FactoryStock)
	require.Equal(t, 3, sum.StoreStock)
	require.Equal(t, 1, sum.TodaySales)
	require.True(t, sum.TodayRevenue.Equal(decimal.NewFromInt(1199)))
	require.Equal(t, 1, sum.LowStockCount)

	storeID := s.store.ID
	_, err = s.svc.Reports.Summary(ctx, shared.Actor{ID: uuid.New(), Role: shared.RoleStoreStaff, StoreID: &storeID})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestSummaryIsCachedForTheDay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := openShop(t, client)
	ctx := context.Background()

	first, err := s.svc.Reports.Summary(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, 1, first.ProductCount)

	_, err = s.svc.Catalog.CreateProduct(ctx, catalog.CreateProductInput{
		ProductDetails: catalog.ProductDetails{Name: "Chino", SalePrice: decimal.NewFromInt(1199)},
		Size:           catalog.SizeXL,
	}, admin)
	require.NoError(t, err)

	cached, err := s.svc.Reports.Summary(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, 1, cached.ProductCount)

	mr.FastForward(2 * time.Minute)
	fresh, err := s.svc.Reports.Summary(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, 2, fresh.ProductCount)
}

func TestExportStoreInventory(t *testing.T) {
	s := openShop(t, nil)
	ctx := context.Background()

	data, name, err := s.svc.Reports.ExportStoreInventory(ctx, s.store.ID, admin)
	require.NoError(t, err)
	require.Regexp(t, `^inventory-mg-road-\d{8}\.xlsx$`, name)

	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows("Inventory")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, "MG Road", rows[0][0])
	require.Equal(t, "SKU", rows[2][0])
	require.Equal(t, []string{s.product.SKU, s.product.Barcode, "Chino", "L", "3", "1", "0", "5", "LOW"}, rows[3])

	_, _, err = s.svc.Reports.ExportStoreInventory(ctx, uuid.New(), admin)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
