package fabric_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/fabric"
	"github.com/fabricflow/fabricflow/internal/sequence"
	"github.com/fabricflow/fabricflow/internal/shared"
	"github.com/fabricflow/fabricflow/internal/storage/memory"
	_ "github.com/fabricflow/fabricflow/testing"
)

var owner = shared.Actor{ID: uuid.New(), Role: shared.RoleAdmin}

func m(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFabrics(t *testing.T) (*fabric.Service, catalog.Supplier) {
	t.Helper()
	store := memory.New()
	cat := catalog.NewService(store.Catalog(), store, sequence.NewGenerator(store), store, nil)
	supplier, err := cat.CreateSupplier(context.Background(), catalog.SupplierInput{Name: "Welspun"}, owner)
	require.NoError(t, err)
	return fabric.NewService(store.Fabrics(), store, cat, store, nil), supplier
}

func lot(supplierID uuid.UUID, meters, rate string) fabric.PurchaseInput {
	return fabric.PurchaseInput{
		SupplierID:     supplierID,
		Type:           "Linen",
		Color:          "Olive",
		GSM:            150,
		InvoiceNumber:  "WS/24/118",
		MeterPurchased: m(meters),
		RatePerMeter:   m(rate),
	}
}

func TestPurchase(t *testing.T) {
	ctx := context.Background()
	svc, supplier := newFabrics(t)

	f, err := svc.Purchase(ctx, lot(supplier.ID, "120.5", "212.40"), owner)
	require.NoError(t, err)
	require.True(t, f.TotalAmount.Equal(m("25594.2")))
	require.True(t, f.MeterAvailable.Equal(f.MeterPurchased))
	require.Equal(t, fabric.StatusActive, f.Status)
	require.False(t, f.PurchaseDate.IsZero())

	for name, mutate := range map[string]func(*fabric.PurchaseInput){
		"zero meters":   func(in *fabric.PurchaseInput) { in.MeterPurchased = decimal.Zero },
		"negative rate": func(in *fabric.PurchaseInput) { in.RatePerMeter = m("-1") },
		"no invoice":    func(in *fabric.PurchaseInput) { in.InvoiceNumber = "  " },
	} {
		in := lot(supplier.ID, "10", "10")
		mutate(&in)
		_, err := svc.Purchase(ctx, in, owner)
		require.ErrorIs(t, err, shared.ErrValidation, name)
	}

	_, err = svc.Purchase(ctx, lot(uuid.New(), "10", "10"), owner)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestInvoiceNumbersAreUniquePerSupplier(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cat := catalog.NewService(store.Catalog(), store, sequence.NewGenerator(store), store, nil)
	svc := fabric.NewService(store.Fabrics(), store, cat, store, nil)
	welspun, err := cat.CreateSupplier(ctx, catalog.SupplierInput{Name: "Welspun"}, owner)
	require.NoError(t, err)
	arvind, err := cat.CreateSupplier(ctx, catalog.SupplierInput{Name: "Arvind"}, owner)
	require.NoError(t, err)

	in := lot(welspun.ID, "50", "90")
	in.InvoiceNumber = "INV-1"
	_, err = svc.Purchase(ctx, in, owner)
	require.NoError(t, err)

	in.SupplierID = arvind.ID
	_, err = svc.Purchase(ctx, in, owner)
	require.NoError(t, err)

	in.SupplierID = welspun.ID
	_, err = svc.Purchase(ctx, in, owner)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestConsumeDrainsLot(t *testing.T) {
	ctx := context.Background()
	svc, supplier := newFabrics(t)
	f, err := svc.Purchase(ctx, lot(supplier.ID, "50", "90"), owner)
	require.NoError(t, err)

	f, err = svc.Consume(ctx, f.ID, m("20.25"))
	require.NoError(t, err)
	require.True(t, f.MeterAvailable.Equal(m("29.75")))
	require.Equal(t, fabric.StatusActive, f.Status)

	_, err = svc.Consume(ctx, f.ID, m("30"))
	require.ErrorIs(t, err, shared.ErrInsufficientMaterial)

	_, err = svc.Consume(ctx, f.ID, decimal.Zero)
	require.ErrorIs(t, err, shared.ErrValidation)

	f, err = svc.Consume(ctx, f.ID, m("29.75"))
	require.NoError(t, err)
	require.True(t, f.MeterAvailable.IsZero())
	require.Equal(t, fabric.StatusConsumed, f.Status)
	require.True(t, f.MeterPurchased.Equal(m("50")))
}

func TestInactiveAndDeletedLots(t *testing.T) {
	ctx := context.Background()
	svc, supplier := newFabrics(t)
	f, err := svc.Purchase(ctx, lot(supplier.ID, "40", "75"), owner)
	require.NoError(t, err)

	off := false
	color := "Sage"
	updated, err := svc.Update(ctx, f.ID, fabric.UpdateInput{IsActive: &off, Color: &color}, owner)
	require.NoError(t, err)
	require.Equal(t, "Sage", updated.Color)
	require.True(t, updated.MeterAvailable.Equal(m("40")))

	_, err = svc.Consume(ctx, f.ID, m("1"))
	require.ErrorIs(t, err, shared.ErrInvalidState)

	require.NoError(t, svc.Delete(ctx, f.ID, owner))
	_, err = svc.Get(ctx, f.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	list, err := svc.List(ctx, fabric.Filter{})
	require.NoError(t, err)
	require.Empty(t, list)
}
