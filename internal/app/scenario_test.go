package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fabricflow/fabricflow/internal/app"
	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/dispatch"
	"github.com/fabricflow/fabricflow/internal/fabric"
	"github.com/fabricflow/fabricflow/internal/inventory"
	"github.com/fabricflow/fabricflow/internal/ledger"
	"github.com/fabricflow/fabricflow/internal/production"
	"github.com/fabricflow/fabricflow/internal/returns"
	"github.com/fabricflow/fabricflow/internal/sales"
	"github.com/fabricflow/fabricflow/internal/shared"
	"github.com/fabricflow/fabricflow/internal/storage/memory"
)

type floor struct {
	t     *testing.T
	ctx   context.Context
	svc   *app.Services
	admin shared.Actor
}

func newFloor(t *testing.T) floor {
	t.Helper()
	svc := app.BuildServices(app.ServiceDeps{
		Backend:   app.MemoryBackend(memory.New()),
		JWTSecret: testSecret,
		JWTTTL:    time.Hour,
		Location:  time.UTC,
	})
	return floor{
		t:     t,
		ctx:   context.Background(),
		svc:   svc,
		admin: shared.Actor{ID: uuid.New(), Name: "owner", Role: shared.RoleAdmin},
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f floor) store(name string) catalog.Store {
	f.t.Helper()
	s, err := f.svc.Catalog.CreateStore(f.ctx, catalog.StoreInput{Name: name}, f.admin)
	require.NoError(f.t, err)
	return s
}

func (f floor) factoryStock(id uuid.UUID) int {
	f.t.Helper()
	p, err := f.svc.Catalog.GetProduct(f.ctx, id)
	require.NoError(f.t, err)
	return p.FactoryStock
}

func (f floor) storeStock(storeID, productID uuid.UUID) (available, sold, returned int) {
	f.t.Helper()
	level, err := f.svc.Inventory.GetStoreStock(f.ctx, storeID, productID, f.admin)
	require.NoError(f.t, err)
	return level.QuantityAvailable, level.QuantitySold, level.QuantityReturned
}

// produce runs a 1000m lot through one batch of S:50 M:100 L:50.
func (f floor) produce() (fabric.Fabric, map[catalog.Size]catalog.Product) {
	f.t.Helper()
	supplier, err := f.svc.Catalog.CreateSupplier(f.ctx, catalog.SupplierInput{Name: "Tirupur Mills"}, f.admin)
	require.NoError(f.t, err)
	lot, err := f.svc.Fabric.Purchase(f.ctx, fabric.PurchaseInput{
		SupplierID:     supplier.ID,
		Type:           "Cotton",
		Color:          "Navy",
		GSM:            180,
		InvoiceNumber:  "INV-7781",
		MeterPurchased: dec("1000"),
		RatePerMeter:   dec("100"),
	}, f.admin)
	require.NoError(f.t, err)
	require.True(f.t, lot.TotalAmount.Equal(dec("100000")))

	batch, err := f.svc.Production.CreateBatch(f.ctx, production.CreateBatchInput{
		FabricID:  lot.ID,
		MeterUsed: dec("200"),
		SizeBreakdown: []production.SizeQuantity{
			{Size: catalog.SizeS, Quantity: 50},
			{Size: catalog.SizeM, Quantity: 100},
			{Size: catalog.SizeL, Quantity: 50},
		},
	}, f.admin)
	require.NoError(f.t, err)
	require.Equal(f.t, production.StageCutting, batch.Stage)
	require.Equal(f.t, 200, batch.TotalPieces)

	result, err := f.svc.Production.AdvanceStage(f.ctx, batch.ID, production.AdvanceInput{
		Stage: production.StageReady,
		Product: &catalog.ProductDetails{
			Name:      "Crew Neck Tee",
			Color:     "Navy",
			CostPrice: dec("180"),
			SalePrice: dec("499"),
		},
	}, f.admin)
	require.NoError(f.t, err)
	require.Equal(f.t, production.StatusCompleted, result.Batch.Status)
	require.NotNil(f.t, result.Batch.CompletedAt)

	bySize := make(map[catalog.Size]catalog.Product, len(result.Products))
	for _, p := range result.Products {
		require.NotNil(f.t, p.BatchID)
		require.Equal(f.t, batch.ID, *p.BatchID)
		bySize[p.Size] = p
	}
	lot, err = f.svc.Fabric.Get(f.ctx, lot.ID)
	require.NoError(f.t, err)
	return lot, bySize
}

func (f floor) dispatchAndReceive(store catalog.Store, lines ...dispatch.LineInput) dispatch.Dispatch {
	f.t.Helper()
	d, err := f.svc.Dispatch.Create(f.ctx, dispatch.CreateInput{StoreID: store.ID, Items: lines}, f.admin)
	require.NoError(f.t, err)
	require.Equal(f.t, dispatch.StatusPending, d.Status)
	d, err = f.svc.Dispatch.UpdateStatus(f.ctx, d.ID, dispatch.StatusReceived, f.admin)
	require.NoError(f.t, err)
	require.NotNil(f.t, d.ReceivedDate)
	return d
}

func (f floor) sell(store catalog.Store, key string, lines ...sales.LineInput) sales.Sale {
	f.t.Helper()
	sub := decimal.Zero
	for i := range lines {
		lines[i].Total = lines[i].Price.Mul(decimal.NewFromInt(int64(lines[i].Quantity)))
		sub = sub.Add(lines[i].Total)
	}
	sale, err := f.svc.Sales.Create(f.ctx, sales.CreateInput{
		StoreID:        store.ID,
		Items:          lines,
		SubTotal:       sub,
		GrandTotal:     sub,
		PaymentMode:    sales.PaymentUPI,
		IdempotencyKey: key,
	}, f.admin)
	require.NoError(f.t, err)
	return sale
}

func TestStockScenarios(t *testing.T) {
	f := newFloor(t)

	// Production
	lot, products := f.produce()
	require.True(t, lot.MeterAvailable.Equal(dec("800")))
	require.True(t, lot.MeterPurchased.Equal(dec("1000")))
	require.Equal(t, fabric.StatusActive, lot.Status)
	s, m, l := products[catalog.SizeS], products[catalog.SizeM], products[catalog.SizeL]
	require.Equal(t, 50, f.factoryStock(s.ID))
	require.Equal(t, 100, f.factoryStock(m.ID))
	require.Equal(t, 50, f.factoryStock(l.ID))

	// Dispatch
	store := f.store("MG Road")
	d := f.dispatchAndReceive(store,
		dispatch.LineInput{ProductID: m.ID, Quantity: 50},
		dispatch.LineInput{ProductID: l.ID, Quantity: 50},
	)
	require.Equal(t, 100, d.TotalItems)
	require.True(t, d.TotalValue.Equal(dec("49900")))
	require.Equal(t, 50, f.factoryStock(m.ID))
	require.Equal(t, 0, f.factoryStock(l.ID))
	avail, _, _ := f.storeStock(store.ID, m.ID)
	require.Equal(t, 50, avail)
	avail, _, _ = f.storeStock(store.ID, l.ID)
	require.Equal(t, 50, avail)

	// Sale
	sale := f.sell(store, "till-1-0001",
		sales.LineInput{ProductID: m.ID, Quantity: 10, Price: dec("499")},
		sales.LineInput{ProductID: l.ID, Quantity: 10, Price: dec("499")},
	)
	require.Equal(t, sales.StatusCompleted, sale.Status)
	require.True(t, sale.GrandTotal.Equal(dec("9980")))
	for _, id := range []uuid.UUID{m.ID, l.ID} {
		avail, sold, _ := f.storeStock(store.ID, id)
		require.Equal(t, 40, avail)
		require.Equal(t, 10, sold)
	}

	// Customer return
	saleID := sale.ID
	_, err := f.svc.Returns.Process(f.ctx, returns.CreateInput{
		Type:            returns.TypeCustomer,
		ReferenceSaleID: &saleID,
		StoreID:         store.ID,
		ProductID:       m.ID,
		Quantity:        5,
		Reason:          "wrong size",
	}, f.admin)
	require.NoError(t, err)
	avail, sold, returned := f.storeStock(store.ID, m.ID)
	require.Equal(t, 45, avail)
	require.Equal(t, 5, sold)
	require.Equal(t, 5, returned)

	// Store to factory
	_, err = f.svc.Returns.Process(f.ctx, returns.CreateInput{
		Type:      returns.TypeStoreToFactory,
		StoreID:   store.ID,
		ProductID: l.ID,
		Quantity:  10,
	}, f.admin)
	require.NoError(t, err)
	avail, _, _ = f.storeStock(store.ID, l.ID)
	require.Equal(t, 30, avail)
	require.Equal(t, 10, f.factoryStock(l.ID))

	// Damage write-off
	_, err = f.svc.Returns.Process(f.ctx, returns.CreateInput{
		Type:      returns.TypeDamaged,
		StoreID:   store.ID,
		ProductID: m.ID,
		Quantity:  3,
		Reason:    "stained",
	}, f.admin)
	require.NoError(t, err)
	avail, sold, returned = f.storeStock(store.ID, m.ID)
	require.Equal(t, 42, avail)
	require.Equal(t, 5, sold)
	require.Equal(t, 5, returned)

	// Every store movement of M is on the card, oldest first, and chains.
	card, err := f.svc.Ledger.StockCard(f.ctx, m.ID, &store.ID, 0)
	require.NoError(t, err)
	require.Len(t, card, 4)
	require.Equal(t, ledger.MovementIn, card[0].Type)
	require.Equal(t, ledger.MovementSale, card[1].Type)
	require.Equal(t, ledger.MovementReturn, card[2].Type)
	require.Equal(t, ledger.MovementOut, card[3].Type)
	for i, e := range card {
		require.Equal(t, e.QuantityBefore+e.QuantityChange, e.QuantityAfter)
		if i > 0 {
			require.Equal(t, card[i-1].QuantityAfter, e.QuantityBefore)
		}
	}
	require.Equal(t, 42, card[len(card)-1].QuantityAfter)
}

func TestProductionGuards(t *testing.T) {
	f := newFloor(t)
	lot, _ := f.produce()

	_, err := f.svc.Production.CreateBatch(f.ctx, production.CreateBatchInput{
		FabricID:      lot.ID,
		MeterUsed:     dec("800.5"),
		SizeBreakdown: []production.SizeQuantity{{Size: catalog.SizeM, Quantity: 10}},
	}, f.admin)
	require.ErrorIs(t, err, shared.ErrInsufficientMaterial)
	var qe *shared.QuantityError
	require.ErrorAs(t, err, &qe)
	require.True(t, qe.Available.Equal(dec("800")))

	unchanged, err := f.svc.Fabric.Get(f.ctx, lot.ID)
	require.NoError(t, err)
	require.True(t, unchanged.MeterAvailable.Equal(dec("800")))

	_, err = f.svc.Production.CreateBatch(f.ctx, production.CreateBatchInput{
		FabricID:  lot.ID,
		MeterUsed: dec("10"),
		SizeBreakdown: []production.SizeQuantity{
			{Size: catalog.SizeM, Quantity: 10},
			{Size: catalog.SizeM, Quantity: 5},
		},
	}, f.admin)
	require.ErrorIs(t, err, shared.ErrValidation)

	// The whole remainder closes the lot.
	batch, err := f.svc.Production.CreateBatch(f.ctx, production.CreateBatchInput{
		FabricID:      lot.ID,
		MeterUsed:     dec("800"),
		SizeBreakdown: []production.SizeQuantity{{Size: catalog.SizeXL, Quantity: 400}},
		Stage:         production.StageMaterialReceived,
	}, f.admin)
	require.NoError(t, err)
	consumed, err := f.svc.Fabric.Get(f.ctx, lot.ID)
	require.NoError(t, err)
	require.Equal(t, fabric.StatusConsumed, consumed.Status)
	require.True(t, consumed.MeterAvailable.IsZero())

	_, err = f.svc.Fabric.Consume(f.ctx, lot.ID, dec("1"))
	require.ErrorIs(t, err, shared.ErrInvalidState)

	advanced, err := f.svc.Production.AdvanceStage(f.ctx, batch.ID, production.AdvanceInput{Stage: production.StageFinishing}, f.admin)
	require.NoError(t, err)
	require.Empty(t, advanced.Products)

	_, err = f.svc.Production.AdvanceStage(f.ctx, batch.ID, production.AdvanceInput{Stage: production.StageCutting}, f.admin)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = f.svc.Production.AdvanceStage(f.ctx, batch.ID, production.AdvanceInput{Stage: production.StageReady}, f.admin)
	require.ErrorIs(t, err, shared.ErrValidation)

	cancelled, err := f.svc.Production.CancelBatch(f.ctx, batch.ID, f.admin)
	require.NoError(t, err)
	require.Equal(t, production.StatusCancelled, cancelled.Status)

	_, err = f.svc.Production.CancelBatch(f.ctx, batch.ID, f.admin)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestReadyBatchCannotBeFinishedTwice(t *testing.T) {
	f := newFloor(t)
	_, products := f.produce()
	batchID := *products[catalog.SizeM].BatchID

	_, err := f.svc.Production.AdvanceStage(f.ctx, batchID, production.AdvanceInput{
		Stage:   production.StageReady,
		Product: &catalog.ProductDetails{Name: "Crew Neck Tee", SalePrice: dec("499")},
	}, f.admin)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	list, err := f.svc.Catalog.ListProducts(f.ctx, catalog.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)
}

func TestDispatchGuards(t *testing.T) {
	f := newFloor(t)
	_, products := f.produce()
	l := products[catalog.SizeL]
	store := f.store("Koramangala")

	d, err := f.svc.Dispatch.Create(f.ctx, dispatch.CreateInput{
		StoreID: store.ID,
		Items:   []dispatch.LineInput{{ProductID: l.ID, Quantity: 50}},
	}, f.admin)
	require.NoError(t, err)
	require.Equal(t, 0, f.factoryStock(l.ID))

	_, err = f.svc.Dispatch.Create(f.ctx, dispatch.CreateInput{
		StoreID: store.ID,
		Items:   []dispatch.LineInput{{ProductID: l.ID, Quantity: 1}},
	}, f.admin)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Equal(t, 0, f.factoryStock(l.ID))

	_, err = f.svc.Dispatch.Create(f.ctx, dispatch.CreateInput{
		StoreID: store.ID,
		Items: []dispatch.LineInput{
			{ProductID: products[catalog.SizeS].ID, Quantity: 1},
			{ProductID: products[catalog.SizeS].ID, Quantity: 1},
		},
	}, f.admin)
	require.ErrorIs(t, err, shared.ErrValidation)

	staffStore := store.ID
	staff := shared.Actor{ID: uuid.New(), Role: shared.RoleStoreStaff, StoreID: &staffStore}
	_, err = f.svc.Dispatch.UpdateStatus(f.ctx, d.ID, dispatch.StatusShipped, staff)
	require.ErrorIs(t, err, shared.ErrForbidden)

	shipped, err := f.svc.Dispatch.UpdateStatus(f.ctx, d.ID, dispatch.StatusShipped, f.admin)
	require.NoError(t, err)
	require.NotNil(t, shipped.ShippedDate)

	_, err = f.svc.Dispatch.UpdateStatus(f.ctx, d.ID, dispatch.StatusPending, f.admin)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = f.svc.Dispatch.UpdateStatus(f.ctx, d.ID, dispatch.StatusReceived, staff)
	require.NoError(t, err)
	_, err = f.svc.Dispatch.UpdateStatus(f.ctx, d.ID, dispatch.StatusReceived, f.admin)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	// Deleting a received dispatch puts everything back where it started.
	require.NoError(t, f.svc.Dispatch.Delete(f.ctx, d.ID, f.admin))
	require.Equal(t, 50, f.factoryStock(l.ID))
	avail, _, _ := f.storeStock(store.ID, l.ID)
	require.Equal(t, 0, avail)

	_, err = f.svc.Dispatch.Get(f.ctx, d.ID, f.admin)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteReceivedDispatchAfterSaleFails(t *testing.T) {
	f := newFloor(t)
	_, products := f.produce()
	s := products[catalog.SizeS]
	store := f.store("Indiranagar")

	d := f.dispatchAndReceive(store, dispatch.LineInput{ProductID: s.ID, Quantity: 5})
	f.sell(store, "", sales.LineInput{ProductID: s.ID, Quantity: 3, Price: dec("499")})

	err := f.svc.Dispatch.Delete(f.ctx, d.ID, f.admin)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Equal(t, 45, f.factoryStock(s.ID))
	avail, sold, _ := f.storeStock(store.ID, s.ID)
	require.Equal(t, 2, avail)
	require.Equal(t, 3, sold)
}

func TestSalesGuards(t *testing.T) {
	f := newFloor(t)
	_, products := f.produce()
	m := products[catalog.SizeM]
	store := f.store("Jayanagar")
	f.dispatchAndReceive(store, dispatch.LineInput{ProductID: m.ID, Quantity: 5})

	base := sales.CreateInput{
		StoreID:     store.ID,
		Items:       []sales.LineInput{{ProductID: m.ID, Quantity: 2, Price: dec("499"), Total: dec("998")}},
		SubTotal:    dec("998"),
		Discount:    dec("98"),
		Tax:         dec("45"),
		GrandTotal:  dec("945"),
		PaymentMode: sales.PaymentCash,
	}

	wrong := base
	wrong.GrandTotal = dec("998")
	_, err := f.svc.Sales.Create(f.ctx, wrong, f.admin)
	require.ErrorIs(t, err, shared.ErrValidation)

	badPhone := base
	badPhone.CustomerPhone = "12"
	_, err = f.svc.Sales.Create(f.ctx, badPhone, f.admin)
	require.ErrorIs(t, err, shared.ErrValidation)

	tooMany := base
	tooMany.Items = []sales.LineInput{{ProductID: m.ID, Quantity: 6, Price: dec("499"), Total: dec("2994")}}
	tooMany.SubTotal, tooMany.Discount, tooMany.Tax, tooMany.GrandTotal = dec("2994"), decimal.Zero, decimal.Zero, dec("2994")
	_, err = f.svc.Sales.Create(f.ctx, tooMany, f.admin)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	avail, sold, _ := f.storeStock(store.ID, m.ID)
	require.Equal(t, 5, avail)
	require.Equal(t, 0, sold)

	other := f.store("Whitefield")
	otherID := other.ID
	staff := shared.Actor{ID: uuid.New(), Role: shared.RoleStoreStaff, StoreID: &otherID}
	_, err = f.svc.Sales.Create(f.ctx, base, staff)
	require.ErrorIs(t, err, shared.ErrForbidden)

	keyed := base
	keyed.CustomerPhone = "98450 12345"
	keyed.IdempotencyKey = "till-2-0042"
	first, err := f.svc.Sales.Create(f.ctx, keyed, f.admin)
	require.NoError(t, err)
	require.Equal(t, "+919845012345", first.CustomerPhone)
	again, err := f.svc.Sales.Create(f.ctx, keyed, f.admin)
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
	avail, sold, _ = f.storeStock(store.ID, m.ID)
	require.Equal(t, 3, avail)
	require.Equal(t, 2, sold)
}

func TestCustomerReturnCannotExceedSale(t *testing.T) {
	f := newFloor(t)
	_, products := f.produce()
	m := products[catalog.SizeM]
	store := f.store("Malleshwaram")
	f.dispatchAndReceive(store, dispatch.LineInput{ProductID: m.ID, Quantity: 10})
	sale := f.sell(store, "", sales.LineInput{ProductID: m.ID, Quantity: 2, Price: dec("499")})
	saleID := sale.ID

	input := returns.CreateInput{
		Type:            returns.TypeCustomer,
		ReferenceSaleID: &saleID,
		StoreID:         store.ID,
		ProductID:       m.ID,
		Quantity:        2,
	}
	_, err := f.svc.Returns.Process(f.ctx, input, f.admin)
	require.NoError(t, err)

	input.Quantity = 1
	_, err = f.svc.Returns.Process(f.ctx, input, f.admin)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	input.ReferenceSaleID = nil
	_, err = f.svc.Returns.Process(f.ctx, input, f.admin)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.Returns.Process(f.ctx, returns.CreateInput{
		Type:      returns.TypeDamaged,
		StoreID:   store.ID,
		ProductID: m.ID,
		Quantity:  11,
	}, f.admin)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	avail, sold, returned := f.storeStock(store.ID, m.ID)
	require.Equal(t, 10, avail)
	require.Equal(t, 0, sold)
	require.Equal(t, 2, returned)
}

func (f floor) ledgerCount(productID uuid.UUID) int {
	f.t.Helper()
	entries, err := f.svc.Ledger.List(f.ctx, ledger.Filter{ProductID: &productID, Limit: 200})
	require.NoError(f.t, err)
	return len(entries)
}

func TestDeletePendingDispatchRestoresFactoryStock(t *testing.T) {
	f := newFloor(t)
	_, products := f.produce()
	m := products[catalog.SizeM]
	store := f.store("Basavanagudi")

	d, err := f.svc.Dispatch.Create(f.ctx, dispatch.CreateInput{
		StoreID: store.ID,
		Items:   []dispatch.LineInput{{ProductID: m.ID, Quantity: 30}},
	}, f.admin)
	require.NoError(t, err)
	require.Equal(t, 70, f.factoryStock(m.ID))

	require.NoError(t, f.svc.Dispatch.Delete(f.ctx, d.ID, f.admin))
	require.Equal(t, 100, f.factoryStock(m.ID))
	avail, _, _ := f.storeStock(store.ID, m.ID)
	require.Zero(t, avail)

	card, err := f.svc.Ledger.StockCard(f.ctx, m.ID, nil, 0)
	require.NoError(t, err)
	last := card[len(card)-1]
	require.Equal(t, 30, last.QuantityChange)
	require.Equal(t, 100, last.QuantityAfter)
}

func TestLaterLineShortfallUndoesWholeSale(t *testing.T) {
	f := newFloor(t)
	_, products := f.produce()
	s, m := products[catalog.SizeS], products[catalog.SizeM]
	store := f.store("Rajajinagar")
	f.dispatchAndReceive(store,
		dispatch.LineInput{ProductID: s.ID, Quantity: 5},
		dispatch.LineInput{ProductID: m.ID, Quantity: 5},
	)
	entriesS, entriesM := f.ledgerCount(s.ID), f.ledgerCount(m.ID)

	_, err := f.svc.Sales.Create(f.ctx, sales.CreateInput{
		StoreID: store.ID,
		Items: []sales.LineInput{
			{ProductID: s.ID, Quantity: 2, Price: dec("499"), Total: dec("998")},
			{ProductID: m.ID, Quantity: 6, Price: dec("499"), Total: dec("2994")},
		},
		SubTotal:    dec("3992"),
		GrandTotal:  dec("3992"),
		PaymentMode: sales.PaymentCard,
	}, f.admin)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	for _, id := range []uuid.UUID{s.ID, m.ID} {
		avail, sold, _ := f.storeStock(store.ID, id)
		require.Equal(t, 5, avail)
		require.Zero(t, sold)
	}
	require.Equal(t, entriesS, f.ledgerCount(s.ID))
	require.Equal(t, entriesM, f.ledgerCount(m.ID))

	storeID := store.ID
	list, err := f.svc.Sales.List(f.ctx, sales.Filter{StoreID: &storeID}, f.admin)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestIdempotencyKeyIsScopedToStore(t *testing.T) {
	f := newFloor(t)
	_, products := f.produce()
	m := products[catalog.SizeM]
	storeA, storeB := f.store("Hebbal"), f.store("Yelahanka")
	f.dispatchAndReceive(storeA, dispatch.LineInput{ProductID: m.ID, Quantity: 5})
	f.dispatchAndReceive(storeB, dispatch.LineInput{ProductID: m.ID, Quantity: 5})

	aID, bID := storeA.ID, storeB.ID
	staffA := shared.Actor{ID: uuid.New(), Role: shared.RoleStoreStaff, StoreID: &aID}
	staffB := shared.Actor{ID: uuid.New(), Role: shared.RoleStoreStaff, StoreID: &bID}
	input := func(storeID uuid.UUID, qty int) sales.CreateInput {
		total := dec("499").Mul(decimal.NewFromInt(int64(qty)))
		return sales.CreateInput{
			StoreID:        storeID,
			Items:          []sales.LineInput{{ProductID: m.ID, Quantity: qty, Price: dec("499"), Total: total}},
			SubTotal:       total,
			GrandTotal:     total,
			PaymentMode:    sales.PaymentCash,
			IdempotencyKey: "k1",
		}
	}

	first, err := f.svc.Sales.Create(f.ctx, input(aID, 1), staffA)
	require.NoError(t, err)
	require.Equal(t, aID, first.StoreID)

	atB, err := f.svc.Sales.Create(f.ctx, input(bID, 2), staffB)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, atB.ID)
	require.Equal(t, bID, atB.StoreID)
	avail, sold, _ := f.storeStock(bID, m.ID)
	require.Equal(t, 3, avail)
	require.Equal(t, 2, sold)

	got, err := f.svc.Sales.Get(f.ctx, atB.ID, staffB)
	require.NoError(t, err)
	require.Equal(t, atB.SaleNumber, got.SaleNumber)

	again, err := f.svc.Sales.Create(f.ctx, input(aID, 1), staffA)
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
	avail, sold, _ = f.storeStock(aID, m.ID)
	require.Equal(t, 4, avail)
	require.Equal(t, 1, sold)
}

func TestManualAdjustmentsAndThresholds(t *testing.T) {
	f := newFloor(t)
	_, products := f.produce()
	s, m := products[catalog.SizeS], products[catalog.SizeM]
	store := f.store("Banashankari")
	f.dispatchAndReceive(store, dispatch.LineInput{ProductID: m.ID, Quantity: 10})

	change, err := f.svc.Inventory.AdjustFactory(f.ctx, inventory.ManualFactoryAdjustment{
		ProductID: s.ID, Delta: -3, Notes: "stock take: 3 torn",
	}, f.admin)
	require.NoError(t, err)
	require.Equal(t, 50, change.Before)
	require.Equal(t, 47, change.After)
	require.Equal(t, ledger.MovementAdjustment, change.Entry.Type)
	require.Equal(t, ledger.RefAdjustment, change.Entry.ReferenceType)
	require.Equal(t, 47, f.factoryStock(s.ID))

	entries := f.ledgerCount(s.ID)
	_, err = f.svc.Inventory.AdjustFactory(f.ctx, inventory.ManualFactoryAdjustment{
		ProductID: s.ID, Delta: -48, Notes: "write off",
	}, f.admin)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Equal(t, 47, f.factoryStock(s.ID))
	require.Equal(t, entries, f.ledgerCount(s.ID))

	change, err = f.svc.Inventory.AdjustStore(f.ctx, inventory.ManualStoreAdjustment{
		StoreID: store.ID, ProductID: m.ID, Delta: -2, Notes: "shelf count",
	}, f.admin)
	require.NoError(t, err)
	require.Equal(t, ledger.MovementAdjustment, change.Entry.Type)
	require.NotNil(t, change.Entry.StoreID)
	avail, _, _ := f.storeStock(store.ID, m.ID)
	require.Equal(t, 8, avail)

	_, err = f.svc.Inventory.AdjustStore(f.ctx, inventory.ManualStoreAdjustment{
		StoreID: store.ID, ProductID: m.ID, Delta: -9, Notes: "shelf count",
	}, f.admin)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	storeID := store.ID
	staff := shared.Actor{ID: uuid.New(), Role: shared.RoleStoreStaff, StoreID: &storeID}
	_, err = f.svc.Inventory.AdjustStore(f.ctx, inventory.ManualStoreAdjustment{
		StoreID: store.ID, ProductID: m.ID, Delta: 1, Notes: "found one",
	}, staff)
	require.ErrorIs(t, err, shared.ErrForbidden)

	low, err := f.svc.Inventory.LowStock(f.ctx, &storeID, f.admin)
	require.NoError(t, err)
	require.Empty(t, low)

	// Raising the threshold never touches the counters.
	stock, err := f.svc.Inventory.SetMinStock(f.ctx, store.ID, m.ID, 12, staff)
	require.NoError(t, err)
	require.Equal(t, 12, stock.MinStock)
	require.Equal(t, 8, stock.QuantityAvailable)
	require.Equal(t, 8, f.mustAvailable(store.ID, m.ID))

	stock, err = f.svc.Inventory.SetMinStock(f.ctx, store.ID, s.ID, 3, f.admin)
	require.NoError(t, err)
	require.Zero(t, stock.QuantityAvailable)
	require.Equal(t, 3, stock.MinStock)

	_, err = f.svc.Inventory.SetMinStock(f.ctx, store.ID, s.ID, -1, f.admin)
	require.ErrorIs(t, err, shared.ErrValidation)

	low, err = f.svc.Inventory.LowStock(f.ctx, nil, staff)
	require.NoError(t, err)
	require.Len(t, low, 2)
	ids := []uuid.UUID{low[0].ProductID, low[1].ProductID}
	require.ElementsMatch(t, []uuid.UUID{s.ID, m.ID}, ids)

	// A receipt after the threshold was set lands on the existing pair.
	f.dispatchAndReceive(store, dispatch.LineInput{ProductID: s.ID, Quantity: 4})
	level, err := f.svc.Inventory.GetStoreStock(f.ctx, store.ID, s.ID, f.admin)
	require.NoError(t, err)
	require.Equal(t, 4, level.QuantityAvailable)
	require.Equal(t, 3, level.MinStock)
}

func (f floor) mustAvailable(storeID, productID uuid.UUID) int {
	f.t.Helper()
	avail, _, _ := f.storeStock(storeID, productID)
	return avail
}
