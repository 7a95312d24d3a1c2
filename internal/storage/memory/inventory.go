package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/inventory"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// InventoryRepo implements inventory.Repository.
type InventoryRepo struct{ s *Store }

// Inventory returns the stock repository view.
func (s *Store) Inventory() *InventoryRepo { return &InventoryRepo{s: s} }

var _ inventory.Repository = (*InventoryRepo)(nil)

// LockProduct implements inventory.Repository. Atomic units are already
// serialised, so locking is a plain read.
func (r *InventoryRepo) LockProduct(ctx context.Context, id uuid.UUID) (catalog.Product, error) {
	return r.s.Catalog().GetProduct(ctx, id)
}

// SetFactoryStock implements inventory.Repository.
func (r *InventoryRepo) SetFactoryStock(ctx context.Context, productID uuid.UUID, stock int, at time.Time) error {
	return r.s.write(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return shared.ErrNotFound
		}
		p.FactoryStock = stock
		p.UpdatedAt = at
		st.products[productID] = p
		return nil
	})
}

// LockStoreStock implements inventory.Repository.
func (r *InventoryRepo) LockStoreStock(ctx context.Context, storeID, productID uuid.UUID) (inventory.StoreStock, error) {
	var stock inventory.StoreStock
	err := r.s.read(ctx, func(st *state) error {
		var ok bool
		if stock, ok = st.storeStock[pairKey{store: storeID, product: productID}]; !ok {
			return shared.ErrNotFound
		}
		return nil
	})
	return stock, err
}

// SaveStoreStock implements inventory.Repository.
func (r *InventoryRepo) SaveStoreStock(ctx context.Context, stock inventory.StoreStock) error {
	return r.s.write(ctx, func(st *state) error {
		st.storeStock[pairKey{store: stock.StoreID, product: stock.ProductID}] = stock
		return nil
	})
}

// SetMinStock implements inventory.Repository.
func (r *InventoryRepo) SetMinStock(ctx context.Context, storeID, productID uuid.UUID, minStock int, at time.Time) (inventory.StoreStock, error) {
	var stock inventory.StoreStock
	err := r.s.write(ctx, func(st *state) error {
		key := pairKey{store: storeID, product: productID}
		var ok bool
		if stock, ok = st.storeStock[key]; !ok {
			stock = inventory.StoreStock{StoreID: storeID, ProductID: productID}
		}
		stock.MinStock = minStock
		stock.LastUpdated = at
		st.storeStock[key] = stock
		return nil
	})
	return stock, err
}

func (st *state) stockLevel(stock inventory.StoreStock) (inventory.StockLevel, bool) {
	p, ok := st.products[stock.ProductID]
	if !ok || p.IsDeleted {
		return inventory.StockLevel{}, false
	}
	s, ok := st.stores[stock.StoreID]
	if !ok || s.IsDeleted {
		return inventory.StockLevel{}, false
	}
	return inventory.StockLevel{
		StoreStock: stock,
		StoreName:  s.Name,
		SKU:        p.SKU,
		Barcode:    p.Barcode,
		Name:       p.Name,
		Size:       p.Size,
		SalePrice:  p.SalePrice,
	}, true
}

// GetStoreStock implements inventory.Repository.
func (r *InventoryRepo) GetStoreStock(ctx context.Context, storeID, productID uuid.UUID) (inventory.StockLevel, error) {
	var level inventory.StockLevel
	err := r.s.read(ctx, func(st *state) error {
		stock, ok := st.storeStock[pairKey{store: storeID, product: productID}]
		if !ok {
			return shared.ErrNotFound
		}
		if level, ok = st.stockLevel(stock); !ok {
			return shared.ErrNotFound
		}
		return nil
	})
	return level, err
}

// ListStoreStock implements inventory.Repository.
func (r *InventoryRepo) ListStoreStock(ctx context.Context, f inventory.StockFilter) ([]inventory.StockLevel, error) {
	var out []inventory.StockLevel
	err := r.s.read(ctx, func(st *state) error {
		for key, stock := range st.storeStock {
			if f.StoreID != nil && key.store != *f.StoreID {
				continue
			}
			if f.ProductID != nil && key.product != *f.ProductID {
				continue
			}
			if f.LowOnly && !stock.IsLow() {
				continue
			}
			if level, ok := st.stockLevel(stock); ok {
				out = append(out, level)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b inventory.StockLevel) int {
		return cmp.Or(cmp.Compare(a.StoreName, b.StoreName), cmp.Compare(a.SKU, b.SKU))
	})
	return page(out, f.Limit, f.Offset), err
}
