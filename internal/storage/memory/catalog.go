package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// CatalogRepo implements catalog.Repository.
type CatalogRepo struct{ s *Store }

// Catalog returns the catalog repository view.
func (s *Store) Catalog() *CatalogRepo { return &CatalogRepo{s: s} }

var _ catalog.Repository = (*CatalogRepo)(nil)

func (st *state) productConflict(p catalog.Product) error {
	for _, other := range st.products {
		if other.ID == p.ID {
			continue
		}
		if other.SKU == p.SKU {
			return shared.Conflict("product already exists (sku %s)", p.SKU)
		}
		if other.Barcode == p.Barcode {
			return shared.Conflict("product already exists (barcode %s)", p.Barcode)
		}
	}
	return nil
}

// InsertProduct implements catalog.Repository.
func (r *CatalogRepo) InsertProduct(ctx context.Context, p catalog.Product) error {
	return r.s.write(ctx, func(st *state) error {
		if err := st.productConflict(p); err != nil {
			return err
		}
		st.products[p.ID] = p
		return nil
	})
}

// UpdateProduct implements catalog.Repository. FactoryStock is left alone.
func (r *CatalogRepo) UpdateProduct(ctx context.Context, p catalog.Product) error {
	return r.s.write(ctx, func(st *state) error {
		current, ok := st.products[p.ID]
		if !ok {
			return shared.ErrNotFound
		}
		p.FactoryStock = current.FactoryStock
		p.SKU, p.Barcode, p.Size, p.BatchID = current.SKU, current.Barcode, current.Size, current.BatchID
		p.CreatedBy, p.CreatedAt = current.CreatedBy, current.CreatedAt
		st.products[p.ID] = p
		return nil
	})
}

// GetProduct implements catalog.Repository.
func (r *CatalogRepo) GetProduct(ctx context.Context, id uuid.UUID) (catalog.Product, error) {
	var p catalog.Product
	err := r.s.read(ctx, func(st *state) error {
		var ok bool
		if p, ok = st.products[id]; !ok {
			return shared.ErrNotFound
		}
		return nil
	})
	return p, err
}

// GetProductByBarcode implements catalog.Repository.
func (r *CatalogRepo) GetProductByBarcode(ctx context.Context, barcode string) (catalog.Product, error) {
	var p catalog.Product
	err := r.s.read(ctx, func(st *state) error {
		for _, candidate := range st.products {
			if candidate.Barcode == barcode {
				p = candidate
				return nil
			}
		}
		return shared.ErrNotFound
	})
	return p, err
}

// BarcodeExists implements catalog.Repository.
func (r *CatalogRepo) BarcodeExists(ctx context.Context, barcode string) (bool, error) {
	_, err := r.GetProductByBarcode(ctx, barcode)
	if err == shared.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

// ListProducts implements catalog.Repository.
func (r *CatalogRepo) ListProducts(ctx context.Context, f catalog.ProductFilter) ([]catalog.Product, error) {
	var out []catalog.Product
	err := r.s.read(ctx, func(st *state) error {
		search := strings.ToLower(f.Search)
		for _, p := range st.products {
			switch {
			case p.IsDeleted,
				!f.IncludeInactive && !p.IsActive,
				f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID),
				f.BatchID != nil && (p.BatchID == nil || *p.BatchID != *f.BatchID):
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
				!strings.Contains(strings.ToLower(p.SKU), search) && p.Barcode != f.Search {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b catalog.Product) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.SKU, a.SKU)
	})
	return page(out, f.Limit, f.Offset), err
}

func (st *state) storeNameTaken(s catalog.Store) bool {
	for _, other := range st.stores {
		if other.ID != s.ID && !other.IsDeleted && sameName(other.Name, s.Name) {
			return true
		}
	}
	return false
}

// InsertStore implements catalog.Repository.
func (r *CatalogRepo) InsertStore(ctx context.Context, s catalog.Store) error {
	return r.s.write(ctx, func(st *state) error {
		if st.storeNameTaken(s) {
			return shared.Conflict("store already exists (name %s)", s.Name)
		}
		st.stores[s.ID] = s
		return nil
	})
}

// UpdateStore implements catalog.Repository.
func (r *CatalogRepo) UpdateStore(ctx context.Context, s catalog.Store) error {
	return r.s.write(ctx, func(st *state) error {
		current, ok := st.stores[s.ID]
		if !ok {
			return shared.ErrNotFound
		}
		if !s.IsDeleted && st.storeNameTaken(s) {
			return shared.Conflict("store already exists (name %s)", s.Name)
		}
		s.CreatedAt = current.CreatedAt
		st.stores[s.ID] = s
		return nil
	})
}

// GetStore implements catalog.Repository.
func (r *CatalogRepo) GetStore(ctx context.Context, id uuid.UUID) (catalog.Store, error) {
	var s catalog.Store
	err := r.s.read(ctx, func(st *state) error {
		var ok bool
		if s, ok = st.stores[id]; !ok {
			return shared.ErrNotFound
		}
		return nil
	})
	return s, err
}

// ListStores implements catalog.Repository.
func (r *CatalogRepo) ListStores(ctx context.Context, includeInactive bool) ([]catalog.Store, error) {
	var out []catalog.Store
	err := r.s.read(ctx, func(st *state) error {
		for _, s := range st.stores {
			if !s.IsDeleted && (s.IsActive || includeInactive) {
				out = append(out, s)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b catalog.Store) int { return cmp.Compare(a.Name, b.Name) })
	return out, err
}

func (st *state) supplierNameTaken(s catalog.Supplier) bool {
	for _, other := range st.suppliers {
		if other.ID != s.ID && !other.IsDeleted && sameName(other.Name, s.Name) {
			return true
		}
	}
	return false
}

// InsertSupplier implements catalog.Repository.
func (r *CatalogRepo) InsertSupplier(ctx context.Context, s catalog.Supplier) error {
	return r.s.write(ctx, func(st *state) error {
		if st.supplierNameTaken(s) {
			return shared.Conflict("supplier already exists (name %s)", s.Name)
		}
		st.suppliers[s.ID] = s
		return nil
	})
}

// UpdateSupplier implements catalog.Repository.
func (r *CatalogRepo) UpdateSupplier(ctx context.Context, s catalog.Supplier) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.suppliers[s.ID]; !ok {
			return shared.ErrNotFound
		}
		if !s.IsDeleted && st.supplierNameTaken(s) {
			return shared.Conflict("supplier already exists (name %s)", s.Name)
		}
		st.suppliers[s.ID] = s
		return nil
	})
}

// GetSupplier implements catalog.Repository.
func (r *CatalogRepo) GetSupplier(ctx context.Context, id uuid.UUID) (catalog.Supplier, error) {
	var s catalog.Supplier
	err := r.s.read(ctx, func(st *state) error {
		var ok bool
		if s, ok = st.suppliers[id]; !ok {
			return shared.ErrNotFound
		}
		return nil
	})
	return s, err
}

// ListSuppliers implements catalog.Repository.
func (r *CatalogRepo) ListSuppliers(ctx context.Context) ([]catalog.Supplier, error) {
	var out []catalog.Supplier
	err := r.s.read(ctx, func(st *state) error {
		for _, s := range st.suppliers {
			if !s.IsDeleted {
				out = append(out, s)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b catalog.Supplier) int { return cmp.Compare(a.Name, b.Name) })
	return out, err
}

// InsertCategory implements catalog.Repository.
func (r *CatalogRepo) InsertCategory(ctx context.Context, c catalog.Category) error {
	return r.s.write(ctx, func(st *state) error {
		for _, other := range st.categories {
			if !other.IsDeleted && sameName(other.Name, c.Name) {
				return shared.Conflict("category already exists (name %s)", c.Name)
			}
		}
		st.categories[c.ID] = c
		return nil
	})
}

// GetCategory implements catalog.Repository.
func (r *CatalogRepo) GetCategory(ctx context.Context, id uuid.UUID) (catalog.Category, error) {
	var c catalog.Category
	err := r.s.read(ctx, func(st *state) error {
		var ok bool
		if c, ok = st.categories[id]; !ok {
			return shared.ErrNotFound
		}
		return nil
	})
	return c, err
}

// ListCategories implements catalog.Repository.
func (r *CatalogRepo) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var out []catalog.Category
	err := r.s.read(ctx, func(st *state) error {
		for _, c := range st.categories {
			if !c.IsDeleted {
				out = append(out, c)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b catalog.Category) int { return cmp.Compare(a.Name, b.Name) })
	return out, err
}
