package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/fabric"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// FabricRepo implements fabric.Repository.
type FabricRepo struct{ s *Store }

// Fabrics returns the fabric repository view.
func (s *Store) Fabrics() *FabricRepo { return &FabricRepo{s: s} }

var _ fabric.Repository = (*FabricRepo)(nil)

func (st *state) saveFabric(f fabric.Fabric) error {
	for _, other := range st.fabrics {
		if other.ID != f.ID && other.SupplierID == f.SupplierID && other.InvoiceNumber == f.InvoiceNumber {
			return shared.Conflict("fabric invoice %s already recorded", f.InvoiceNumber)
		}
	}
	st.fabrics[f.ID] = f
	return nil
}

// Insert implements fabric.Repository.
func (r *FabricRepo) Insert(ctx context.Context, f fabric.Fabric) error {
	return r.s.write(ctx, func(st *state) error { return st.saveFabric(f) })
}

// Update implements fabric.Repository.
func (r *FabricRepo) Update(ctx context.Context, f fabric.Fabric) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.fabrics[f.ID]; !ok {
			return shared.ErrNotFound
		}
		return st.saveFabric(f)
	})
}

// Get implements fabric.Repository.
func (r *FabricRepo) Get(ctx context.Context, id uuid.UUID) (fabric.Fabric, error) {
	var f fabric.Fabric
	err := r.s.read(ctx, func(st *state) error {
		var ok bool
		if f, ok = st.fabrics[id]; !ok {
			return shared.ErrNotFound
		}
		return nil
	})
	return f, err
}

// Lock implements fabric.Repository.
func (r *FabricRepo) Lock(ctx context.Context, id uuid.UUID) (fabric.Fabric, error) {
	return r.Get(ctx, id)
}

// List implements fabric.Repository.
func (r *FabricRepo) List(ctx context.Context, f fabric.Filter) ([]fabric.Fabric, error) {
	var out []fabric.Fabric
	err := r.s.read(ctx, func(st *state) error {
		for _, fab := range st.fabrics {
			switch {
			case fab.IsDeleted,
				f.Status != "" && fab.Status != f.Status,
				f.SupplierID != nil && fab.SupplierID != *f.SupplierID:
				continue
			}
			out = append(out, fab)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b fabric.Fabric) int {
		if c := b.PurchaseDate.Compare(a.PurchaseDate); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return page(out, f.Limit, f.Offset), err
}
