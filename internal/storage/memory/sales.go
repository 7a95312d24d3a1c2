package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/sales"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// SaleRepo implements sales.Repository.
type SaleRepo struct{ s *Store }

// Sales returns the sale repository view.
func (s *Store) Sales() *SaleRepo { return &SaleRepo{s: s} }

var _ sales.Repository = (*SaleRepo)(nil)

// Insert implements sales.Repository.
func (r *SaleRepo) Insert(ctx context.Context, sale sales.Sale) error {
	return r.s.write(ctx, func(st *state) error {
		for _, other := range st.sales {
			if other.SaleNumber == sale.SaleNumber {
				return shared.Conflict("sale number %s already taken", sale.SaleNumber)
			}
		}
		sale.Items = slices.Clone(sale.Items)
		st.sales[sale.ID] = sale
		return nil
	})
}

// Get implements sales.Repository.
func (r *SaleRepo) Get(ctx context.Context, id uuid.UUID) (sales.Sale, error) {
	var sale sales.Sale
	err := r.s.read(ctx, func(st *state) error {
		var ok bool
		if sale, ok = st.sales[id]; !ok {
			return shared.ErrNotFound
		}
		sale.Items = slices.Clone(sale.Items)
		return nil
	})
	return sale, err
}

// List implements sales.Repository.
func (r *SaleRepo) List(ctx context.Context, f sales.Filter) ([]sales.Sale, error) {
	var out []sales.Sale
	err := r.s.read(ctx, func(st *state) error {
		for _, sale := range st.sales {
			switch {
			case f.StoreID != nil && sale.StoreID != *f.StoreID,
				f.CashierID != nil && sale.CashierID != *f.CashierID,
				!f.From.IsZero() && sale.SaleDate.Before(f.From),
				!f.To.IsZero() && !sale.SaleDate.Before(f.To):
				continue
			}
			sale.Items = slices.Clone(sale.Items)
			out = append(out, sale)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b sales.Sale) int {
		return cmp.Or(b.SaleDate.Compare(a.SaleDate), cmp.Compare(b.SaleNumber, a.SaleNumber))
	})
	return page(out, f.Limit, f.Offset), err
}
