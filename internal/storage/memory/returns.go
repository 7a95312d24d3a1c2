package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/returns"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// ReturnRepo implements returns.Repository.
type ReturnRepo struct{ s *Store }

// Returns returns the return repository view.
func (s *Store) Returns() *ReturnRepo { return &ReturnRepo{s: s} }

var _ returns.Repository = (*ReturnRepo)(nil)

// Insert implements returns.Repository.
func (r *ReturnRepo) Insert(ctx context.Context, ret returns.Return) error {
	return r.s.write(ctx, func(st *state) error {
		for _, other := range st.returns {
			if other.ReturnNumber == ret.ReturnNumber {
				return shared.Conflict("return number %s already taken", ret.ReturnNumber)
			}
		}
		st.returns[ret.ID] = ret
		return nil
	})
}

// Get implements returns.Repository.
func (r *ReturnRepo) Get(ctx context.Context, id uuid.UUID) (returns.Return, error) {
	var ret returns.Return
	err := r.s.read(ctx, func(st *state) error {
		var ok bool
		if ret, ok = st.returns[id]; !ok {
			return shared.ErrNotFound
		}
		return nil
	})
	return ret, err
}

// List implements returns.Repository.
func (r *ReturnRepo) List(ctx context.Context, f returns.Filter) ([]returns.Return, error) {
	var out []returns.Return
	err := r.s.read(ctx, func(st *state) error {
		for _, ret := range st.returns {
			switch {
			case f.StoreID != nil && ret.StoreID != *f.StoreID,
				f.Type != "" && ret.Type != f.Type,
				f.SaleID != nil && (ret.ReferenceSaleID == nil || *ret.ReferenceSaleID != *f.SaleID):
				continue
			}
			out = append(out, ret)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b returns.Return) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return page(out, f.Limit, f.Offset), err
}

// ReturnedForSale implements returns.Repository.
func (r *ReturnRepo) ReturnedForSale(ctx context.Context, saleID, productID uuid.UUID) (int, error) {
	var total int
	err := r.s.read(ctx, func(st *state) error {
		for _, ret := range st.returns {
			if ret.Type == returns.TypeCustomer && ret.Status == returns.StatusApproved &&
				ret.ProductID == productID && ret.ReferenceSaleID != nil && *ret.ReferenceSaleID == saleID {
				total += ret.Quantity
			}
		}
		return nil
	})
	return total, err
}
