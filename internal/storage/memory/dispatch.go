package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/dispatch"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// DispatchRepo implements dispatch.Repository.
type DispatchRepo struct{ s *Store }

// Dispatches returns the dispatch repository view.
func (s *Store) Dispatches() *DispatchRepo { return &DispatchRepo{s: s} }

var _ dispatch.Repository = (*DispatchRepo)(nil)

// Insert implements dispatch.Repository.
func (r *DispatchRepo) Insert(ctx context.Context, d dispatch.Dispatch) error {
	return r.s.write(ctx, func(st *state) error {
		for _, other := range st.dispatches {
			if other.DispatchNumber == d.DispatchNumber {
				return shared.Conflict("dispatch number %s already taken", d.DispatchNumber)
			}
		}
		d.Items = slices.Clone(d.Items)
		st.dispatches[d.ID] = d
		return nil
	})
}

// Update implements dispatch.Repository.
func (r *DispatchRepo) Update(ctx context.Context, d dispatch.Dispatch) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.dispatches[d.ID]; !ok {
			return shared.ErrNotFound
		}
		d.Items = slices.Clone(d.Items)
		st.dispatches[d.ID] = d
		return nil
	})
}

// Get implements dispatch.Repository.
func (r *DispatchRepo) Get(ctx context.Context, id uuid.UUID) (dispatch.Dispatch, error) {
	var d dispatch.Dispatch
	err := r.s.read(ctx, func(st *state) error {
		var ok bool
		if d, ok = st.dispatches[id]; !ok {
			return shared.ErrNotFound
		}
		d.Items = slices.Clone(d.Items)
		return nil
	})
	return d, err
}

// Lock implements dispatch.Repository.
func (r *DispatchRepo) Lock(ctx context.Context, id uuid.UUID) (dispatch.Dispatch, error) {
	return r.Get(ctx, id)
}

// List implements dispatch.Repository.
func (r *DispatchRepo) List(ctx context.Context, f dispatch.Filter) ([]dispatch.Dispatch, error) {
	var out []dispatch.Dispatch
	err := r.s.read(ctx, func(st *state) error {
		for _, d := range st.dispatches {
			switch {
			case d.IsDeleted,
				f.StoreID != nil && d.StoreID != *f.StoreID,
				f.Status != "" && d.Status != f.Status,
				!f.From.IsZero() && d.DispatchDate.Before(f.From),
				!f.To.IsZero() && !d.DispatchDate.Before(f.To):
				continue
			}
			d.Items = slices.Clone(d.Items)
			out = append(out, d)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b dispatch.Dispatch) int {
		if c := b.DispatchDate.Compare(a.DispatchDate); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return page(out, f.Limit, f.Offset), err
}
