package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/production"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// BatchRepo implements production.Repository.
type BatchRepo struct{ s *Store }

// Batches returns the production batch repository view.
func (s *Store) Batches() *BatchRepo { return &BatchRepo{s: s} }

var _ production.Repository = (*BatchRepo)(nil)

// Insert implements production.Repository.
func (r *BatchRepo) Insert(ctx context.Context, b production.Batch) error {
	return r.s.write(ctx, func(st *state) error {
		for _, other := range st.batches {
			if other.BatchNumber == b.BatchNumber {
				return shared.Conflict("batch number %s already taken", b.BatchNumber)
			}
		}
		b.SizeBreakdown = slices.Clone(b.SizeBreakdown)
		st.batches[b.ID] = b
		return nil
	})
}

// Update implements production.Repository.
func (r *BatchRepo) Update(ctx context.Context, b production.Batch) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.batches[b.ID]; !ok {
			return shared.ErrNotFound
		}
		b.SizeBreakdown = slices.Clone(b.SizeBreakdown)
		st.batches[b.ID] = b
		return nil
	})
}

// Get implements production.Repository.
func (r *BatchRepo) Get(ctx context.Context, id uuid.UUID) (production.Batch, error) {
	var b production.Batch
	err := r.s.read(ctx, func(st *state) error {
		var ok bool
		if b, ok = st.batches[id]; !ok {
			return shared.ErrNotFound
		}
		b.SizeBreakdown = slices.Clone(b.SizeBreakdown)
		return nil
	})
	return b, err
}

// Lock implements production.Repository.
func (r *BatchRepo) Lock(ctx context.Context, id uuid.UUID) (production.Batch, error) {
	return r.Get(ctx, id)
}

// List implements production.Repository.
func (r *BatchRepo) List(ctx context.Context, f production.Filter) ([]production.Batch, error) {
	var out []production.Batch
	err := r.s.read(ctx, func(st *state) error {
		for _, b := range st.batches {
			switch {
			case b.IsDeleted,
				f.Stage != "" && b.Stage != f.Stage,
				f.Status != "" && b.Status != f.Status,
				f.FabricID != nil && b.FabricID != *f.FabricID:
				continue
			}
			b.SizeBreakdown = slices.Clone(b.SizeBreakdown)
			out = append(out, b)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b production.Batch) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return page(out, f.Limit, f.Offset), err
}
