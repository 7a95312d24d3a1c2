package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/fabricflow/fabricflow/internal/ledger"
)

// LedgerRepo implements ledger.Repository. Entries are append-only.
type LedgerRepo struct{ s *Store }

// Ledger returns the movement ledger view.
func (s *Store) Ledger() *LedgerRepo { return &LedgerRepo{s: s} }

var _ ledger.Repository = (*LedgerRepo)(nil)

// InsertEntry implements ledger.Repository.
func (r *LedgerRepo) InsertEntry(ctx context.Context, entry ledger.Entry) error {
	return r.s.write(ctx, func(st *state) error {
		st.ledger = append(st.ledger, entry)
		return nil
	})
}

// ListEntries implements ledger.Repository, newest first.
func (r *LedgerRepo) ListEntries(ctx context.Context, f ledger.Filter) ([]ledger.Entry, error) {
	var out []ledger.Entry
	err := r.s.read(ctx, func(st *state) error {
		for _, e := range st.ledger {
			switch {
			case f.ProductID != nil && e.ProductID != *f.ProductID,
				f.StoreID != nil && (e.StoreID == nil || *e.StoreID != *f.StoreID),
				f.FactoryOnly && e.StoreID != nil,
				f.Type != "" && e.Type != f.Type,
				f.ReferenceID != nil && (e.ReferenceID == nil || *e.ReferenceID != *f.ReferenceID),
				!f.From.IsZero() && e.CreatedAt.Before(f.From),
				!f.To.IsZero() && !e.CreatedAt.Before(f.To):
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	// Insertion order breaks timestamp ties so the newest append sorts first.
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b ledger.Entry) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	return page(out, f.Limit, f.Offset), err
}
