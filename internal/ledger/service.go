package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/shared"
)

// Repository persists entries. There is deliberately no update or delete.
type Repository interface {
	InsertEntry(ctx context.Context, entry Entry) error
	ListEntries(ctx context.Context, filter Filter) ([]Entry, error)
}

// Recorder appends ledger entries. Failures propagate: an entry is part of
// the stock mutation it describes.
type Recorder struct {
	repo Repository
	now  func() time.Time
}

// NewRecorder builds a Recorder.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Record appends one entry after checking its arithmetic.
func (r *Recorder) Record(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ProductID == uuid.Nil {
		return Entry{}, shared.Validation("ledger entry requires a product")
	}
	if !entry.Type.Valid() {
		return Entry{}, shared.Validation("unknown movement type %q", entry.Type)
	}
	if entry.QuantityAfter != entry.QuantityBefore+entry.QuantityChange {
		return Entry{}, fmt.Errorf("%w: %d + %d != %d", ErrUnbalancedEntry, entry.QuantityBefore, entry.QuantityChange, entry.QuantityAfter)
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}
	if err := r.repo.InsertEntry(ctx, entry); err != nil {
		return Entry{}, fmt.Errorf("record ledger entry: %w", err)
	}
	return entry, nil
}

// List returns entries matching filter, newest first.
func (r *Recorder) List(ctx context.Context, filter Filter) ([]Entry, error) {
	page := shared.NewPage(filter.Limit, filter.Offset)
	filter.Limit, filter.Offset = page.Limit, page.Offset
	return r.repo.ListEntries(ctx, filter)
}

// StockCard returns the movement history of one counter, oldest first. A nil
// storeID selects the factory counter.
func (r *Recorder) StockCard(ctx context.Context, productID uuid.UUID, storeID *uuid.UUID, limit int) ([]Entry, error) {
	filter := Filter{ProductID: &productID, StoreID: storeID, FactoryOnly: storeID == nil, Limit: limit}
	entries, err := r.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
