// Package memory is a transactional in-memory implementation of every
// repository. An atomic unit works on a clone of the state that replaces
// the live state on commit, so a failed unit leaves nothing behind.
package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/auth"
	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/dispatch"
	"github.com/fabricflow/fabricflow/internal/fabric"
	"github.com/fabricflow/fabricflow/internal/inventory"
	"github.com/fabricflow/fabricflow/internal/ledger"
	"github.com/fabricflow/fabricflow/internal/production"
	"github.com/fabricflow/fabricflow/internal/returns"
	"github.com/fabricflow/fabricflow/internal/sales"
	"github.com/fabricflow/fabricflow/internal/shared"
)

type pairKey struct {
	store   uuid.UUID
	product uuid.UUID
}

type idempotencyRecord struct {
	resourceID string
	createdAt  time.Time
}

type state struct {
	products    map[uuid.UUID]catalog.Product
	stores      map[uuid.UUID]catalog.Store
	suppliers   map[uuid.UUID]catalog.Supplier
	categories  map[uuid.UUID]catalog.Category
	fabrics     map[uuid.UUID]fabric.Fabric
	batches     map[uuid.UUID]production.Batch
	dispatches  map[uuid.UUID]dispatch.Dispatch
	sales       map[uuid.UUID]sales.Sale
	returns     map[uuid.UUID]returns.Return
	storeStock  map[pairKey]inventory.StoreStock
	users       map[uuid.UUID]auth.User
	idempotency map[string]idempotencyRecord
	ledger      []ledger.Entry
	audit       []shared.AuditLog
}

func newState() *state {
	return &state{
		products:    map[uuid.UUID]catalog.Product{},
		stores:      map[uuid.UUID]catalog.Store{},
		suppliers:   map[uuid.UUID]catalog.Supplier{},
		categories:  map[uuid.UUID]catalog.Category{},
		fabrics:     map[uuid.UUID]fabric.Fabric{},
		batches:     map[uuid.UUID]production.Batch{},
		dispatches:  map[uuid.UUID]dispatch.Dispatch{},
		sales:       map[uuid.UUID]sales.Sale{},
		returns:     map[uuid.UUID]returns.Return{},
		storeStock:  map[pairKey]inventory.StoreStock{},
		users:       map[uuid.UUID]auth.User{},
		idempotency: map[string]idempotencyRecord{},
	}
}

// clone copies every table. Rows are values and their slices are copied on
// write, so sharing row values between clones is safe.
func (s *state) clone() *state {
	return &state{
		products:    maps.Clone(s.products),
		stores:      maps.Clone(s.stores),
		suppliers:   maps.Clone(s.suppliers),
		categories:  maps.Clone(s.categories),
		fabrics:     maps.Clone(s.fabrics),
		batches:     maps.Clone(s.batches),
		dispatches:  maps.Clone(s.dispatches),
		sales:       maps.Clone(s.sales),
		returns:     maps.Clone(s.returns),
		storeStock:  maps.Clone(s.storeStock),
		users:       maps.Clone(s.users),
		idempotency: maps.Clone(s.idempotency),
		ledger:      slices.Clip(s.ledger),
		audit:       slices.Clip(s.audit),
	}
}

// Store holds the live state. Atomic units are serialised by one mutex.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{state: newState(), now: func() time.Time { return time.Now().UTC() }}
}

type txKey struct{}

type txn struct {
	store *Store
	state *state
}

func (s *Store) txState(ctx context.Context) *state {
	if t, ok := ctx.Value(txKey{}).(*txn); ok && t.store == s {
		return t.state
	}
	return nil
}

// WithTx implements db.Transactor. A nested call joins the open unit.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txState(ctx) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	working := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, &txn{store: s, state: working})); err != nil {
		return err
	}
	s.state = working
	return nil
}

func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if st := s.txState(ctx); st != nil {
		return fn(st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// write applies fn atomically: outside a unit it runs on a private clone.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		return fn(s.txState(ctx))
	})
}

// Record implements shared.Auditor.
func (s *Store) Record(ctx context.Context, log shared.AuditLog) error {
	if log.At.IsZero() {
		log.At = s.now()
	}
	return s.write(ctx, func(st *state) error {
		st.audit = append(st.audit, log)
		return nil
	})
}

// AuditTrail returns the recorded audit entries, oldest first.
func (s *Store) AuditTrail() []shared.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.audit)
}

func idempotencyKey(module, key string) string { return module + "\x00" + key }

// Lookup implements the idempotency store.
func (s *Store) Lookup(ctx context.Context, module, key string) (string, bool, error) {
	var rec idempotencyRecord
	var ok bool
	err := s.read(ctx, func(st *state) error {
		rec, ok = st.idempotency[idempotencyKey(module, key)]
		return nil
	})
	return rec.resourceID, ok, err
}

// Claim implements the idempotency store.
func (s *Store) Claim(ctx context.Context, module, key, resourceID string) error {
	return s.write(ctx, func(st *state) error {
		k := idempotencyKey(module, key)
		if _, taken := st.idempotency[k]; taken {
			return shared.ErrIdempotencyConflict
		}
		st.idempotency[k] = idempotencyRecord{resourceID: resourceID, createdAt: s.now()}
		return nil
	})
}

// Cleanup drops idempotency keys older than olderThan.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Duration) error {
	cutoff := s.now().Add(-olderThan)
	return s.write(ctx, func(st *state) error {
		maps.DeleteFunc(st.idempotency, func(_ string, rec idempotencyRecord) bool {
			return rec.createdAt.Before(cutoff)
		})
		return nil
	})
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		return items
	}
	return shared.Slice(items, shared.Page{Limit: limit, Offset: offset})
}
