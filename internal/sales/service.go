package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ttacon/libphonenumber"

	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/inventory"
	"github.com/fabricflow/fabricflow/internal/ledger"
	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/sequence"
	"github.com/fabricflow/fabricflow/internal/shared"
)

const idempotencyModule = "sales"

// idempotencyScope keeps keys of different stores apart.
func idempotencyScope(storeID uuid.UUID) string {
	return idempotencyModule + ":" + storeID.String()
}

// Repository persists sales.
type Repository interface {
	Insert(ctx context.Context, sale Sale) error
	Get(ctx context.Context, id uuid.UUID) (Sale, error)
	List(ctx context.Context, filter Filter) ([]Sale, error)
}

// CatalogReader resolves stores and products.
type CatalogReader interface {
	GetOperatingStore(ctx context.Context, id uuid.UUID) (catalog.Store, error)
	GetProduct(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

// StoreStocker debits store stock.
type StoreStocker interface {
	AdjustStoreStock(ctx context.Context, adj inventory.StoreAdjustment) (inventory.Change, error)
}

// Sequencer mints sale numbers.
type Sequencer interface {
	Next(ctx context.Context, series sequence.Series) (string, error)
	Guard(ctx context.Context, series sequence.Series, fn func(ctx context.Context) error) error
}

// Idempotency remembers which sale a client key produced.
type Idempotency interface {
	Lookup(ctx context.Context, module, key string) (string, bool, error)
	Claim(ctx context.Context, module, key, resourceID string) error
}

// Notifier is told about committed sales. Failures never reach the caller.
type Notifier interface {
	SaleCompleted(ctx context.Context, sale Sale) error
}

// Service records point-of-sale transactions.
type Service struct {
	repo        Repository
	tx          db.Transactor
	catalog     CatalogReader
	stock       StoreStocker
	seq         Sequencer
	idempotency Idempotency
	notifier    Notifier
	audit       shared.Auditor
	logger      *slog.Logger
	region      string
	now         func() time.Time
}

// Option customises Service.
type Option func(*Service)

// WithNotifier sets the sale notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithIdempotency enables Idempotency-Key replay.
func WithIdempotency(store Idempotency) Option {
	return func(s *Service) { s.idempotency = store }
}

// WithPhoneRegion sets the default region for customer phone numbers.
func WithPhoneRegion(region string) Option {
	return func(s *Service) { s.region = region }
}

// NewService builds Service.
func NewService(repo Repository, tx db.Transactor, catalog CatalogReader, stock StoreStocker, seq Sequencer, audit shared.Auditor, logger *slog.Logger, opts ...Option) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:    repo,
		tx:      tx,
		catalog: catalog,
		stock:   stock,
		seq:     seq,
		audit:   audit,
		logger:  logger,
		region:  "IN",
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create debits store stock for every line and persists the sale. A replayed
// idempotency key returns the sale it first produced.
func (s *Service) Create(ctx context.Context, input CreateInput, actor shared.Actor) (Sale, error) {
	if !actor.CanAccessStore(input.StoreID) {
		return Sale{}, shared.Forbidden("cannot sell at store %s", input.StoreID)
	}
	if !input.PaymentMode.Valid() {
		return Sale{}, shared.Validation("unknown payment mode %q", input.PaymentMode)
	}
	if len(input.Items) == 0 {
		return Sale{}, shared.Validation("sale needs at least one item")
	}
	lines, sub, err := checkTotals(input)
	if err != nil {
		return Sale{}, err
	}
	phone, err := s.normalisePhone(input.CustomerPhone)
	if err != nil {
		return Sale{}, err
	}

	if existing, ok, err := s.replay(ctx, input, actor); err != nil || ok {
		return existing, err
	}

	var created Sale
	err = s.seq.Guard(ctx, sequence.Sale, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			store, err := s.catalog.GetOperatingStore(ctx, input.StoreID)
			if err != nil {
				return err
			}
			number, err := s.seq.Next(ctx, sequence.Sale)
			if err != nil {
				return err
			}
			now := s.now()
			sale := Sale{
				ID:            uuid.New(),
				SaleNumber:    number,
				StoreID:       store.ID,
				CashierID:     actor.ID,
				SubTotal:      sub,
				Discount:      input.Discount,
				Tax:           input.Tax,
				GrandTotal:    sub.Sub(input.Discount).Add(input.Tax),
				PaymentMode:   input.PaymentMode,
				CustomerName:  strings.TrimSpace(input.CustomerName),
				CustomerPhone: phone,
				Status:        StatusCompleted,
				SaleDate:      input.SaleDate,
				CreatedAt:     now,
			}
			if sale.SaleDate.IsZero() {
				sale.SaleDate = now
			}
			ref := &ledger.Reference{Type: ledger.RefSale, ID: sale.ID}
			for i, line := range lines {
				p, err := s.catalog.GetProduct(ctx, line.ProductID)
				if err != nil {
					return err
				}
				if line.Barcode != "" && line.Barcode != p.Barcode {
					return shared.Validation("line %d: barcode %s does not belong to %s", i+1, line.Barcode, p.SKU)
				}
				lines[i].Barcode = p.Barcode
				lines[i].SKU = p.SKU
				lines[i].Name = p.Name
				if _, err := s.stock.AdjustStoreStock(ctx, inventory.StoreAdjustment{
					StoreID:   store.ID,
					ProductID: p.ID,
					Delta:     -line.Quantity,
					SoldDelta: line.Quantity,
					Type:      ledger.MovementSale,
					Reference: ref,
					Actor:     actor,
					Notes:     "sale " + number,
				}); err != nil {
					return err
				}
			}
			sale.Items = lines
			if err := s.repo.Insert(ctx, sale); err != nil {
				return fmt.Errorf("insert sale %s: %w", number, err)
			}
			if input.IdempotencyKey != "" && s.idempotency != nil {
				if err := s.idempotency.Claim(ctx, idempotencyScope(store.ID), input.IdempotencyKey, sale.ID.String()); err != nil {
					return err
				}
			}
			created = sale
			return nil
		})
	})
	if errors.Is(err, shared.ErrIdempotencyConflict) {
		if existing, ok, lookupErr := s.replay(ctx, input, actor); lookupErr == nil && ok {
			return existing, nil
		}
		return Sale{}, shared.Conflict("idempotency key %s is already in use", input.IdempotencyKey)
	}
	if err != nil {
		return Sale{}, fmt.Errorf("create sale: %w", err)
	}

	s.notify(ctx, created)
	s.record(ctx, actor, created)
	return created, nil
}

// Get returns a sale visible to actor.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor shared.Actor) (Sale, error) {
	sale, err := s.repo.Get(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return Sale{}, shared.NotFound("sale %s not found", id)
	}
	if err != nil {
		return Sale{}, err
	}
	if !actor.CanAccessStore(sale.StoreID) {
		return Sale{}, shared.NotFound("sale %s not found", id)
	}
	return sale, nil
}

// List returns sales newest first. Store staff only see their own store.
func (s *Service) List(ctx context.Context, filter Filter, actor shared.Actor) ([]Sale, error) {
	if !actor.IsAdmin() {
		if actor.StoreID == nil {
			return nil, shared.Forbidden("store staff without a store")
		}
		filter.StoreID = actor.StoreID
	}
	page := shared.NewPage(filter.Limit, filter.Offset)
	filter.Limit, filter.Offset = page.Limit, page.Offset
	return s.repo.List(ctx, filter)
}

// replay returns the sale an earlier request with the same key produced. The
// key only matches a sale of the same store that actor may see.
func (s *Service) replay(ctx context.Context, input CreateInput, actor shared.Actor) (Sale, bool, error) {
	key := input.IdempotencyKey
	if key == "" || s.idempotency == nil {
		return Sale{}, false, nil
	}
	resourceID, ok, err := s.idempotency.Lookup(ctx, idempotencyScope(input.StoreID), key)
	if err != nil || !ok {
		return Sale{}, false, err
	}
	id, err := uuid.Parse(resourceID)
	if err != nil {
		return Sale{}, false, fmt.Errorf("idempotency key %s: %w", key, err)
	}
	sale, err := s.repo.Get(ctx, id)
	if err != nil {
		return Sale{}, false, err
	}
	if sale.StoreID != input.StoreID || !actor.CanAccessStore(sale.StoreID) {
		return Sale{}, false, shared.Conflict("idempotency key %s belongs to another sale", key)
	}
	return sale, true, nil
}

func (s *Service) normalisePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	num, err := libphonenumber.Parse(raw, s.region)
	if err != nil {
		return "", shared.Validation("customer phone %q: %v", raw, err)
	}
	if !libphonenumber.IsValidNumber(num) {
		return "", shared.Validation("customer phone %q is not valid", raw)
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

func (s *Service) notify(ctx context.Context, sale Sale) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SaleCompleted(context.WithoutCancel(ctx), sale); err != nil {
		s.logger.Warn("sale notification failed", slog.String("sale_number", sale.SaleNumber), slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, actor shared.Actor, sale Sale) {
	meta := map[string]any{
		"sale_number": sale.SaleNumber,
		"store_id":    sale.StoreID,
		"grand_total": sale.GrandTotal.String(),
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actor.ID, Action: "sale.create", Entity: "sale", EntityID: sale.ID.String(), Meta: meta}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", "sale.create"), slog.Any("error", err))
	}
}
