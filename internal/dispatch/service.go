package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/inventory"
	"github.com/fabricflow/fabricflow/internal/ledger"
	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/sequence"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// Repository persists dispatches.
type Repository interface {
	Insert(ctx context.Context, d Dispatch) error
	Update(ctx context.Context, d Dispatch) error
	Get(ctx context.Context, id uuid.UUID) (Dispatch, error)
	Lock(ctx context.Context, id uuid.UUID) (Dispatch, error)
	List(ctx context.Context, filter Filter) ([]Dispatch, error)
}

// CatalogReader resolves stores and products.
type CatalogReader interface {
	GetStore(ctx context.Context, id uuid.UUID) (catalog.Store, error)
	GetOperatingStore(ctx context.Context, id uuid.UUID) (catalog.Store, error)
	GetSellableProduct(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

// StockAdjuster moves factory and store stock.
type StockAdjuster interface {
	AdjustFactoryStock(ctx context.Context, adj inventory.FactoryAdjustment) (inventory.Change, error)
	AdjustStoreStock(ctx context.Context, adj inventory.StoreAdjustment) (inventory.Change, error)
}

// Sequencer mints dispatch numbers.
type Sequencer interface {
	Next(ctx context.Context, series sequence.Series) (string, error)
	Guard(ctx context.Context, series sequence.Series, fn func(ctx context.Context) error) error
}

// Service moves stock from the factory to stores.
type Service struct {
	repo    Repository
	tx      db.Transactor
	catalog CatalogReader
	stock   StockAdjuster
	seq     Sequencer
	audit   shared.Auditor
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, tx db.Transactor, catalog CatalogReader, stock StockAdjuster, seq Sequencer, audit shared.Auditor, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		tx:      tx,
		catalog: catalog,
		stock:   stock,
		seq:     seq,
		audit:   audit,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create locks prices, takes the quantities off factory stock and records a
// PENDING dispatch. Any failing line undoes the whole dispatch.
func (s *Service) Create(ctx context.Context, input CreateInput, actor shared.Actor) (Dispatch, error) {
	if !actor.IsAdmin() {
		return Dispatch{}, shared.Forbidden("only admins create dispatches")
	}
	if err := validateLines(input.Items); err != nil {
		return Dispatch{}, err
	}

	var created Dispatch
	err := s.seq.Guard(ctx, sequence.Dispatch, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			store, err := s.catalog.GetOperatingStore(ctx, input.StoreID)
			if err != nil {
				return err
			}
			items := make([]Item, 0, len(input.Items))
			totalItems := 0
			totalValue := decimal.Zero
			for _, line := range input.Items {
				p, err := s.catalog.GetSellableProduct(ctx, line.ProductID)
				if err != nil {
					return err
				}
				if p.FactoryStock < line.Quantity {
					return shared.InsufficientStock("factory stock", p.SKU, p.FactoryStock, line.Quantity)
				}
				amount := p.SalePrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
				items = append(items, Item{
					ProductID: p.ID,
					SKU:       p.SKU,
					Name:      p.Name,
					Size:      p.Size,
					Quantity:  line.Quantity,
					Price:     p.SalePrice,
					Amount:    amount,
				})
				totalItems += line.Quantity
				totalValue = totalValue.Add(amount)
			}
			number, err := s.seq.Next(ctx, sequence.Dispatch)
			if err != nil {
				return err
			}
			now := s.now()
			dispatchDate := input.DispatchDate
			if dispatchDate.IsZero() {
				dispatchDate = now
			}
			d := Dispatch{
				ID:             uuid.New(),
				DispatchNumber: number,
				StoreID:        store.ID,
				Items:          items,
				TotalItems:     totalItems,
				TotalValue:     totalValue,
				Status:         StatusPending,
				DispatchDate:   dispatchDate,
				Notes:          input.Notes,
				CreatedBy:      actor.ID,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := s.repo.Insert(ctx, d); err != nil {
				return fmt.Errorf("insert dispatch %s: %w", number, err)
			}
			for _, item := range items {
				if _, err := s.stock.AdjustFactoryStock(ctx, inventory.FactoryAdjustment{
					ProductID: item.ProductID,
					Delta:     -item.Quantity,
					Type:      ledger.MovementDispatch,
					Reference: &ledger.Reference{Type: ledger.RefDispatch, ID: d.ID},
					Actor:     actor,
					Notes:     fmt.Sprintf("dispatch %s to %s", number, store.Name),
				}); err != nil {
					return err
				}
			}
			created = d
			return nil
		})
	})
	if err != nil {
		return Dispatch{}, fmt.Errorf("create dispatch: %w", err)
	}
	s.record(ctx, actor, "dispatch.create", created, map[string]any{"store_id": created.StoreID, "total_items": created.TotalItems})
	return created, nil
}

// UpdateStatus moves a dispatch along its lifecycle. Receiving credits the
// store with every line.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next Status, actor shared.Actor) (Dispatch, error) {
	if !next.Valid() {
		return Dispatch{}, shared.Validation("unknown dispatch status %q", next)
	}
	var updated Dispatch
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		d, err := s.lockLive(ctx, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && (next != StatusReceived || !actor.CanAccessStore(d.StoreID)) {
			return shared.Forbidden("store staff may only receive dispatches for their own store")
		}
		if d.Status == StatusReceived {
			return shared.InvalidState("dispatch %s is already received", d.DispatchNumber)
		}
		if !d.Status.CanBecome(next) {
			return shared.InvalidState("dispatch %s cannot move from %s to %s", d.DispatchNumber, d.Status, next)
		}
		now := s.now()
		switch next {
		case StatusShipped:
			d.ShippedDate = &now
		case StatusReceived:
			for _, item := range d.Items {
				if _, err := s.stock.AdjustStoreStock(ctx, inventory.StoreAdjustment{
					StoreID:   d.StoreID,
					ProductID: item.ProductID,
					Delta:     item.Quantity,
					Type:      ledger.MovementIn,
					Reference: &ledger.Reference{Type: ledger.RefDispatch, ID: d.ID},
					Actor:     actor,
					Notes:     fmt.Sprintf("received dispatch %s", d.DispatchNumber),
				}); err != nil {
					return err
				}
			}
			d.ReceivedDate = &now
		}
		d.Status = next
		d.UpdatedAt = now
		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return Dispatch{}, fmt.Errorf("update dispatch status: %w", err)
	}
	s.record(ctx, actor, "dispatch.status", updated, map[string]any{"status": updated.Status})
	return updated, nil
}

// Delete soft-deletes a dispatch in any status, giving factory stock back and,
// for a received dispatch, taking the store stock back out.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor shared.Actor) error {
	if !actor.IsAdmin() {
		return shared.Forbidden("only admins delete dispatches")
	}
	var deleted Dispatch
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		d, err := s.lockLive(ctx, id)
		if err != nil {
			return err
		}
		ref := &ledger.Reference{Type: ledger.RefDispatch, ID: d.ID}
		for _, item := range d.Items {
			if _, err := s.stock.AdjustFactoryStock(ctx, inventory.FactoryAdjustment{
				ProductID: item.ProductID,
				Delta:     item.Quantity,
				Type:      ledger.MovementAdjustment,
				Reference: ref,
				Actor:     actor,
				Notes:     fmt.Sprintf("dispatch %s deleted", d.DispatchNumber),
			}); err != nil {
				return err
			}
			if d.Status != StatusReceived {
				continue
			}
			if _, err := s.stock.AdjustStoreStock(ctx, inventory.StoreAdjustment{
				StoreID:   d.StoreID,
				ProductID: item.ProductID,
				Delta:     -item.Quantity,
				Type:      ledger.MovementAdjustment,
				Reference: ref,
				Actor:     actor,
				Notes:     fmt.Sprintf("dispatch %s deleted", d.DispatchNumber),
			}); err != nil {
				return err
			}
		}
		d.IsDeleted = true
		d.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}
		deleted = d
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete dispatch: %w", err)
	}
	s.record(ctx, actor, "dispatch.delete", deleted, map[string]any{"status": deleted.Status})
	return nil
}

// Get returns a live dispatch visible to actor.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor shared.Actor) (Dispatch, error) {
	d, err := s.repo.Get(ctx, id)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && d.IsDeleted) {
		return Dispatch{}, shared.NotFound("dispatch %s not found", id)
	}
	if err != nil {
		return Dispatch{}, err
	}
	if !actor.CanAccessStore(d.StoreID) {
		return Dispatch{}, shared.NotFound("dispatch %s not found", id)
	}
	return d, nil
}

// List returns live dispatches. Store staff only see their own store.
func (s *Service) List(ctx context.Context, filter Filter, actor shared.Actor) ([]Dispatch, error) {
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

func (s *Service) lockLive(ctx context.Context, id uuid.UUID) (Dispatch, error) {
	d, err := s.repo.Lock(ctx, id)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && d.IsDeleted) {
		return Dispatch{}, shared.NotFound("dispatch %s not found", id)
	}
	return d, err
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return shared.Validation("dispatch needs at least one item")
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return shared.Validation("quantity for product %s must be positive", line.ProductID)
		}
		if _, dup := seen[line.ProductID]; dup {
			return shared.Validation("product %s listed twice", line.ProductID)
		}
		seen[line.ProductID] = struct{}{}
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor shared.Actor, action string, d Dispatch, meta map[string]any) {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["dispatch_number"] = d.DispatchNumber
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actor.ID, Action: action, Entity: "dispatch", EntityID: d.ID.String(), Meta: meta}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
