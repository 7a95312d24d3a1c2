package returns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/inventory"
	"github.com/fabricflow/fabricflow/internal/ledger"
	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/sales"
	"github.com/fabricflow/fabricflow/internal/sequence"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// Repository persists returns.
type Repository interface {
	Insert(ctx context.Context, r Return) error
	Get(ctx context.Context, id uuid.UUID) (Return, error)
	List(ctx context.Context, filter Filter) ([]Return, error)
	// ReturnedForSale sums customer returns already booked against a sale line.
	ReturnedForSale(ctx context.Context, saleID, productID uuid.UUID) (int, error)
}

// SaleReader loads the sale a customer return refers to.
type SaleReader interface {
	Get(ctx context.Context, id uuid.UUID) (sales.Sale, error)
}

// CatalogReader resolves stores and products.
type CatalogReader interface {
	GetStore(ctx context.Context, id uuid.UUID) (catalog.Store, error)
	GetProduct(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

// StockAdjuster moves factory and store stock.
type StockAdjuster interface {
	AdjustFactoryStock(ctx context.Context, adj inventory.FactoryAdjustment) (inventory.Change, error)
	AdjustStoreStock(ctx context.Context, adj inventory.StoreAdjustment) (inventory.Change, error)
}

// Sequencer mints return numbers.
type Sequencer interface {
	Next(ctx context.Context, series sequence.Series) (string, error)
	Guard(ctx context.Context, series sequence.Series, fn func(ctx context.Context) error) error
}

// Service routes returns to the right stock counters.
type Service struct {
	repo    Repository
	tx      db.Transactor
	sales   SaleReader
	catalog CatalogReader
	stock   StockAdjuster
	seq     Sequencer
	audit   shared.Auditor
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, tx db.Transactor, sales SaleReader, catalog CatalogReader, stock StockAdjuster, seq Sequencer, audit shared.Auditor, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		tx:      tx,
		sales:   sales,
		catalog: catalog,
		stock:   stock,
		seq:     seq,
		audit:   audit,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Process books a return. Preconditions are checked before any counter moves
// and the whole return rolls back on failure.
func (s *Service) Process(ctx context.Context, input CreateInput, actor shared.Actor) (Return, error) {
	if !input.Type.Valid() {
		return Return{}, shared.Validation("unknown return type %q", input.Type)
	}
	if input.Quantity <= 0 {
		return Return{}, shared.Validation("return quantity must be positive")
	}
	if !actor.CanAccessStore(input.StoreID) {
		return Return{}, shared.Forbidden("cannot book returns for store %s", input.StoreID)
	}
	if input.Type == TypeCustomer && input.ReferenceSaleID == nil {
		return Return{}, shared.Validation("customer return needs the reference sale")
	}

	var created Return
	err := s.seq.Guard(ctx, sequence.Return, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			if _, err := s.catalog.GetStore(ctx, input.StoreID); err != nil {
				return err
			}
			product, err := s.catalog.GetProduct(ctx, input.ProductID)
			if err != nil {
				return err
			}
			if input.Type == TypeCustomer {
				if err := s.checkReturnable(ctx, input, product); err != nil {
					return err
				}
			}
			number, err := s.seq.Next(ctx, sequence.Return)
			if err != nil {
				return err
			}
			r := Return{
				ID:           uuid.New(),
				ReturnNumber: number,
				Type:         input.Type,
				StoreID:      input.StoreID,
				ProductID:    product.ID,
				Quantity:     input.Quantity,
				Reason:       input.Reason,
				Status:       StatusApproved,
				CreatedBy:    actor.ID,
				CreatedAt:    s.now(),
			}
			if input.Type == TypeCustomer {
				saleID := *input.ReferenceSaleID
				r.ReferenceSaleID = &saleID
			}
			if err := s.route(ctx, r, actor); err != nil {
				return err
			}
			if err := s.repo.Insert(ctx, r); err != nil {
				return fmt.Errorf("insert return %s: %w", number, err)
			}
			created = r
			return nil
		})
	})
	if err != nil {
		return Return{}, fmt.Errorf("process return: %w", err)
	}
	s.record(ctx, actor, created)
	return created, nil
}

// checkReturnable rejects over-returns against the referenced sale.
func (s *Service) checkReturnable(ctx context.Context, input CreateInput, product catalog.Product) error {
	sale, err := s.sales.Get(ctx, *input.ReferenceSaleID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("sale %s not found", *input.ReferenceSaleID)
	}
	if err != nil {
		return err
	}
	if sale.StoreID != input.StoreID {
		return shared.Validation("sale %s was not made at this store", sale.SaleNumber)
	}
	if sale.Status != sales.StatusCompleted {
		return shared.InvalidState("sale %s is %s", sale.SaleNumber, sale.Status)
	}
	sold, ok := sale.QuantityOf(product.ID)
	if !ok {
		return shared.Validation("sale %s does not contain %s", sale.SaleNumber, product.SKU)
	}
	returned, err := s.repo.ReturnedForSale(ctx, sale.ID, product.ID)
	if err != nil {
		return err
	}
	if returnable := sold - returned; input.Quantity > returnable {
		return shared.InsufficientStock("returnable quantity on sale "+sale.SaleNumber, product.SKU, returnable, input.Quantity)
	}
	return nil
}

func (s *Service) route(ctx context.Context, r Return, actor shared.Actor) error {
	ref := &ledger.Reference{Type: ledger.RefReturn, ID: r.ID}
	notes := fmt.Sprintf("%s %s", r.Type, r.ReturnNumber)
	switch r.Type {
	case TypeCustomer:
		_, err := s.stock.AdjustStoreStock(ctx, inventory.StoreAdjustment{
			StoreID:       r.StoreID,
			ProductID:     r.ProductID,
			Delta:         r.Quantity,
			SoldDelta:     -r.Quantity,
			ReturnedDelta: r.Quantity,
			Type:          ledger.MovementReturn,
			Reference:     ref,
			Actor:         actor,
			Notes:         notes,
		})
		return err
	case TypeStoreToFactory:
		if _, err := s.stock.AdjustStoreStock(ctx, inventory.StoreAdjustment{
			StoreID:   r.StoreID,
			ProductID: r.ProductID,
			Delta:     -r.Quantity,
			Type:      ledger.MovementOut,
			Reference: ref,
			Actor:     actor,
			Notes:     notes,
		}); err != nil {
			return err
		}
		_, err := s.stock.AdjustFactoryStock(ctx, inventory.FactoryAdjustment{
			ProductID: r.ProductID,
			Delta:     r.Quantity,
			Type:      ledger.MovementIn,
			Reference: ref,
			Actor:     actor,
			Notes:     notes,
		})
		return err
	case TypeDamaged:
		_, err := s.stock.AdjustStoreStock(ctx, inventory.StoreAdjustment{
			StoreID:   r.StoreID,
			ProductID: r.ProductID,
			Delta:     -r.Quantity,
			Type:      ledger.MovementOut,
			Reference: ref,
			Actor:     actor,
			Notes:     notes,
		})
		return err
	}
	return shared.Validation("unknown return type %q", r.Type)
}

// Get returns a return visible to actor.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor shared.Actor) (Return, error) {
	r, err := s.repo.Get(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return Return{}, shared.NotFound("return %s not found", id)
	}
	if err != nil {
		return Return{}, err
	}
	if !actor.CanAccessStore(r.StoreID) {
		return Return{}, shared.NotFound("return %s not found", id)
	}
	return r, nil
}

// List returns returns newest first. Store staff only see their own store.
func (s *Service) List(ctx context.Context, filter Filter, actor shared.Actor) ([]Return, error) {
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

func (s *Service) record(ctx context.Context, actor shared.Actor, r Return) {
	meta := map[string]any{
		"return_number": r.ReturnNumber,
		"type":          r.Type,
		"quantity":      r.Quantity,
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actor.ID, Action: "return.create", Entity: "return", EntityID: r.ID.String(), Meta: meta}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", "return.create"), slog.Any("error", err))
	}
}
