package production

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/fabric"
	"github.com/fabricflow/fabricflow/internal/inventory"
	"github.com/fabricflow/fabricflow/internal/ledger"
	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/sequence"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// Repository persists batches.
type Repository interface {
	Insert(ctx context.Context, b Batch) error
	Update(ctx context.Context, b Batch) error
	Get(ctx context.Context, id uuid.UUID) (Batch, error)
	Lock(ctx context.Context, id uuid.UUID) (Batch, error)
	List(ctx context.Context, filter Filter) ([]Batch, error)
}

// FabricConsumer lowers a lot's available metres.
type FabricConsumer interface {
	Consume(ctx context.Context, id uuid.UUID, meters decimal.Decimal) (fabric.Fabric, error)
}

// ProductMaker inserts one product with fresh SKU and barcode.
type ProductMaker interface {
	NewProduct(ctx context.Context, draft catalog.ProductDraft, actor shared.Actor) (catalog.Product, error)
}

// FactoryStocker adjusts factory stock.
type FactoryStocker interface {
	AdjustFactoryStock(ctx context.Context, adj inventory.FactoryAdjustment) (inventory.Change, error)
}

// Sequencer mints batch numbers and guards SKU minting.
type Sequencer interface {
	Next(ctx context.Context, series sequence.Series) (string, error)
	Guard(ctx context.Context, series sequence.Series, fn func(ctx context.Context) error) error
}

// Service converts fabric into batches and batches into products.
type Service struct {
	repo     Repository
	tx       db.Transactor
	fabrics  FabricConsumer
	products ProductMaker
	stock    FactoryStocker
	seq      Sequencer
	audit    shared.Auditor
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, tx db.Transactor, fabrics FabricConsumer, products ProductMaker, stock FactoryStocker, seq Sequencer, audit shared.Auditor, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		tx:       tx,
		fabrics:  fabrics,
		products: products,
		stock:    stock,
		seq:      seq,
		audit:    audit,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateBatch consumes fabric and opens a batch, atomically.
func (s *Service) CreateBatch(ctx context.Context, input CreateBatchInput, actor shared.Actor) (Batch, error) {
	total, err := validateBreakdown(input.SizeBreakdown)
	if err != nil {
		return Batch{}, err
	}
	stage := input.Stage
	if stage == "" {
		stage = StageCutting
	}
	if !stage.Valid() || stage == StageReady {
		return Batch{}, shared.Validation("batch cannot start at stage %q", stage)
	}
	if !input.MeterUsed.IsPositive() {
		return Batch{}, shared.Validation("meters used must be positive")
	}

	var created Batch
	err = s.seq.Guard(ctx, sequence.Batch, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			if _, err := s.fabrics.Consume(ctx, input.FabricID, input.MeterUsed); err != nil {
				return err
			}
			number, err := s.seq.Next(ctx, sequence.Batch)
			if err != nil {
				return err
			}
			now := s.now()
			b := Batch{
				ID:            uuid.New(),
				BatchNumber:   number,
				FabricID:      input.FabricID,
				MeterUsed:     input.MeterUsed,
				SizeBreakdown: append([]SizeQuantity(nil), input.SizeBreakdown...),
				TotalPieces:   total,
				Stage:         stage,
				Status:        StatusActive,
				Notes:         input.Notes,
				CreatedBy:     actor.ID,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := s.repo.Insert(ctx, b); err != nil {
				return fmt.Errorf("insert batch %s: %w", number, err)
			}
			created = b
			return nil
		})
	})
	if err != nil {
		return Batch{}, fmt.Errorf("create batch: %w", err)
	}
	s.record(ctx, actor, "batch.create", created, map[string]any{"fabric_id": created.FabricID, "meter_used": created.MeterUsed.String()})
	return created, nil
}

// AdvanceStage moves a batch forward. Reaching READY fans the size breakdown
// out into products with opening factory stock and completes the batch.
func (s *Service) AdvanceStage(ctx context.Context, id uuid.UUID, input AdvanceInput, actor shared.Actor) (AdvanceResult, error) {
	if !input.Stage.Valid() {
		return AdvanceResult{}, shared.Validation("unknown stage %q", input.Stage)
	}
	if input.Stage == StageReady && input.Product == nil {
		return AdvanceResult{}, shared.Validation("product details are required to mark a batch ready")
	}

	var result AdvanceResult
	run := func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			b, err := s.lockLive(ctx, id)
			if err != nil {
				return err
			}
			if b.Status != StatusActive {
				return shared.InvalidState("batch %s is %s", b.BatchNumber, b.Status)
			}
			if !b.Stage.CanAdvanceTo(input.Stage) {
				return shared.InvalidState("batch %s cannot move from %s to %s", b.BatchNumber, b.Stage, input.Stage)
			}
			now := s.now()
			var products []catalog.Product
			if input.Stage == StageReady {
				products, err = s.fanOut(ctx, b, *input.Product, actor)
				if err != nil {
					return err
				}
				b.Status = StatusCompleted
				b.CompletedAt = &now
			}
			b.Stage = input.Stage
			b.UpdatedAt = now
			if err := s.repo.Update(ctx, b); err != nil {
				return err
			}
			result = AdvanceResult{Batch: b, Products: products}
			return nil
		})
	}

	var err error
	if input.Stage == StageReady {
		err = s.seq.Guard(ctx, sequence.SKU, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return AdvanceResult{}, fmt.Errorf("advance batch: %w", err)
	}
	s.record(ctx, actor, "batch.stage", result.Batch, map[string]any{"stage": result.Batch.Stage, "products": len(result.Products)})
	return result, nil
}

func (s *Service) fanOut(ctx context.Context, b Batch, details catalog.ProductDetails, actor shared.Actor) ([]catalog.Product, error) {
	batchID := b.ID
	products := make([]catalog.Product, 0, len(b.SizeBreakdown))
	for _, line := range b.SizeBreakdown {
		p, err := s.products.NewProduct(ctx, catalog.ProductDraft{ProductDetails: details, Size: line.Size, BatchID: &batchID}, actor)
		if err != nil {
			return nil, err
		}
		change, err := s.stock.AdjustFactoryStock(ctx, inventory.FactoryAdjustment{
			ProductID: p.ID,
			Delta:     line.Quantity,
			Type:      ledger.MovementIn,
			Reference: &ledger.Reference{Type: ledger.RefBatch, ID: b.ID},
			Actor:     actor,
			Notes:     fmt.Sprintf("produced in batch %s", b.BatchNumber),
		})
		if err != nil {
			return nil, err
		}
		p.FactoryStock = change.After
		products = append(products, p)
	}
	return products, nil
}

// CancelBatch stops an active batch. Consumed metres stay consumed.
func (s *Service) CancelBatch(ctx context.Context, id uuid.UUID, actor shared.Actor) (Batch, error) {
	var cancelled Batch
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.lockLive(ctx, id)
		if err != nil {
			return err
		}
		if !b.Status.CanBecome(StatusCancelled) {
			return shared.InvalidState("batch %s is %s", b.BatchNumber, b.Status)
		}
		b.Status = StatusCancelled
		b.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, b); err != nil {
			return err
		}
		cancelled = b
		return nil
	})
	if err != nil {
		return Batch{}, fmt.Errorf("cancel batch: %w", err)
	}
	s.record(ctx, actor, "batch.cancel", cancelled, nil)
	return cancelled, nil
}

// Get returns a live batch.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Batch, error) {
	b, err := s.repo.Get(ctx, id)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && b.IsDeleted) {
		return Batch{}, shared.NotFound("batch %s not found", id)
	}
	return b, err
}

// List returns live batches.
func (s *Service) List(ctx context.Context, filter Filter) ([]Batch, error) {
	page := shared.NewPage(filter.Limit, filter.Offset)
	filter.Limit, filter.Offset = page.Limit, page.Offset
	return s.repo.List(ctx, filter)
}

func (s *Service) lockLive(ctx context.Context, id uuid.UUID) (Batch, error) {
	b, err := s.repo.Lock(ctx, id)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && b.IsDeleted) {
		return Batch{}, shared.NotFound("batch %s not found", id)
	}
	return b, err
}

func validateBreakdown(lines []SizeQuantity) (int, error) {
	if len(lines) == 0 {
		return 0, shared.Validation("size breakdown must have at least one line")
	}
	seen := make(map[catalog.Size]struct{}, len(lines))
	total := 0
	for _, line := range lines {
		if !line.Size.Valid() {
			return 0, shared.Validation("unknown size %q", line.Size)
		}
		if line.Quantity <= 0 {
			return 0, shared.Validation("quantity for size %s must be positive", line.Size)
		}
		if _, dup := seen[line.Size]; dup {
			return 0, shared.Validation("size %s listed twice", line.Size)
		}
		seen[line.Size] = struct{}{}
		total += line.Quantity
	}
	return total, nil
}

func (s *Service) record(ctx context.Context, actor shared.Actor, action string, b Batch, meta map[string]any) {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["batch_number"] = b.BatchNumber
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actor.ID, Action: action, Entity: "production_batch", EntityID: b.ID.String(), Meta: meta}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
