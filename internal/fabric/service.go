package fabric

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// Repository persists fabric lots. Lock reads with a row lock inside an
// atomic unit.
type Repository interface {
	Insert(ctx context.Context, f Fabric) error
	Update(ctx context.Context, f Fabric) error
	Get(ctx context.Context, id uuid.UUID) (Fabric, error)
	Lock(ctx context.Context, id uuid.UUID) (Fabric, error)
	List(ctx context.Context, filter Filter) ([]Fabric, error)
}

// SupplierReader checks the supplier of a purchase.
type SupplierReader interface {
	GetSupplier(ctx context.Context, id uuid.UUID) (catalog.Supplier, error)
}

// Service manages fabric lots.
type Service struct {
	repo      Repository
	tx        db.Transactor
	suppliers SupplierReader
	audit     shared.Auditor
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, tx db.Transactor, suppliers SupplierReader, audit shared.Auditor, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tx: tx, suppliers: suppliers, audit: audit, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Purchase records a new lot with all purchased metres available.
func (s *Service) Purchase(ctx context.Context, input PurchaseInput, actor shared.Actor) (Fabric, error) {
	if !input.MeterPurchased.IsPositive() {
		return Fabric{}, shared.Validation("meters purchased must be positive")
	}
	if input.RatePerMeter.IsNegative() {
		return Fabric{}, shared.Validation("rate per meter must not be negative")
	}
	if strings.TrimSpace(input.Type) == "" || strings.TrimSpace(input.InvoiceNumber) == "" {
		return Fabric{}, shared.Validation("fabric type and invoice number are required")
	}
	if _, err := s.suppliers.GetSupplier(ctx, input.SupplierID); err != nil {
		return Fabric{}, err
	}
	now := s.now()
	purchased := input.PurchaseDate
	if purchased.IsZero() {
		purchased = now
	}
	f := Fabric{
		ID:             uuid.New(),
		SupplierID:     input.SupplierID,
		Type:           strings.TrimSpace(input.Type),
		Color:          strings.TrimSpace(input.Color),
		GSM:            input.GSM,
		PurchaseDate:   purchased,
		InvoiceNumber:  strings.TrimSpace(input.InvoiceNumber),
		MeterPurchased: input.MeterPurchased,
		MeterAvailable: input.MeterPurchased,
		RatePerMeter:   input.RatePerMeter,
		TotalAmount:    input.MeterPurchased.Mul(input.RatePerMeter).Round(2),
		Status:         StatusActive,
		Notes:          strings.TrimSpace(input.Notes),
		IsActive:       true,
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Insert(ctx, f); err != nil {
		return Fabric{}, fmt.Errorf("purchase fabric: %w", err)
	}
	s.record(ctx, actor, "fabric.purchase", f.ID, map[string]any{"meters": f.MeterPurchased.String(), "total": f.TotalAmount.String()})
	return f, nil
}

// Get returns a live lot.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Fabric, error) {
	f, err := s.repo.Get(ctx, id)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && f.IsDeleted) {
		return Fabric{}, shared.NotFound("fabric %s not found", id)
	}
	return f, err
}

// List returns live lots.
func (s *Service) List(ctx context.Context, filter Filter) ([]Fabric, error) {
	page := shared.NewPage(filter.Limit, filter.Offset)
	filter.Limit, filter.Offset = page.Limit, page.Offset
	return s.repo.List(ctx, filter)
}

// Update edits descriptive fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput, actor shared.Actor) (Fabric, error) {
	var updated Fabric
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		f, err := s.lockLive(ctx, id)
		if err != nil {
			return err
		}
		if input.Type != nil {
			f.Type = strings.TrimSpace(*input.Type)
		}
		if input.Color != nil {
			f.Color = strings.TrimSpace(*input.Color)
		}
		if input.GSM != nil {
			f.GSM = *input.GSM
		}
		if input.InvoiceNumber != nil {
			f.InvoiceNumber = strings.TrimSpace(*input.InvoiceNumber)
		}
		if input.Notes != nil {
			f.Notes = strings.TrimSpace(*input.Notes)
		}
		if input.IsActive != nil {
			f.IsActive = *input.IsActive
		}
		f.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, f); err != nil {
			return err
		}
		updated = f
		return nil
	})
	if err != nil {
		return Fabric{}, fmt.Errorf("update fabric: %w", err)
	}
	s.record(ctx, actor, "fabric.update", id, nil)
	return updated, nil
}

// Delete soft-deletes a lot.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor shared.Actor) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		f, err := s.lockLive(ctx, id)
		if err != nil {
			return err
		}
		f.IsDeleted = true
		f.IsActive = false
		f.UpdatedAt = s.now()
		return s.repo.Update(ctx, f)
	})
	if err != nil {
		return fmt.Errorf("delete fabric: %w", err)
	}
	s.record(ctx, actor, "fabric.delete", id, nil)
	return nil
}

// Consume takes meters off the lot and marks it CONSUMED once nothing is
// left. It is the only path that lowers MeterAvailable.
func (s *Service) Consume(ctx context.Context, id uuid.UUID, meters decimal.Decimal) (Fabric, error) {
	if !meters.IsPositive() {
		return Fabric{}, shared.Validation("meters used must be positive")
	}
	var consumed Fabric
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		f, err := s.lockLive(ctx, id)
		if err != nil {
			return err
		}
		if !f.IsActive {
			return shared.InvalidState("fabric %s is inactive", f.Label())
		}
		if f.Status == StatusConsumed {
			return shared.InvalidState("fabric %s is already consumed", f.Label())
		}
		if meters.GreaterThan(f.MeterAvailable) {
			return shared.InsufficientMaterial(f.Label(), f.MeterAvailable, meters)
		}
		f.MeterAvailable = f.MeterAvailable.Sub(meters)
		if !f.MeterAvailable.IsPositive() {
			f.MeterAvailable = decimal.Zero
			f.Status = StatusConsumed
		}
		f.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, f); err != nil {
			return err
		}
		consumed = f
		return nil
	})
	if err != nil {
		return Fabric{}, err
	}
	return consumed, nil
}

func (s *Service) lockLive(ctx context.Context, id uuid.UUID) (Fabric, error) {
	f, err := s.repo.Lock(ctx, id)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && f.IsDeleted) {
		return Fabric{}, shared.NotFound("fabric %s not found", id)
	}
	return f, err
}

func (s *Service) record(ctx context.Context, actor shared.Actor, action string, id uuid.UUID, meta map[string]any) {
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actor.ID, Action: action, Entity: "fabric", EntityID: id.String(), Meta: meta}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
