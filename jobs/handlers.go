package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/fabricflow/fabricflow/internal/inventory"
	"github.com/fabricflow/fabricflow/internal/notify"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// Publisher sends real-time events.
type Publisher interface {
	PublishSale(ctx context.Context, ev notify.SaleEvent) error
	PublishLowStock(ctx context.Context, alert notify.LowStockAlert) error
}

// StockLister lists store stock levels.
type StockLister interface {
	ListStoreStock(ctx context.Context, filter inventory.StockFilter) ([]inventory.StockLevel, error)
}

// KeyCleaner drops idempotency keys older than a retention window.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// Recorder observes job outcomes.
type Recorder interface {
	JobProcessed(task string, err error)
}

// Jobs holds the task handlers.
type Jobs struct {
	publisher Publisher
	stock     StockLister
	keys      KeyCleaner
	metrics   Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// New builds the handler set. metrics may be nil.
func New(publisher Publisher, stock StockLister, keys KeyCleaner, metrics Recorder, logger *slog.Logger) *Jobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &Jobs{
		publisher: publisher,
		stock:     stock,
		keys:      keys,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Handlers returns the registrations for the worker mux.
func (j *Jobs) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskSaleCompleted, Handler: j.instrument(TaskSaleCompleted, j.HandleSaleCompleted)},
		{Type: TaskLowStockScan, Handler: j.instrument(TaskLowStockScan, j.HandleLowStockScan)},
		{Type: TaskIdempotencyCleanup, Handler: j.instrument(TaskIdempotencyCleanup, j.HandleIdempotencyCleanup)},
	}
}

func (j *Jobs) instrument(task string, fn asynq.HandlerFunc) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		err := fn(ctx, t)
		if j.metrics != nil {
			j.metrics.JobProcessed(task, err)
		}
		if err != nil {
			j.logger.Warn("job failed", slog.String("task", task), slog.Any("error", err))
		}
		return err
	}
}

// HandleSaleCompleted publishes the sale on the live channels.
func (j *Jobs) HandleSaleCompleted(ctx context.Context, t *asynq.Task) error {
	var payload SaleCompletedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s: %v: %w", TaskSaleCompleted, err, asynq.SkipRetry)
	}
	return j.publisher.PublishSale(ctx, notify.SaleEvent{
		SaleNumber: payload.SaleNumber,
		StoreID:    payload.StoreID,
		GrandTotal: payload.GrandTotal,
		Timestamp:  payload.Timestamp,
	})
}

// HandleLowStockScan publishes one alert per low pair. Publishing stops at
// the first failure so the retry resends the whole scan.
func (j *Jobs) HandleLowStockScan(ctx context.Context, t *asynq.Task) error {
	var payload LowStockScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode %s: %v: %w", TaskLowStockScan, err, asynq.SkipRetry)
		}
	}
	now := j.now()
	sent := 0
	for offset := 0; ; offset += shared.MaxPageLimit {
		levels, err := j.stock.ListStoreStock(ctx, inventory.StockFilter{
			StoreID: payload.StoreID,
			LowOnly: true,
			Limit:   shared.MaxPageLimit,
			Offset:  offset,
		})
		if err != nil {
			return fmt.Errorf("list low stock: %w", err)
		}
		for _, level := range levels {
			if err := j.publisher.PublishLowStock(ctx, alertFor(level, now)); err != nil {
				return err
			}
			sent++
		}
		if len(levels) < shared.MaxPageLimit {
			break
		}
	}
	j.logger.Info("low stock scan finished", slog.Int("alerts", sent), slog.String("store", storeLabel(payload.StoreID)))
	return nil
}

// HandleIdempotencyCleanup drops keys past their retention.
func (j *Jobs) HandleIdempotencyCleanup(ctx context.Context, t *asynq.Task) error {
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s: %v: %w", TaskIdempotencyCleanup, err, asynq.SkipRetry)
	}
	if payload.Retention <= 0 {
		payload.Retention = 72 * time.Hour
	}
	return j.keys.Cleanup(ctx, payload.Retention)
}

func alertFor(level inventory.StockLevel, at time.Time) notify.LowStockAlert {
	return notify.LowStockAlert{
		StoreID:   level.StoreID,
		StoreName: level.StoreName,
		ProductID: level.ProductID,
		SKU:       level.SKU,
		Name:      level.Name,
		Available: level.QuantityAvailable,
		MinStock:  level.MinStock,
		Timestamp: at,
	}
}

func storeLabel(id *uuid.UUID) string {
	if id == nil {
		return "all"
	}
	return id.String()
}
