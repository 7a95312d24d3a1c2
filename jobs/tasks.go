package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueNotifications carries best-effort real-time events.
	QueueNotifications = "notifications"

	// TaskSaleCompleted announces a committed sale.
	TaskSaleCompleted = "sales:completed"
	// TaskLowStockScan publishes an alert per low (store, product) pair.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskIdempotencyCleanup drops expired sale idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// SaleCompletedPayload is the wire form of a completed sale event.
type SaleCompletedPayload struct {
	SaleNumber string          `json:"sale_number"`
	StoreID    uuid.UUID       `json:"store_id"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NewSaleCompletedTask constructs the task. Events older than a few minutes
// are useless to a live dashboard, so retries are capped.
func NewSaleCompletedTask(payload SaleCompletedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSaleCompleted, data,
		asynq.Queue(QueueNotifications), asynq.MaxRetry(3), asynq.Timeout(30*time.Second)), nil
}

// LowStockScanPayload scopes a scan. A nil StoreID scans every store.
type LowStockScanPayload struct {
	StoreID *uuid.UUID `json:"store_id,omitempty"`
}

// NewLowStockScanTask constructs the scan task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data, asynq.Queue(QueueDefault), asynq.MaxRetry(1)), nil
}

// IdempotencyCleanupPayload sets the retention of idempotency keys.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.Queue(QueueDefault), asynq.MaxRetry(1)), nil
}
