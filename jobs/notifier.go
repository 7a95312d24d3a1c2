package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/fabricflow/fabricflow/internal/sales"
)

// Enqueuer submits tasks; *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// SaleNotifier hands committed sales to the worker.
type SaleNotifier struct {
	queue Enqueuer
}

// NewSaleNotifier builds the notifier.
func NewSaleNotifier(queue Enqueuer) *SaleNotifier {
	return &SaleNotifier{queue: queue}
}

var _ sales.Notifier = (*SaleNotifier)(nil)

// SaleCompleted implements sales.Notifier.
func (n *SaleNotifier) SaleCompleted(ctx context.Context, sale sales.Sale) error {
	task, err := NewSaleCompletedTask(SaleCompletedPayload{
		SaleNumber: sale.SaleNumber,
		StoreID:    sale.StoreID,
		GrandTotal: sale.GrandTotal,
		Timestamp:  sale.SaleDate,
	})
	if err != nil {
		return err
	}
	if _, err := n.queue.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s for %s: %w", TaskSaleCompleted, sale.SaleNumber, err)
	}
	return nil
}
