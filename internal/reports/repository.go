package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fabricflow/fabricflow/internal/shared"
)

// PgRepository implements Repository on PostgreSQL.
type PgRepository struct {
	db shared.ConnProvider
}

// NewRepository constructs the repository.
func NewRepository(conns shared.ConnProvider) *PgRepository {
	return &PgRepository{db: conns}
}

// ProductTotals implements Repository.
func (r *PgRepository) ProductTotals(ctx context.Context) (int, int, error) {
	var count, stock int
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(factory_stock), 0)
		FROM products WHERE is_deleted = FALSE`).Scan(&count, &stock)
	return count, stock, err
}

// StoreStockTotal implements Repository.
func (r *PgRepository) StoreStockTotal(ctx context.Context) (int, error) {
	var total int
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT COALESCE(SUM(quantity_available), 0) FROM store_inventory`).Scan(&total)
	return total, err
}

// SalesBetween implements Repository.
func (r *PgRepository) SalesBetween(ctx context.Context, from, to time.Time) (int, decimal.Decimal, error) {
	var count int
	var revenue decimal.Decimal
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(grand_total), 0) FROM sales
		WHERE status = 'COMPLETED' AND sale_date >= $1 AND sale_date < $2`, from, to).Scan(&count, &revenue)
	return count, revenue, err
}

// LowStockCount implements Repository.
func (r *PgRepository) LowStockCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM store_inventory si
		JOIN products p ON p.id = si.product_id AND p.is_deleted = FALSE
		JOIN stores s ON s.id = si.store_id AND s.is_deleted = FALSE
		WHERE si.quantity_available <= si.min_stock`).Scan(&count)
	return count, err
}
