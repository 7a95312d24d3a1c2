package sales

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/shared"
)

const saleColumns = `id, sale_number, store_id, cashier_id, items, sub_total, discount, tax, grand_total,
	payment_mode, customer_name, customer_phone, status, sale_date, created_at`

// PgRepository implements Repository on PostgreSQL.
type PgRepository struct {
	db shared.ConnProvider
}

// NewRepository constructs the repository.
func NewRepository(conns shared.ConnProvider) *PgRepository {
	return &PgRepository{db: conns}
}

// Insert implements Repository.
func (r *PgRepository) Insert(ctx context.Context, s Sale) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO sales (`+saleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		s.ID, s.SaleNumber, s.StoreID, s.CashierID, s.Items, s.SubTotal, s.Discount, s.Tax, s.GrandTotal,
		s.PaymentMode, s.CustomerName, s.CustomerPhone, s.Status, s.SaleDate, s.CreatedAt)
	if db.IsUniqueViolation(err) {
		return shared.Conflict("sale number %s already taken", s.SaleNumber)
	}
	return err
}

// Get implements Repository.
func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (Sale, error) {
	var s Sale
	err := pgxscan.Get(ctx, r.db.Conn(ctx), &s, `SELECT `+saleColumns+` FROM sales WHERE id=$1`, id)
	if pgxscan.NotFound(err) {
		return Sale{}, shared.ErrNotFound
	}
	return s, err
}

// List implements Repository.
func (r *PgRepository) List(ctx context.Context, f Filter) ([]Sale, error) {
	q := db.Builder().Select(saleColumns).From("sales").
		OrderBy("sale_date DESC", "sale_number DESC").
		Limit(uint64(f.Limit)).Offset(uint64(f.Offset))
	if f.StoreID != nil {
		q = q.Where(sq.Eq{"store_id": *f.StoreID})
	}
	if f.CashierID != nil {
		q = q.Where(sq.Eq{"cashier_id": *f.CashierID})
	}
	if !f.From.IsZero() {
		q = q.Where(sq.GtOrEq{"sale_date": f.From})
	}
	if !f.To.IsZero() {
		q = q.Where(sq.Lt{"sale_date": f.To})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sale query: %w", err)
	}
	var out []Sale
	if err := pgxscan.Select(ctx, r.db.Conn(ctx), &out, sql, args...); err != nil {
		return nil, err
	}
	return out, nil
}
