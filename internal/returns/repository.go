package returns

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/shared"
)

const returnColumns = `id, return_number, type, reference_sale_id, store_id, product_id, quantity, reason,
	status, created_by, created_at`

// PgRepository implements Repository on PostgreSQL.
type PgRepository struct {
	db shared.ConnProvider
}

// NewRepository constructs the repository.
func NewRepository(conns shared.ConnProvider) *PgRepository {
	return &PgRepository{db: conns}
}

// Insert implements Repository.
func (r *PgRepository) Insert(ctx context.Context, ret Return) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO returns (`+returnColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		ret.ID, ret.ReturnNumber, ret.Type, ret.ReferenceSaleID, ret.StoreID, ret.ProductID, ret.Quantity,
		ret.Reason, ret.Status, ret.CreatedBy, ret.CreatedAt)
	if db.IsUniqueViolation(err) {
		return shared.Conflict("return number %s already taken", ret.ReturnNumber)
	}
	return err
}

// Get implements Repository.
func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (Return, error) {
	var ret Return
	err := pgxscan.Get(ctx, r.db.Conn(ctx), &ret, `SELECT `+returnColumns+` FROM returns WHERE id=$1`, id)
	if pgxscan.NotFound(err) {
		return Return{}, shared.ErrNotFound
	}
	return ret, err
}

// List implements Repository.
func (r *PgRepository) List(ctx context.Context, f Filter) ([]Return, error) {
	q := db.Builder().Select(returnColumns).From("returns").
		OrderBy("created_at DESC").
		Limit(uint64(f.Limit)).Offset(uint64(f.Offset))
	if f.StoreID != nil {
		q = q.Where(sq.Eq{"store_id": *f.StoreID})
	}
	if f.Type != "" {
		q = q.Where(sq.Eq{"type": f.Type})
	}
	if f.SaleID != nil {
		q = q.Where(sq.Eq{"reference_sale_id": *f.SaleID})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build return query: %w", err)
	}
	var out []Return
	if err := pgxscan.Select(ctx, r.db.Conn(ctx), &out, sql, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// ReturnedForSale implements Repository.
func (r *PgRepository) ReturnedForSale(ctx context.Context, saleID, productID uuid.UUID) (int, error) {
	var total int
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM returns
		WHERE reference_sale_id=$1 AND product_id=$2 AND type=$3 AND status=$4`,
		saleID, productID, TypeCustomer, StatusApproved).Scan(&total)
	return total, err
}
