package fabric

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/shared"
)

const fabricColumns = `id, supplier_id, type, color, gsm, purchase_date, invoice_number, meter_purchased,
	meter_available, rate_per_meter, total_amount, status, notes, is_active, is_deleted, created_by, created_at, updated_at`

// PgRepository implements Repository on PostgreSQL.
type PgRepository struct {
	db shared.ConnProvider
}

// NewRepository constructs the repository.
func NewRepository(conns shared.ConnProvider) *PgRepository {
	return &PgRepository{db: conns}
}

// Insert implements Repository.
func (r *PgRepository) Insert(ctx context.Context, f Fabric) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO fabrics (`+fabricColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		f.ID, f.SupplierID, f.Type, f.Color, f.GSM, f.PurchaseDate, f.InvoiceNumber, f.MeterPurchased,
		f.MeterAvailable, f.RatePerMeter, f.TotalAmount, f.Status, f.Notes, f.IsActive, f.IsDeleted,
		f.CreatedBy, f.CreatedAt, f.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return shared.Conflict("fabric invoice %s already recorded", f.InvoiceNumber)
	}
	return err
}

// Update implements Repository. meter_purchased is never rewritten.
func (r *PgRepository) Update(ctx context.Context, f Fabric) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `UPDATE fabrics SET type=$2, color=$3, gsm=$4, invoice_number=$5,
		meter_available=$6, status=$7, notes=$8, is_active=$9, is_deleted=$10, updated_at=$11 WHERE id=$1`,
		f.ID, f.Type, f.Color, f.GSM, f.InvoiceNumber, f.MeterAvailable, f.Status, f.Notes, f.IsActive, f.IsDeleted, f.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return shared.Conflict("fabric invoice %s already recorded", f.InvoiceNumber)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Get implements Repository.
func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (Fabric, error) {
	return r.get(ctx, id, "")
}

// Lock implements Repository.
func (r *PgRepository) Lock(ctx context.Context, id uuid.UUID) (Fabric, error) {
	if !db.InTx(ctx) {
		return r.get(ctx, id, "")
	}
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *PgRepository) get(ctx context.Context, id uuid.UUID, suffix string) (Fabric, error) {
	var f Fabric
	err := pgxscan.Get(ctx, r.db.Conn(ctx), &f, `SELECT `+fabricColumns+` FROM fabrics WHERE id=$1`+suffix, id)
	if pgxscan.NotFound(err) {
		return Fabric{}, shared.ErrNotFound
	}
	return f, err
}

// List implements Repository.
func (r *PgRepository) List(ctx context.Context, f Filter) ([]Fabric, error) {
	q := db.Builder().Select(fabricColumns).From("fabrics").
		Where(sq.Eq{"is_deleted": false}).
		OrderBy("purchase_date DESC", "created_at DESC").
		Limit(uint64(f.Limit)).Offset(uint64(f.Offset))
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": f.Status})
	}
	if f.SupplierID != nil {
		q = q.Where(sq.Eq{"supplier_id": *f.SupplierID})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build fabric query: %w", err)
	}
	var fabrics []Fabric
	if err := pgxscan.Select(ctx, r.db.Conn(ctx), &fabrics, sql, args...); err != nil {
		return nil, err
	}
	return fabrics, nil
}
