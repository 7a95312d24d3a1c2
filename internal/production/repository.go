package production

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/shared"
)

const batchColumns = `id, batch_number, fabric_id, meter_used, size_breakdown, total_pieces, stage, status,
	notes, is_deleted, created_by, created_at, updated_at, completed_at`

// PgRepository implements Repository on PostgreSQL. The size breakdown is
// stored as JSONB.
type PgRepository struct {
	db shared.ConnProvider
}

// NewRepository constructs the repository.
func NewRepository(conns shared.ConnProvider) *PgRepository {
	return &PgRepository{db: conns}
}

// Insert implements Repository.
func (r *PgRepository) Insert(ctx context.Context, b Batch) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO production_batches (`+batchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		b.ID, b.BatchNumber, b.FabricID, b.MeterUsed, b.SizeBreakdown, b.TotalPieces, b.Stage, b.Status,
		b.Notes, b.IsDeleted, b.CreatedBy, b.CreatedAt, b.UpdatedAt, b.CompletedAt)
	if db.IsUniqueViolation(err) {
		return shared.Conflict("batch number %s already taken", b.BatchNumber)
	}
	return err
}

// Update implements Repository. Breakdown and metres are fixed at creation.
func (r *PgRepository) Update(ctx context.Context, b Batch) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `UPDATE production_batches SET stage=$2, status=$3, notes=$4, is_deleted=$5,
		updated_at=$6, completed_at=$7 WHERE id=$1`,
		b.ID, b.Stage, b.Status, b.Notes, b.IsDeleted, b.UpdatedAt, b.CompletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Get implements Repository.
func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (Batch, error) {
	return r.get(ctx, id, "")
}

// Lock implements Repository.
func (r *PgRepository) Lock(ctx context.Context, id uuid.UUID) (Batch, error) {
	if !db.InTx(ctx) {
		return r.get(ctx, id, "")
	}
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *PgRepository) get(ctx context.Context, id uuid.UUID, suffix string) (Batch, error) {
	var b Batch
	err := pgxscan.Get(ctx, r.db.Conn(ctx), &b, `SELECT `+batchColumns+` FROM production_batches WHERE id=$1`+suffix, id)
	if pgxscan.NotFound(err) {
		return Batch{}, shared.ErrNotFound
	}
	return b, err
}

// List implements Repository.
func (r *PgRepository) List(ctx context.Context, f Filter) ([]Batch, error) {
	q := db.Builder().Select(batchColumns).From("production_batches").
		Where(sq.Eq{"is_deleted": false}).
		OrderBy("created_at DESC").
		Limit(uint64(f.Limit)).Offset(uint64(f.Offset))
	if f.Stage != "" {
		q = q.Where(sq.Eq{"stage": f.Stage})
	}
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": f.Status})
	}
	if f.FabricID != nil {
		q = q.Where(sq.Eq{"fabric_id": *f.FabricID})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build batch query: %w", err)
	}
	var batches []Batch
	if err := pgxscan.Select(ctx, r.db.Conn(ctx), &batches, sql, args...); err != nil {
		return nil, err
	}
	return batches, nil
}
