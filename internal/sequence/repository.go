package sequence

import (
	"context"
	"fmt"

	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/shared"
)

type numberColumn struct {
	table  string
	column string
}

var numberColumns = map[string]numberColumn{
	Batch.Prefix:    {table: "production_batches", column: "batch_number"},
	Dispatch.Prefix: {table: "dispatches", column: "dispatch_number"},
	Sale.Prefix:     {table: "sales", column: "sale_number"},
	Return.Prefix:   {table: "returns", column: "return_number"},
	SKU.Prefix:      {table: "products", column: "sku"},
}

// Repository finds the latest stored numbers in PostgreSQL.
type Repository struct {
	db shared.ConnProvider
}

// NewRepository constructs the finder.
func NewRepository(conns shared.ConnProvider) *Repository {
	return &Repository{db: conns}
}

// LastNumber implements Finder. Soft-deleted rows count, numbers are never reused.
func (r *Repository) LastNumber(ctx context.Context, series Series, year int) (string, bool, error) {
	col, ok := numberColumns[series.Prefix]
	if !ok {
		return "", false, fmt.Errorf("sequence: unknown series %q", series.Prefix)
	}
	query := fmt.Sprintf(`SELECT %[2]s FROM %[1]s WHERE %[2]s LIKE $1 ORDER BY length(%[2]s) DESC, %[2]s DESC LIMIT 1`, col.table, col.column)
	var last string
	err := r.db.Conn(ctx).QueryRow(ctx, query, series.Stem(year)+"%").Scan(&last)
	if db.IsNoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return last, true, nil
}
