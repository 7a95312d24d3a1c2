package inventory

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/platform/db"
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

func lockClause(ctx context.Context) string {
	if db.InTx(ctx) {
		return " FOR UPDATE"
	}
	return ""
}

// LockProduct implements Repository.
func (r *PgRepository) LockProduct(ctx context.Context, id uuid.UUID) (catalog.Product, error) {
	var p catalog.Product
	err := pgxscan.Get(ctx, r.db.Conn(ctx), &p, `SELECT id, sku, barcode, name, size, color, category_id, brand,
		cost_price, sale_price, factory_stock, batch_id, is_active, is_deleted, created_by, created_at, updated_at
		FROM products WHERE id=$1`+lockClause(ctx), id)
	if pgxscan.NotFound(err) {
		return catalog.Product{}, shared.ErrNotFound
	}
	return p, err
}

// SetFactoryStock implements Repository.
func (r *PgRepository) SetFactoryStock(ctx context.Context, productID uuid.UUID, stock int, at time.Time) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `UPDATE products SET factory_stock=$2, updated_at=$3 WHERE id=$1`, productID, stock, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const storeStockColumns = `store_id, product_id, quantity_available, quantity_sold, quantity_returned, min_stock, last_updated`

// LockStoreStock implements Repository.
func (r *PgRepository) LockStoreStock(ctx context.Context, storeID, productID uuid.UUID) (StoreStock, error) {
	var s StoreStock
	err := pgxscan.Get(ctx, r.db.Conn(ctx), &s, `SELECT `+storeStockColumns+` FROM store_inventory
		WHERE store_id=$1 AND product_id=$2`+lockClause(ctx), storeID, productID)
	if pgxscan.NotFound(err) {
		return StoreStock{}, shared.ErrNotFound
	}
	return s, err
}

// SaveStoreStock upserts the pair. Callers hold the product row lock, which
// serialises first movements of a pair; the upsert alone would lose an update.
func (r *PgRepository) SaveStoreStock(ctx context.Context, s StoreStock) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO store_inventory (`+storeStockColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (store_id, product_id) DO UPDATE SET
			quantity_available = EXCLUDED.quantity_available,
			quantity_sold = EXCLUDED.quantity_sold,
			quantity_returned = EXCLUDED.quantity_returned,
			min_stock = EXCLUDED.min_stock,
			last_updated = EXCLUDED.last_updated`,
		s.StoreID, s.ProductID, s.QuantityAvailable, s.QuantitySold, s.QuantityReturned, s.MinStock, s.LastUpdated)
	return err
}

// SetMinStock writes only the threshold, creating an empty pair if needed.
// The counters are never touched so a racing first movement keeps its stock.
func (r *PgRepository) SetMinStock(ctx context.Context, storeID, productID uuid.UUID, minStock int, at time.Time) (StoreStock, error) {
	var s StoreStock
	err := pgxscan.Get(ctx, r.db.Conn(ctx), &s, `INSERT INTO store_inventory (`+storeStockColumns+`)
		VALUES ($1, $2, 0, 0, 0, $3, $4)
		ON CONFLICT (store_id, product_id) DO UPDATE SET
			min_stock = EXCLUDED.min_stock,
			last_updated = EXCLUDED.last_updated
		RETURNING `+storeStockColumns, storeID, productID, minStock, at)
	return s, err
}

func stockLevelQuery() sq.SelectBuilder {
	return db.Builder().
		Select("si.store_id", "si.product_id", "si.quantity_available", "si.quantity_sold", "si.quantity_returned",
			"si.min_stock", "si.last_updated", "s.name AS store_name", "p.sku", "p.barcode", "p.name", "p.size", "p.sale_price").
		From("store_inventory si").
		Join("products p ON p.id = si.product_id").
		Join("stores s ON s.id = si.store_id").
		Where(sq.Eq{"p.is_deleted": false, "s.is_deleted": false})
}

// GetStoreStock implements Repository.
func (r *PgRepository) GetStoreStock(ctx context.Context, storeID, productID uuid.UUID) (StockLevel, error) {
	sql, args, err := stockLevelQuery().Where(sq.Eq{"si.store_id": storeID, "si.product_id": productID}).ToSql()
	if err != nil {
		return StockLevel{}, err
	}
	var level StockLevel
	err = pgxscan.Get(ctx, r.db.Conn(ctx), &level, sql, args...)
	if pgxscan.NotFound(err) {
		return StockLevel{}, shared.ErrNotFound
	}
	return level, err
}

// ListStoreStock implements Repository.
func (r *PgRepository) ListStoreStock(ctx context.Context, f StockFilter) ([]StockLevel, error) {
	q := stockLevelQuery().OrderBy("s.name", "p.sku")
	if f.StoreID != nil {
		q = q.Where(sq.Eq{"si.store_id": *f.StoreID})
	}
	if f.ProductID != nil {
		q = q.Where(sq.Eq{"si.product_id": *f.ProductID})
	}
	if f.LowOnly {
		q = q.Where("si.quantity_available <= si.min_stock")
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit)).Offset(uint64(f.Offset))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stock query: %w", err)
	}
	var levels []StockLevel
	if err := pgxscan.Select(ctx, r.db.Conn(ctx), &levels, sql, args...); err != nil {
		return nil, err
	}
	return levels, nil
}
