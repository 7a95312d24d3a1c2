package catalog

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/shared"
)

const productColumns = `id, sku, barcode, name, size, color, category_id, brand, cost_price, sale_price,
	factory_stock, batch_id, is_active, is_deleted, created_by, created_at, updated_at`

// PgRepository implements Repository on PostgreSQL.
type PgRepository struct {
	db shared.ConnProvider
}

// NewRepository constructs the repository.
func NewRepository(conns shared.ConnProvider) *PgRepository {
	return &PgRepository{db: conns}
}

func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case pgxscan.NotFound(err):
		return shared.ErrNotFound
	case db.IsUniqueViolation(err):
		return shared.Conflict("%s already exists (%s)", what, db.ConstraintName(err))
	}
	return err
}

// InsertProduct implements Repository.
func (r *PgRepository) InsertProduct(ctx context.Context, p Product) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		p.ID, p.SKU, p.Barcode, p.Name, p.Size, p.Color, p.CategoryID, p.Brand, p.CostPrice, p.SalePrice,
		p.FactoryStock, p.BatchID, p.IsActive, p.IsDeleted, p.CreatedBy, p.CreatedAt, p.UpdatedAt)
	return translate(err, "product "+p.SKU)
}

// UpdateProduct writes metadata columns. factory_stock is owned by inventory.
func (r *PgRepository) UpdateProduct(ctx context.Context, p Product) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `UPDATE products SET name=$2, color=$3, category_id=$4, brand=$5,
		cost_price=$6, sale_price=$7, is_active=$8, is_deleted=$9, updated_at=$10 WHERE id=$1`,
		p.ID, p.Name, p.Color, p.CategoryID, p.Brand, p.CostPrice, p.SalePrice, p.IsActive, p.IsDeleted, p.UpdatedAt)
	if err != nil {
		return translate(err, "product "+p.SKU)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetProduct implements Repository.
func (r *PgRepository) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	var p Product
	err := pgxscan.Get(ctx, r.db.Conn(ctx), &p, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
	return p, translate(err, "product")
}

// GetProductByBarcode implements Repository.
func (r *PgRepository) GetProductByBarcode(ctx context.Context, barcode string) (Product, error) {
	var p Product
	err := pgxscan.Get(ctx, r.db.Conn(ctx), &p, `SELECT `+productColumns+` FROM products WHERE barcode=$1`, barcode)
	return p, translate(err, "product")
}

// BarcodeExists implements Repository. Deleted products keep their barcode.
func (r *PgRepository) BarcodeExists(ctx context.Context, barcode string) (bool, error) {
	var exists bool
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE barcode=$1)`, barcode).Scan(&exists)
	return exists, err
}

// ListProducts implements Repository.
func (r *PgRepository) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	q := db.Builder().Select(productColumns).From("products").
		Where(sq.Eq{"is_deleted": false}).
		OrderBy("created_at DESC", "sku DESC").
		Limit(uint64(f.Limit)).Offset(uint64(f.Offset))
	if !f.IncludeInactive {
		q = q.Where(sq.Eq{"is_active": true})
	}
	if f.CategoryID != nil {
		q = q.Where(sq.Eq{"category_id": *f.CategoryID})
	}
	if f.BatchID != nil {
		q = q.Where(sq.Eq{"batch_id": *f.BatchID})
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where(sq.Or{sq.ILike{"name": like}, sq.ILike{"sku": like}, sq.Eq{"barcode": f.Search}})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build product query: %w", err)
	}
	var products []Product
	if err := pgxscan.Select(ctx, r.db.Conn(ctx), &products, sql, args...); err != nil {
		return nil, err
	}
	return products, nil
}

// InsertStore implements Repository.
func (r *PgRepository) InsertStore(ctx context.Context, s Store) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO stores (id, name, code, address, phone, is_active, is_deleted, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)`,
		s.ID, s.Name, s.Code, s.Address, s.Phone, s.IsActive, s.IsDeleted, s.CreatedAt, s.UpdatedAt)
	return translate(err, "store "+s.Name)
}

// UpdateStore implements Repository.
func (r *PgRepository) UpdateStore(ctx context.Context, s Store) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `UPDATE stores SET name=$2, code=NULLIF($3, ''), address=$4, phone=$5, is_active=$6, is_deleted=$7, updated_at=$8 WHERE id=$1`,
		s.ID, s.Name, s.Code, s.Address, s.Phone, s.IsActive, s.IsDeleted, s.UpdatedAt)
	return translate(err, "store "+s.Name)
}

const storeColumns = `id, name, COALESCE(code, '') AS code, address, phone, is_active, is_deleted, created_at, updated_at`

// GetStore implements Repository.
func (r *PgRepository) GetStore(ctx context.Context, id uuid.UUID) (Store, error) {
	var s Store
	err := pgxscan.Get(ctx, r.db.Conn(ctx), &s, `SELECT `+storeColumns+` FROM stores WHERE id=$1`, id)
	return s, translate(err, "store")
}

// ListStores implements Repository.
func (r *PgRepository) ListStores(ctx context.Context, includeInactive bool) ([]Store, error) {
	var stores []Store
	err := pgxscan.Select(ctx, r.db.Conn(ctx), &stores, `SELECT `+storeColumns+` FROM stores
		WHERE NOT is_deleted AND (is_active OR $1) ORDER BY name`, includeInactive)
	return stores, err
}

const supplierColumns = `id, name, contact_name, phone, email, address, is_active, is_deleted, created_at`

// InsertSupplier implements Repository.
func (r *PgRepository) InsertSupplier(ctx context.Context, s Supplier) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO suppliers (`+supplierColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.Name, s.ContactName, s.Phone, s.Email, s.Address, s.IsActive, s.IsDeleted, s.CreatedAt)
	return translate(err, "supplier "+s.Name)
}

// UpdateSupplier implements Repository.
func (r *PgRepository) UpdateSupplier(ctx context.Context, s Supplier) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `UPDATE suppliers SET name=$2, contact_name=$3, phone=$4, email=$5, address=$6, is_active=$7, is_deleted=$8 WHERE id=$1`,
		s.ID, s.Name, s.ContactName, s.Phone, s.Email, s.Address, s.IsActive, s.IsDeleted)
	return translate(err, "supplier "+s.Name)
}

// GetSupplier implements Repository.
func (r *PgRepository) GetSupplier(ctx context.Context, id uuid.UUID) (Supplier, error) {
	var s Supplier
	err := pgxscan.Get(ctx, r.db.Conn(ctx), &s, `SELECT `+supplierColumns+` FROM suppliers WHERE id=$1`, id)
	return s, translate(err, "supplier")
}

// ListSuppliers implements Repository.
func (r *PgRepository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	var suppliers []Supplier
	err := pgxscan.Select(ctx, r.db.Conn(ctx), &suppliers, `SELECT `+supplierColumns+` FROM suppliers WHERE NOT is_deleted ORDER BY name`)
	return suppliers, err
}

// InsertCategory implements Repository.
func (r *PgRepository) InsertCategory(ctx context.Context, c Category) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO categories (id, name, description, is_deleted, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.Description, c.IsDeleted, c.CreatedAt)
	return translate(err, "category "+c.Name)
}

// GetCategory implements Repository.
func (r *PgRepository) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	var c Category
	err := pgxscan.Get(ctx, r.db.Conn(ctx), &c, `SELECT id, name, description, is_deleted, created_at FROM categories WHERE id=$1`, id)
	return c, translate(err, "category")
}

// ListCategories implements Repository.
func (r *PgRepository) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	err := pgxscan.Select(ctx, r.db.Conn(ctx), &categories, `SELECT id, name, description, is_deleted, created_at FROM categories WHERE NOT is_deleted ORDER BY name`)
	return categories, err
}
