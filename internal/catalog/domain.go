package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Size enumerates garment sizes.
type Size string

const (
	SizeXS   Size = "XS"
	SizeS    Size = "S"
	SizeM    Size = "M"
	SizeL    Size = "L"
	SizeXL   Size = "XL"
	SizeXXL  Size = "XXL"
	SizeXXXL Size = "XXXL"
	SizeFree Size = "FREE"
)

// Valid reports whether s is a known size.
func (s Size) Valid() bool {
	switch s {
	case SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL, SizeXXXL, SizeFree:
		return true
	}
	return false
}

// Product is one sellable size/colour/batch combination. FactoryStock is
// written only by the factory stock adjuster.
type Product struct {
	ID           uuid.UUID       `json:"id"`
	SKU          string          `json:"sku"`
	Barcode      string          `json:"barcode"`
	Name         string          `json:"name"`
	Size         Size            `json:"size"`
	Color        string          `json:"color,omitempty"`
	CategoryID   *uuid.UUID      `json:"category_id,omitempty"`
	Brand        string          `json:"brand,omitempty"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	FactoryStock int             `json:"factory_stock"`
	BatchID      *uuid.UUID      `json:"batch_id,omitempty"`
	IsActive     bool            `json:"is_active"`
	IsDeleted    bool            `json:"-"`
	CreatedBy    uuid.UUID       `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Store is a retail outlet receiving dispatches.
type Store struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	IsDeleted bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Supplier sells fabric to the factory.
type Supplier struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	ContactName string    `json:"contact_name,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Address     string    `json:"address,omitempty"`
	IsActive    bool      `json:"is_active"`
	IsDeleted   bool      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Category groups products.
type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsDeleted   bool      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProductDetails is the metadata shared by every size of a style.
type ProductDetails struct {
	Name       string          `json:"name" validate:"required,max=200"`
	CategoryID *uuid.UUID      `json:"category_id,omitempty"`
	Brand      string          `json:"brand,omitempty" validate:"max=100"`
	Color      string          `json:"color,omitempty" validate:"max=60"`
	CostPrice  decimal.Decimal `json:"cost_price"`
	SalePrice  decimal.Decimal `json:"sale_price"`
}

// ProductDraft is what the production engine hands over for each size line.
type ProductDraft struct {
	ProductDetails
	Size    Size
	BatchID *uuid.UUID
}

// CreateProductInput is a manual product entry.
type CreateProductInput struct {
	ProductDetails
	Size         Size `json:"size" validate:"required"`
	OpeningStock int  `json:"opening_stock" validate:"gte=0"`
}

// UpdateProductInput changes metadata only. Nil fields are left untouched.
type UpdateProductInput struct {
	Name       *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	CategoryID *uuid.UUID       `json:"category_id,omitempty"`
	Brand      *string          `json:"brand,omitempty" validate:"omitempty,max=100"`
	Color      *string          `json:"color,omitempty" validate:"omitempty,max=60"`
	CostPrice  *decimal.Decimal `json:"cost_price,omitempty"`
	SalePrice  *decimal.Decimal `json:"sale_price,omitempty"`
	IsActive   *bool            `json:"is_active,omitempty"`
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID      *uuid.UUID
	BatchID         *uuid.UUID
	Search          string
	IncludeInactive bool
	Limit           int
	Offset          int
}

// StoreInput creates or updates a store.
type StoreInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Code     string `json:"code,omitempty" validate:"max=20"`
	Address  string `json:"address,omitempty" validate:"max=300"`
	Phone    string `json:"phone,omitempty" validate:"max=30"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// SupplierInput creates a supplier.
type SupplierInput struct {
	Name        string `json:"name" validate:"required,max=160"`
	ContactName string `json:"contact_name,omitempty" validate:"max=120"`
	Phone       string `json:"phone,omitempty" validate:"max=30"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Address     string `json:"address,omitempty" validate:"max=300"`
}

// CategoryInput creates a category.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=80"`
	Description string `json:"description,omitempty" validate:"max=300"`
}
