package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/ledger"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// DefaultMinStock is the threshold given to a store/product pair on creation.
const DefaultMinStock = 5

// StoreStock is the stock state of one (store, product) pair.
type StoreStock struct {
	StoreID           uuid.UUID `json:"store_id"`
	ProductID         uuid.UUID `json:"product_id"`
	QuantityAvailable int       `json:"quantity_available"`
	QuantitySold      int       `json:"quantity_sold"`
	QuantityReturned  int       `json:"quantity_returned"`
	MinStock          int       `json:"min_stock"`
	LastUpdated       time.Time `json:"last_updated"`
}

// IsLow reports whether available stock is at or below the threshold.
func (s StoreStock) IsLow() bool {
	return s.QuantityAvailable <= s.MinStock
}

// StockLevel is a StoreStock joined with product and store labels.
type StockLevel struct {
	StoreStock
	StoreName string          `json:"store_name"`
	SKU       string          `json:"sku"`
	Barcode   string          `json:"barcode"`
	Name      string          `json:"name"`
	Size      catalog.Size    `json:"size"`
	SalePrice decimal.Decimal `json:"sale_price"`
}

// StockFilter narrows store inventory listings.
type StockFilter struct {
	StoreID   *uuid.UUID
	ProductID *uuid.UUID
	LowOnly   bool
	Limit     int
	Offset    int
}

// FactoryAdjustment moves a product's factory stock by Delta.
type FactoryAdjustment struct {
	ProductID uuid.UUID
	Delta     int
	Type      ledger.MovementType
	Reference *ledger.Reference
	Actor     shared.Actor
	Notes     string
}

// StoreAdjustment moves a pair's available stock by Delta. SoldDelta and
// ReturnedDelta move the cumulative counters in the same write.
type StoreAdjustment struct {
	StoreID       uuid.UUID
	ProductID     uuid.UUID
	Delta         int
	SoldDelta     int
	ReturnedDelta int
	Type          ledger.MovementType
	Reference     *ledger.Reference
	Actor         shared.Actor
	Notes         string
}

// Change reports a counter before and after an adjustment.
type Change struct {
	Before int          `json:"before"`
	After  int          `json:"after"`
	Entry  ledger.Entry `json:"entry"`
}

// ManualFactoryAdjustment is a stock-take correction of factory stock.
type ManualFactoryAdjustment struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Delta     int       `json:"delta" validate:"required,ne=0"`
	Notes     string    `json:"notes" validate:"required,max=500"`
}

// ManualStoreAdjustment is a stock-take correction of store stock.
type ManualStoreAdjustment struct {
	StoreID   uuid.UUID `json:"store_id" validate:"required"`
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Delta     int       `json:"delta" validate:"required,ne=0"`
	Notes     string    `json:"notes" validate:"required,max=500"`
}
