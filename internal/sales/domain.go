package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMode is how the customer paid.
type PaymentMode string

const (
	PaymentCash  PaymentMode = "CASH"
	PaymentCard  PaymentMode = "CARD"
	PaymentUPI   PaymentMode = "UPI"
	PaymentMixed PaymentMode = "MIXED"
)

// Valid reports whether m is a known payment mode.
func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentMixed:
		return true
	}
	return false
}

// Status of a sale. Sales are created COMPLETED and never edited.
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusRefunded  Status = "REFUNDED"
)

// Line is the snapshot of one sold product.
type Line struct {
	ProductID uuid.UUID       `json:"product_id"`
	Barcode   string          `json:"barcode"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
}

// Sale is a completed point-of-sale transaction.
type Sale struct {
	ID            uuid.UUID       `json:"id"`
	SaleNumber    string          `json:"sale_number"`
	StoreID       uuid.UUID       `json:"store_id"`
	CashierID     uuid.UUID       `json:"cashier_id"`
	Items         []Line          `json:"items"`
	SubTotal      decimal.Decimal `json:"sub_total"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	PaymentMode   PaymentMode     `json:"payment_mode"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	Status        Status          `json:"status"`
	SaleDate      time.Time       `json:"sale_date"`
	CreatedAt     time.Time       `json:"created_at"`
}

// QuantityOf returns how many units of productID the sale carried.
func (s Sale) QuantityOf(productID uuid.UUID) (int, bool) {
	total, found := 0, false
	for _, line := range s.Items {
		if line.ProductID == productID {
			total += line.Quantity
			found = true
		}
	}
	return total, found
}

// LineInput is one line as rung up at the counter.
type LineInput struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Barcode   string          `json:"barcode"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
}

// CreateInput records a sale. The totals are checked against the lines.
type CreateInput struct {
	StoreID        uuid.UUID       `json:"store_id" validate:"required"`
	Items          []LineInput     `json:"items" validate:"required,min=1,dive"`
	SubTotal       decimal.Decimal `json:"sub_total"`
	Discount       decimal.Decimal `json:"discount"`
	Tax            decimal.Decimal `json:"tax"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	PaymentMode    PaymentMode     `json:"payment_mode" validate:"required"`
	CustomerName   string          `json:"customer_name,omitempty" validate:"max=120"`
	CustomerPhone  string          `json:"customer_phone,omitempty"`
	SaleDate       time.Time       `json:"sale_date"`
	IdempotencyKey string          `json:"-"`
}

// Filter narrows listings.
type Filter struct {
	StoreID   *uuid.UUID
	CashierID *uuid.UUID
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
