package dispatch

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabricflow/fabricflow/internal/catalog"
)

// Status of a dispatch.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusShipped  Status = "SHIPPED"
	StatusReceived Status = "RECEIVED"
)

// statusTransitions lists the statuses reachable from each status. RECEIVED
// is terminal.
var statusTransitions = map[Status][]Status{
	StatusPending:  {StatusShipped, StatusReceived},
	StatusShipped:  {StatusReceived},
	StatusReceived: {},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanBecome reports whether next is reachable from s.
func (s Status) CanBecome(next Status) bool {
	return slices.Contains(statusTransitions[s], next)
}

// Item is one dispatched product. Quantity and Price are fixed at creation.
type Item struct {
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Size      catalog.Size    `json:"size"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
}

// Dispatch is a shipment from the factory to one store.
type Dispatch struct {
	ID             uuid.UUID       `json:"id"`
	DispatchNumber string          `json:"dispatch_number"`
	StoreID        uuid.UUID       `json:"store_id"`
	Items          []Item          `json:"items"`
	TotalItems     int             `json:"total_items"`
	TotalValue     decimal.Decimal `json:"total_value"`
	Status         Status          `json:"status"`
	DispatchDate   time.Time       `json:"dispatch_date"`
	ShippedDate    *time.Time      `json:"shipped_date,omitempty"`
	ReceivedDate   *time.Time      `json:"received_date,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	IsDeleted      bool            `json:"-"`
	CreatedBy      uuid.UUID       `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// LineInput requests a quantity of one product.
type LineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

// CreateInput starts a dispatch.
type CreateInput struct {
	StoreID      uuid.UUID   `json:"store_id" validate:"required"`
	Items        []LineInput `json:"items" validate:"required,min=1,dive"`
	DispatchDate time.Time   `json:"dispatch_date"`
	Notes        string      `json:"notes,omitempty" validate:"max=500"`
}

// Filter narrows listings.
type Filter struct {
	StoreID *uuid.UUID
	Status  Status
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}
