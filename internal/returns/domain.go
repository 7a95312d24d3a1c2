package returns

import (
	"time"

	"github.com/google/uuid"
)

// Type selects the stock routing of a return.
type Type string

const (
	// TypeCustomer puts sold units back on the store shelf.
	TypeCustomer Type = "CUSTOMER_RETURN"
	// TypeStoreToFactory moves store stock back to the factory.
	TypeStoreToFactory Type = "STORE_TO_FACTORY"
	// TypeDamaged writes store stock off.
	TypeDamaged Type = "DAMAGED"
)

// Valid reports whether t is a known return type.
func (t Type) Valid() bool {
	switch t {
	case TypeCustomer, TypeStoreToFactory, TypeDamaged:
		return true
	}
	return false
}

// Status of a return.
type Status string

const (
	StatusApproved Status = "APPROVED"
	StatusPending  Status = "PENDING"
	StatusRejected Status = "REJECTED"
)

// Return is one single-product stock correction.
type Return struct {
	ID              uuid.UUID  `json:"id"`
	ReturnNumber    string     `json:"return_number"`
	Type            Type       `json:"type"`
	ReferenceSaleID *uuid.UUID `json:"reference_sale_id,omitempty"`
	StoreID         uuid.UUID  `json:"store_id"`
	ProductID       uuid.UUID  `json:"product_id"`
	Quantity        int        `json:"quantity"`
	Reason          string     `json:"reason,omitempty"`
	Status          Status     `json:"status"`
	CreatedBy       uuid.UUID  `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
}

// CreateInput requests a return.
type CreateInput struct {
	Type            Type       `json:"type" validate:"required"`
	ReferenceSaleID *uuid.UUID `json:"reference_sale_id,omitempty"`
	StoreID         uuid.UUID  `json:"store_id" validate:"required"`
	ProductID       uuid.UUID  `json:"product_id" validate:"required"`
	Quantity        int        `json:"quantity" validate:"gt=0"`
	Reason          string     `json:"reason,omitempty" validate:"max=500"`
}

// Filter narrows listings.
type Filter struct {
	StoreID *uuid.UUID
	Type    Type
	SaleID  *uuid.UUID
	Limit   int
	Offset  int
}
