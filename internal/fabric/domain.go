package fabric

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status of a fabric lot.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusConsumed Status = "CONSUMED"
)

// Fabric is one purchase lot of raw material. MeterPurchased never changes;
// MeterAvailable only goes down, through Service.Consume.
type Fabric struct {
	ID             uuid.UUID       `json:"id"`
	SupplierID     uuid.UUID       `json:"supplier_id"`
	Type           string          `json:"type"`
	Color          string          `json:"color"`
	GSM            int             `json:"gsm"`
	PurchaseDate   time.Time       `json:"purchase_date"`
	InvoiceNumber  string          `json:"invoice_number"`
	MeterPurchased decimal.Decimal `json:"meter_purchased"`
	MeterAvailable decimal.Decimal `json:"meter_available"`
	RatePerMeter   decimal.Decimal `json:"rate_per_meter"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         Status          `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	IsActive       bool            `json:"is_active"`
	IsDeleted      bool            `json:"-"`
	CreatedBy      uuid.UUID       `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Label names the lot in user-facing messages.
func (f Fabric) Label() string {
	return fmt.Sprintf("%s %s (invoice %s)", f.Color, f.Type, f.InvoiceNumber)
}

// PurchaseInput records a new lot.
type PurchaseInput struct {
	SupplierID     uuid.UUID       `json:"supplier_id" validate:"required"`
	Type           string          `json:"type" validate:"required,max=80"`
	Color          string          `json:"color" validate:"required,max=60"`
	GSM            int             `json:"gsm" validate:"gte=0,lte=2000"`
	PurchaseDate   time.Time       `json:"purchase_date"`
	InvoiceNumber  string          `json:"invoice_number" validate:"required,max=60"`
	MeterPurchased decimal.Decimal `json:"meter_purchased"`
	RatePerMeter   decimal.Decimal `json:"rate_per_meter"`
	Notes          string          `json:"notes,omitempty" validate:"max=500"`
}

// UpdateInput edits descriptive fields. Metres are immutable.
type UpdateInput struct {
	Type          *string `json:"type,omitempty" validate:"omitempty,min=1,max=80"`
	Color         *string `json:"color,omitempty" validate:"omitempty,min=1,max=60"`
	GSM           *int    `json:"gsm,omitempty" validate:"omitempty,gte=0,lte=2000"`
	InvoiceNumber *string `json:"invoice_number,omitempty" validate:"omitempty,min=1,max=60"`
	Notes         *string `json:"notes,omitempty" validate:"omitempty,max=500"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

// Filter narrows listings.
type Filter struct {
	Status     Status
	SupplierID *uuid.UUID
	Limit      int
	Offset     int
}
