package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MovementType enumerates stock movements.
type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
	MovementReturn     MovementType = "RETURN"
	MovementDispatch   MovementType = "DISPATCH"
	MovementSale       MovementType = "SALE"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjustment, MovementReturn, MovementDispatch, MovementSale:
		return true
	}
	return false
}

// Reference types recorded on entries.
const (
	RefProduct    = "product"
	RefBatch      = "production_batch"
	RefDispatch   = "dispatch"
	RefSale       = "sale"
	RefReturn     = "return"
	RefAdjustment = "adjustment"
)

// Entry is one immutable stock movement. StoreID is nil for factory stock.
type Entry struct {
	ID             uuid.UUID    `json:"id"`
	ProductID      uuid.UUID    `json:"product_id"`
	StoreID        *uuid.UUID   `json:"store_id,omitempty"`
	Type           MovementType `json:"type"`
	QuantityBefore int          `json:"quantity_before"`
	QuantityChange int          `json:"quantity_change"`
	QuantityAfter  int          `json:"quantity_after"`
	ReferenceType  string       `json:"reference_type,omitempty"`
	ReferenceID    *uuid.UUID   `json:"reference_id,omitempty"`
	Notes          string       `json:"notes,omitempty"`
	ActorID        uuid.UUID    `json:"actor_id"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Reference points an entry at the entity that caused it.
type Reference struct {
	Type string
	ID   uuid.UUID
}

// Filter narrows history listings.
type Filter struct {
	ProductID   *uuid.UUID
	StoreID     *uuid.UUID
	FactoryOnly bool
	Type        MovementType
	ReferenceID *uuid.UUID
	From        time.Time
	To          time.Time
	Limit       int
	Offset      int
}

// ErrUnbalancedEntry is returned when after != before + change.
var ErrUnbalancedEntry = errors.New("ledger: quantity after must equal before plus change")
