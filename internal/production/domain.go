package production

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabricflow/fabricflow/internal/catalog"
)

// Stage of a production run.
type Stage string

const (
	StageMaterialReceived Stage = "MATERIAL_RECEIVED"
	StageCutting          Stage = "CUTTING"
	StageFinishing        Stage = "FINISHING"
	StageReady            Stage = "READY"
)

// stageTransitions lists the stages reachable from each stage. Moves are
// forward only; READY is terminal.
var stageTransitions = map[Stage][]Stage{
	StageMaterialReceived: {StageCutting, StageFinishing, StageReady},
	StageCutting:          {StageFinishing, StageReady},
	StageFinishing:        {StageReady},
	StageReady:            {},
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := stageTransitions[s]
	return ok
}

// CanAdvanceTo reports whether next is reachable from s.
func (s Stage) CanAdvanceTo(next Stage) bool {
	return slices.Contains(stageTransitions[s], next)
}

// Status of a batch.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var statusTransitions = map[Status][]Status{
	StatusActive:    {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanBecome reports whether next is reachable from s.
func (s Status) CanBecome(next Status) bool {
	return slices.Contains(statusTransitions[s], next)
}

// SizeQuantity is one line of a size breakdown.
type SizeQuantity struct {
	Size     catalog.Size `json:"size" validate:"required"`
	Quantity int          `json:"quantity" validate:"gt=0"`
}

// Batch is one production run consuming fabric.
type Batch struct {
	ID            uuid.UUID       `json:"id"`
	BatchNumber   string          `json:"batch_number"`
	FabricID      uuid.UUID       `json:"fabric_id"`
	MeterUsed     decimal.Decimal `json:"meter_used"`
	SizeBreakdown []SizeQuantity  `json:"size_breakdown"`
	TotalPieces   int             `json:"total_pieces"`
	Stage         Stage           `json:"stage"`
	Status        Status          `json:"status"`
	Notes         string          `json:"notes,omitempty"`
	IsDeleted     bool            `json:"-"`
	CreatedBy     uuid.UUID       `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// CreateBatchInput starts a run. Stage defaults to CUTTING.
type CreateBatchInput struct {
	FabricID      uuid.UUID       `json:"fabric_id" validate:"required"`
	MeterUsed     decimal.Decimal `json:"meter_used"`
	SizeBreakdown []SizeQuantity  `json:"size_breakdown" validate:"required,min=1,dive"`
	Stage         Stage           `json:"stage,omitempty"`
	Notes         string          `json:"notes,omitempty" validate:"max=500"`
}

// AdvanceInput moves a batch. Product is required when Stage is READY.
type AdvanceInput struct {
	Stage   Stage                   `json:"stage" validate:"required"`
	Product *catalog.ProductDetails `json:"product,omitempty"`
}

// AdvanceResult carries the batch and, for READY, the products it created.
type AdvanceResult struct {
	Batch    Batch             `json:"batch"`
	Products []catalog.Product `json:"products"`
}

// Filter narrows listings.
type Filter struct {
	Stage    Stage
	Status   Status
	FabricID *uuid.UUID
	Limit    int
	Offset   int
}
