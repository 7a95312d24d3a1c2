package sales

import (
	"github.com/shopspring/decimal"

	"github.com/fabricflow/fabricflow/internal/shared"
)

var totalsTolerance = decimal.RequireFromString("0.01")

func closeEnough(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(totalsTolerance)
}

// checkTotals validates the caller's arithmetic and returns the line
// snapshots and totals to persist.
func checkTotals(input CreateInput) ([]Line, decimal.Decimal, error) {
	if input.Discount.IsNegative() || input.Tax.IsNegative() {
		return nil, decimal.Zero, shared.Validation("discount and tax must not be negative")
	}
	lines := make([]Line, 0, len(input.Items))
	sub := decimal.Zero
	for i, in := range input.Items {
		if in.Quantity <= 0 {
			return nil, decimal.Zero, shared.Validation("line %d: quantity must be positive", i+1)
		}
		if in.Price.IsNegative() {
			return nil, decimal.Zero, shared.Validation("line %d: price must not be negative", i+1)
		}
		expected := in.Price.Mul(decimal.NewFromInt(int64(in.Quantity)))
		if !closeEnough(in.Total, expected) {
			return nil, decimal.Zero, shared.Validation("line %d: total %s does not match %d x %s", i+1, in.Total, in.Quantity, in.Price)
		}
		lines = append(lines, Line{
			ProductID: in.ProductID,
			Barcode:   in.Barcode,
			Quantity:  in.Quantity,
			Price:     in.Price,
			Total:     expected,
		})
		sub = sub.Add(expected)
	}
	if !closeEnough(input.SubTotal, sub) {
		return nil, decimal.Zero, shared.Validation("sub total %s does not match lines %s", input.SubTotal, sub)
	}
	grand := sub.Sub(input.Discount).Add(input.Tax)
	if grand.IsNegative() {
		return nil, decimal.Zero, shared.Validation("discount exceeds sub total")
	}
	if !closeEnough(input.GrandTotal, grand) {
		return nil, decimal.Zero, shared.Validation("grand total %s does not match %s", input.GrandTotal, grand)
	}
	return lines, sub, nil
}
