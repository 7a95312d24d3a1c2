package catalog

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
)

const (
	barcodeMin      = 100_000_000_000
	barcodeSpan     = 900_000_000_000
	barcodeAttempts = 32
)

// ErrBarcodeExhausted is returned when no free barcode was found.
var ErrBarcodeExhausted = errors.New("catalog: could not allocate a unique barcode")

// BarcodeGenerator draws random 12-digit numeric barcodes until one is free.
type BarcodeGenerator struct {
	exists func(ctx context.Context, code string) (bool, error)
	draw   func() int64
}

// NewBarcodeGenerator checks candidates with exists.
func NewBarcodeGenerator(exists func(ctx context.Context, code string) (bool, error)) *BarcodeGenerator {
	return &BarcodeGenerator{
		exists: exists,
		draw:   func() int64 { return barcodeMin + rand.Int64N(barcodeSpan) },
	}
}

// Next returns an unused barcode.
func (g *BarcodeGenerator) Next(ctx context.Context) (string, error) {
	for range barcodeAttempts {
		code := fmt.Sprintf("%012d", g.draw())
		taken, err := g.exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check barcode: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrBarcodeExhausted
}
