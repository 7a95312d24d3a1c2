package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/fabricflow/fabricflow/testing"
)

func TestBarcodeGeneratorSkipsTakenCodes(t *testing.T) {
	taken := map[string]bool{"100000000001": true, "100000000002": true}
	draws := []int64{100_000_000_001, 100_000_000_002, 100_000_000_003}
	g := NewBarcodeGenerator(func(_ context.Context, code string) (bool, error) {
		return taken[code], nil
	})
	g.draw = func() int64 {
		next := draws[0]
		draws = draws[1:]
		return next
	}

	code, err := g.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "100000000003", code)
	require.Len(t, code, 12)
}

func TestBarcodeGeneratorGivesUp(t *testing.T) {
	calls := 0
	g := NewBarcodeGenerator(func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	})
	_, err := g.Next(context.Background())
	require.ErrorIs(t, err, ErrBarcodeExhausted)
	require.Equal(t, barcodeAttempts, calls)

	boom := errors.New("db down")
	g = NewBarcodeGenerator(func(context.Context, string) (bool, error) { return false, boom })
	_, err = g.Next(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestSizes(t *testing.T) {
	for _, s := range []Size{SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL, SizeXXXL, SizeFree} {
		require.True(t, s.Valid(), s)
	}
	require.False(t, Size("m").Valid())
}
