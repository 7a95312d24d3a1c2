package sales

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fabricflow/fabricflow/internal/shared"
	_ "github.com/fabricflow/fabricflow/testing"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCheckTotals(t *testing.T) {
	shirt, jeans := uuid.New(), uuid.New()
	valid := CreateInput{
		Items: []LineInput{
			{ProductID: shirt, Quantity: 2, Price: d("499.50"), Total: d("999.00")},
			{ProductID: jeans, Quantity: 1, Price: d("1299"), Total: d("1299")},
			{ProductID: shirt, Quantity: 1, Price: d("450"), Total: d("450")},
		},
		SubTotal:   d("2748"),
		Discount:   d("48"),
		Tax:        d("135"),
		GrandTotal: d("2835"),
	}

	lines, sub, err := checkTotals(valid)
	require.NoError(t, err)
	require.True(t, sub.Equal(d("2748")))
	require.Len(t, lines, 3)
	require.True(t, lines[0].Total.Equal(d("999")))

	sale := Sale{Items: lines}
	qty, ok := sale.QuantityOf(shirt)
	require.True(t, ok)
	require.Equal(t, 3, qty)
	_, ok = sale.QuantityOf(uuid.New())
	require.False(t, ok)

	cases := map[string]func(in *CreateInput){
		"line total off": func(in *CreateInput) { in.Items[1].Total = d("1298") },
		"sub total off":  func(in *CreateInput) { in.SubTotal = d("2700") },
		"grand off":      func(in *CreateInput) { in.GrandTotal = d("2748") },
		"negative tax":   func(in *CreateInput) { in.Tax = d("-1") },
		"zero quantity":  func(in *CreateInput) { in.Items[0].Quantity = 0 },
		"negative price": func(in *CreateInput) { in.Items[2].Price = d("-450") },
		"discount over sub": func(in *CreateInput) {
			in.Discount = d("3000")
			in.Tax = decimal.Zero
			in.GrandTotal = d("-252")
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			in.Items = append([]LineInput(nil), valid.Items...)
			mutate(&in)
			_, _, err := checkTotals(in)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestCheckTotalsToleratesRounding(t *testing.T) {
	in := CreateInput{
		Items:      []LineInput{{ProductID: uuid.New(), Quantity: 3, Price: d("33.33"), Total: d("100")}},
		SubTotal:   d("99.99"),
		GrandTotal: d("100"),
	}
	_, sub, err := checkTotals(in)
	require.NoError(t, err)
	require.True(t, sub.Equal(d("99.99")))
}

func TestPaymentModes(t *testing.T) {
	for _, m := range []PaymentMode{PaymentCash, PaymentCard, PaymentUPI, PaymentMixed} {
		require.True(t, m.Valid(), m)
	}
	require.False(t, PaymentMode("CHEQUE").Valid())
}
