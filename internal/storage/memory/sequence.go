package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/fabricflow/fabricflow/internal/sequence"
)

func (st *state) numbers(prefix string) ([]string, error) {
	var out []string
	switch prefix {
	case sequence.Batch.Prefix:
		for _, b := range st.batches {
			out = append(out, b.BatchNumber)
		}
	case sequence.Dispatch.Prefix:
		for _, d := range st.dispatches {
			out = append(out, d.DispatchNumber)
		}
	case sequence.Sale.Prefix:
		for _, s := range st.sales {
			out = append(out, s.SaleNumber)
		}
	case sequence.Return.Prefix:
		for _, r := range st.returns {
			out = append(out, r.ReturnNumber)
		}
	case sequence.SKU.Prefix:
		for _, p := range st.products {
			out = append(out, p.SKU)
		}
	default:
		return nil, fmt.Errorf("sequence: unknown series %q", prefix)
	}
	return out, nil
}

// LastNumber implements sequence.Finder. Longer numbers rank above shorter
// ones, then the usual string order applies.
func (s *Store) LastNumber(ctx context.Context, series sequence.Series, year int) (string, bool, error) {
	var last string
	var found bool
	err := s.read(ctx, func(st *state) error {
		numbers, err := st.numbers(series.Prefix)
		if err != nil {
			return err
		}
		stem := series.Stem(year)
		for _, n := range numbers {
			if !strings.HasPrefix(n, stem) {
				continue
			}
			if !found || len(n) > len(last) || (len(n) == len(last) && n > last) {
				last, found = n, true
			}
		}
		return nil
	})
	return last, found, err
}
