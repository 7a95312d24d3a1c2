// Package sequence mints the human readable, year-scoped identifiers used for
// batches, dispatches, sales, returns and SKUs (PB-2025-0001, DSP-2025-00001).
package sequence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fabricflow/fabricflow/internal/shared"
)

// Series is one numbering namespace.
type Series struct {
	Prefix string
	Width  int
}

// Known series.
var (
	Batch    = Series{Prefix: "PB", Width: 4}
	Dispatch = Series{Prefix: "DSP", Width: 5}
	Sale     = Series{Prefix: "INV", Width: 5}
	Return   = Series{Prefix: "RTN", Width: 5}
	SKU      = Series{Prefix: "SKU", Width: 5}
)

// ErrCorruptSequence is returned when the latest stored number cannot be parsed.
var ErrCorruptSequence = errors.New("sequence: unparsable suffix")

// Stem returns "<PREFIX>-<YEAR>-".
func (s Series) Stem(year int) string {
	return fmt.Sprintf("%s-%d-", s.Prefix, year)
}

// Format renders the n-th number of the series for year.
func (s Series) Format(year, n int) string {
	return fmt.Sprintf("%s%0*d", s.Stem(year), s.Width, n)
}

// Parse extracts the numeric suffix of number.
func (s Series) Parse(year int, number string) (int, error) {
	suffix, ok := strings.CutPrefix(number, s.Stem(year))
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a %s number: %w", ErrCorruptSequence, number, s.Stem(year), shared.ErrInvalidState)
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: last %s number %q: %w", ErrCorruptSequence, s.Prefix, number, shared.ErrInvalidState)
	}
	return n, nil
}

// Finder returns the highest number stored for series in year. Numbers
// longer than the padding width must rank above shorter ones.
type Finder interface {
	LastNumber(ctx context.Context, series Series, year int) (string, bool, error)
}

// Locker serialises minting for one series key.
type Locker interface {
	Obtain(ctx context.Context, key string) (release func(), err error)
}

// Generator mints the next number of a series by reading the last stored one.
type Generator struct {
	finder Finder
	locker Locker
	now    func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithLocker serialises Guard calls per series and year.
func WithLocker(l Locker) Option {
	return func(g *Generator) { g.locker = l }
}

// WithClock overrides the time source used to pick the year.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator constructs a generator.
func NewGenerator(finder Finder, opts ...Option) *Generator {
	g := &Generator{finder: finder, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns the number following the latest stored one, starting at 1.
// It must run inside the atomic unit that persists the new entity.
func (g *Generator) Next(ctx context.Context, series Series) (string, error) {
	year := g.now().Year()
	last, ok, err := g.finder.LastNumber(ctx, series, year)
	if err != nil {
		return "", fmt.Errorf("sequence: last %s: %w", series.Prefix, err)
	}
	if !ok {
		return series.Format(year, 1), nil
	}
	n, err := series.Parse(year, last)
	if err != nil {
		return "", err
	}
	return series.Format(year, n+1), nil
}

// Guard runs fn while holding the series lock for the current year. Without
// a locker it simply runs fn; the unique indexes stay the backstop.
func (g *Generator) Guard(ctx context.Context, series Series, fn func(ctx context.Context) error) error {
	if g.locker == nil {
		return fn(ctx)
	}
	release, err := g.locker.Obtain(ctx, shared.SequenceLockKey(series.Prefix, g.now().Year()))
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}
