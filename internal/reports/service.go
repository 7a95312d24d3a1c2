package reports

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/inventory"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// Summary is the head-office dashboard.
type Summary struct {
	ProductCount  int             `json:"product_count"`
	FactoryStock  int             `json:"factory_stock"`
	StoreStock    int             `json:"store_stock"`
	TodaySales    int             `json:"today_sales"`
	TodayRevenue  decimal.Decimal `json:"today_revenue"`
	LowStockCount int             `json:"low_stock_count"`
	AsOf          time.Time       `json:"as_of"`
}

// Repository runs the aggregate reads behind the dashboard.
type Repository interface {
	ProductTotals(ctx context.Context) (count, factoryStock int, err error)
	StoreStockTotal(ctx context.Context) (int, error)
	SalesBetween(ctx context.Context, from, to time.Time) (count int, revenue decimal.Decimal, err error)
	LowStockCount(ctx context.Context) (int, error)
}

// InventoryReader lists a store's stock.
type InventoryReader interface {
	ListStoreInventory(ctx context.Context, storeID uuid.UUID, actor shared.Actor, filter inventory.StockFilter) ([]inventory.StockLevel, error)
}

// StoreReader resolves a store.
type StoreReader interface {
	GetStore(ctx context.Context, id uuid.UUID) (catalog.Store, error)
}

// SummaryCache is a read-through cache for the dashboard.
type SummaryCache interface {
	Fetch(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error
}

// Option customises Service.
type Option func(*Service)

// WithSummaryCache serves the dashboard from cache for the cache's TTL.
func WithSummaryCache(c SummaryCache) Option {
	return func(s *Service) { s.cache = c }
}

// Service builds read-only reports. Reads are independent and may observe
// different moments.
type Service struct {
	repo      Repository
	inventory InventoryReader
	stores    StoreReader
	logger    *slog.Logger
	location  *time.Location
	now       func() time.Time
	cache     SummaryCache
}

// NewService builds Service. loc decides where "today" starts.
func NewService(repo Repository, inventory InventoryReader, stores StoreReader, loc *time.Location, logger *slog.Logger, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:      repo,
		inventory: inventory,
		stores:    stores,
		logger:    logger,
		location:  loc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary fans the dashboard reads out in parallel.
func (s *Service) Summary(ctx context.Context, actor shared.Actor) (Summary, error) {
	if !actor.IsAdmin() {
		return Summary{}, shared.Forbidden("reports are for admins")
	}
	if s.cache == nil {
		return s.summary(ctx)
	}
	var out Summary
	err := s.cache.Fetch(ctx, &out, func(ctx context.Context) (any, error) {
		return s.summary(ctx)
	}, "summary", s.now().In(s.location).Format(time.DateOnly))
	return out, err
}

func (s *Service) summary(ctx context.Context) (Summary, error) {
	now := s.now().In(s.location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)

	out := Summary{AsOf: now}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		count, stock, err := s.repo.ProductTotals(ctx)
		if err != nil {
			return fmt.Errorf("product totals: %w", err)
		}
		out.ProductCount, out.FactoryStock = count, stock
		return nil
	})
	g.Go(func() error {
		total, err := s.repo.StoreStockTotal(ctx)
		if err != nil {
			return fmt.Errorf("store stock total: %w", err)
		}
		out.StoreStock = total
		return nil
	})
	g.Go(func() error {
		count, revenue, err := s.repo.SalesBetween(ctx, dayStart.UTC(), dayStart.AddDate(0, 0, 1).UTC())
		if err != nil {
			return fmt.Errorf("today's sales: %w", err)
		}
		out.TodaySales, out.TodayRevenue = count, revenue
		return nil
	})
	g.Go(func() error {
		low, err := s.repo.LowStockCount(ctx)
		if err != nil {
			return fmt.Errorf("low stock count: %w", err)
		}
		out.LowStockCount = low
		return nil
	})

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return out, nil
}

// ExportStoreInventory renders a store's stock as an XLSX workbook and
// returns it with a suggested file name.
func (s *Service) ExportStoreInventory(ctx context.Context, storeID uuid.UUID, actor shared.Actor) ([]byte, string, error) {
	store, err := s.stores.GetStore(ctx, storeID)
	if err != nil {
		return nil, "", err
	}
	var levels []inventory.StockLevel
	for offset := 0; ; offset += shared.MaxPageLimit {
		page, err := s.inventory.ListStoreInventory(ctx, storeID, actor, inventory.StockFilter{Limit: shared.MaxPageLimit, Offset: offset})
		if err != nil {
			return nil, "", err
		}
		levels = append(levels, page...)
		if len(page) < shared.MaxPageLimit {
			break
		}
	}
	var buf bytes.Buffer
	if err := writeInventoryWorkbook(&buf, store.Name, levels); err != nil {
		return nil, "", fmt.Errorf("export inventory for %s: %w", store.Name, err)
	}
	name := fmt.Sprintf("inventory-%s-%s.xlsx", slug(store.Name), s.now().In(s.location).Format("20060102"))
	return buf.Bytes(), name, nil
}
