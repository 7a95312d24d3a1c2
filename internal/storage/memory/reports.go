package memory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fabricflow/fabricflow/internal/reports"
	"github.com/fabricflow/fabricflow/internal/sales"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct{ s *Store }

// Reports returns the aggregate view used by dashboards.
func (s *Store) Reports() *ReportRepo { return &ReportRepo{s: s} }

var _ reports.Repository = (*ReportRepo)(nil)

// ProductTotals implements reports.Repository.
func (r *ReportRepo) ProductTotals(ctx context.Context) (count, factoryStock int, err error) {
	err = r.s.read(ctx, func(st *state) error {
		for _, p := range st.products {
			if !p.IsDeleted {
				count++
				factoryStock += p.FactoryStock
			}
		}
		return nil
	})
	return count, factoryStock, err
}

// StoreStockTotal implements reports.Repository.
func (r *ReportRepo) StoreStockTotal(ctx context.Context) (total int, err error) {
	err = r.s.read(ctx, func(st *state) error {
		for _, stock := range st.storeStock {
			total += stock.QuantityAvailable
		}
		return nil
	})
	return total, err
}

// SalesBetween implements reports.Repository.
func (r *ReportRepo) SalesBetween(ctx context.Context, from, to time.Time) (count int, revenue decimal.Decimal, err error) {
	err = r.s.read(ctx, func(st *state) error {
		for _, sale := range st.sales {
			if sale.Status == sales.StatusCompleted && !sale.SaleDate.Before(from) && sale.SaleDate.Before(to) {
				count++
				revenue = revenue.Add(sale.GrandTotal)
			}
		}
		return nil
	})
	return count, revenue, err
}

// LowStockCount implements reports.Repository.
func (r *ReportRepo) LowStockCount(ctx context.Context) (count int, err error) {
	err = r.s.read(ctx, func(st *state) error {
		for _, stock := range st.storeStock {
			if _, ok := st.stockLevel(stock); ok && stock.IsLow() {
				count++
			}
		}
		return nil
	})
	return count, err
}
