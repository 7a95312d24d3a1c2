// Package notify publishes real-time store events over redis pub/sub.
// Publishing is fire-and-forget: nobody waits for subscribers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// SalesChannel carries every completed sale.
	SalesChannel = "fabricflow:sales"
	// LowStockChannel carries low-stock alerts.
	LowStockChannel = "fabricflow:low-stock"
)

// StoreSalesChannel is the per-store sale channel.
func StoreSalesChannel(storeID uuid.UUID) string {
	return SalesChannel + ":" + storeID.String()
}

// SaleEvent announces a completed sale.
type SaleEvent struct {
	SaleNumber string          `json:"sale_number"`
	StoreID    uuid.UUID       `json:"store_id"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	Display    string          `json:"display,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// LowStockAlert flags a (store, product) pair at or below its threshold.
type LowStockAlert struct {
	StoreID   uuid.UUID `json:"store_id"`
	StoreName string    `json:"store_name"`
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Available int       `json:"available"`
	MinStock  int       `json:"min_stock"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher writes events to redis channels.
type Publisher struct {
	client  redis.UniversalClient
	printer *message.Printer
}

// NewPublisher builds a Publisher on client.
func NewPublisher(client redis.UniversalClient) *Publisher {
	return &Publisher{client: client, printer: message.NewPrinter(language.MustParse("en-IN"))}
}

// PublishSale sends ev on the global and the store channel.
func (p *Publisher) PublishSale(ctx context.Context, ev SaleEvent) error {
	if ev.Display == "" {
		ev.Display = p.FormatINR(ev.GrandTotal)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pipe := p.client.Pipeline()
	pipe.Publish(ctx, SalesChannel, payload)
	pipe.Publish(ctx, StoreSalesChannel(ev.StoreID), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish sale %s: %w", ev.SaleNumber, err)
	}
	return nil
}

// PublishLowStock sends one alert.
func (p *Publisher) PublishLowStock(ctx context.Context, alert LowStockAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, LowStockChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish low stock %s: %w", alert.SKU, err)
	}
	return nil
}

// FormatINR renders amount as rupees for display.
func (p *Publisher) FormatINR(amount decimal.Decimal) string {
	return p.printer.Sprint(currency.Symbol(currency.INR.Amount(amount.Round(2).InexactFloat64())))
}
