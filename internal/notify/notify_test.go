package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newPublisher(t *testing.T) (*Publisher, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPublisher(client), client
}

func TestPublishSaleReachesBothChannels(t *testing.T) {
	ctx := context.Background()
	pub, client := newPublisher(t)
	storeID := uuid.New()

	global := client.Subscribe(ctx, SalesChannel)
	defer global.Close()
	perStore := client.Subscribe(ctx, StoreSalesChannel(storeID))
	defer perStore.Close()
	_, err := global.Receive(ctx)
	require.NoError(t, err)
	_, err = perStore.Receive(ctx)
	require.NoError(t, err)

	ev := SaleEvent{
		SaleNumber: "INV-2025-00001",
		StoreID:    storeID,
		GrandTotal: decimal.RequireFromString("2360.00"),
		Timestamp:  time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pub.PublishSale(ctx, ev))

	for _, sub := range []*redis.PubSub{global, perStore} {
		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)
		var got SaleEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		require.Equal(t, ev.SaleNumber, got.SaleNumber)
		require.Equal(t, storeID, got.StoreID)
		require.True(t, ev.GrandTotal.Equal(got.GrandTotal))
		require.NotEmpty(t, got.Display)
	}
}

func TestPublishLowStock(t *testing.T) {
	ctx := context.Background()
	pub, client := newPublisher(t)

	sub := client.Subscribe(ctx, LowStockChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	alert := LowStockAlert{StoreID: uuid.New(), StoreName: "Store A", ProductID: uuid.New(), SKU: "SKU-2025-00001", Available: 2, MinStock: 5}
	require.NoError(t, pub.PublishLowStock(ctx, alert))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var got LowStockAlert
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	require.Equal(t, alert.SKU, got.SKU)
	require.Equal(t, 2, got.Available)
}

func TestPublishFailsWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	pub := NewPublisher(client)
	mr.Close()

	err := pub.PublishSale(context.Background(), SaleEvent{SaleNumber: "INV-2025-00002", StoreID: uuid.New()})
	require.Error(t, err)
}
