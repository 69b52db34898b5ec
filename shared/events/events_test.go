package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPublisherAppendsEvent(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	publisher := NewPublisher(client, 0)

	err := publisher.Publish(ctx, TransactionEventsStream, BalanceUpdated, BalanceUpdatedEvent{
		UserID: "u1", NewBalance: "100.00", Change: "100.00",
	})
	require.NoError(t, err)

	entries, err := client.XRange(ctx, TransactionEventsStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var event Event
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["event"].(string)), &event))
	assert.Equal(t, BalanceUpdated, event.Type)

	var data BalanceUpdatedEvent
	require.NoError(t, event.DecodeData(&data))
	assert.Equal(t, "u1", data.UserID)
	assert.Equal(t, "100.00", data.NewBalance)
}

func TestSubscriberDeliversPublishedEvents(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, NewPublisher(client, 0).Publish(ctx, UserEventsStream, UserCreated, UserCreatedEvent{UserID: "u1", Name: "Ann"}))

	var received []Event
	sub := NewSubscriber(client, zap.NewNop(), SubscriberConfig{
		Group:         "test-group",
		Consumer:      "test-consumer",
		Stream:        UserEventsStream,
		BlockDuration: 10 * time.Millisecond,
		Handler: func(_ context.Context, event Event) error {
			received = append(received, event)
			return nil
		},
	})
	require.NoError(t, client.XGroupCreateMkStream(ctx, UserEventsStream, "test-group", "0").Err())

	require.NoError(t, sub.readMessages(ctx))
	require.Len(t, received, 1)
	assert.Equal(t, UserCreated, received[0].Type)
}

func TestProcessMessageRejectsMalformedPayload(t *testing.T) {
	sub := NewSubscriber(nil, zap.NewNop(), SubscriberConfig{
		Handler: func(context.Context, Event) error { return nil },
	})

	err := sub.processMessage(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]any{"other": "x"}})
	assert.Error(t, err)

	err = sub.processMessage(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]any{"event": "{not json"}})
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), "s", "t", nil))
}
