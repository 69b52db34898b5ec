package projection

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgerbank/balance-service/internal/repository"
	"github.com/ledgerbank/balance-service/shared/events"
	"github.com/ledgerbank/balance-service/shared/models"
	sharedredis "github.com/ledgerbank/balance-service/shared/redis"
)

type viewRecorder struct {
	views []*models.TransactionView
}

func (r *viewRecorder) CacheTransactionView(_ context.Context, view *models.TransactionView) {
	r.views = append(r.views, view)
}

func TestHandle(t *testing.T) {
	created := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)

	tests := []struct {
		name      string
		event     events.Event
		wantViews int
		wantErr   bool
	}{
		{
			name: "transaction recorded",
			event: events.Event{Type: events.TransactionRecorded, Data: map[string]any{
				"uid": "t1", "userId": "u1", "type": "DEPOSIT", "amount": "3.00",
				"createdAt": created, "processedAt": created,
			}},
			wantViews: 1,
		},
		{
			name: "balance updated is not projected",
			event: events.Event{Type: events.BalanceUpdated, Data: map[string]any{
				"userId": "u1", "newBalance": "3.00", "change": "3.00",
			}},
		},
		{
			name:  "unknown event type is ignored",
			event: events.Event{Type: "user.created", Data: map[string]any{"userId": "u1"}},
		},
		{
			name: "bad transaction type",
			event: events.Event{Type: events.TransactionRecorded, Data: map[string]any{
				"uid": "t1", "userId": "u1", "type": "REFUND", "amount": "3.00",
			}},
			wantErr: true,
		},
		{
			name:    "malformed payload",
			event:   events.Event{Type: events.TransactionRecorded, Data: "not an object"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &viewRecorder{}
			p := NewTransactionProjector(rec, zap.NewNop())

			err := p.Handle(context.Background(), tt.event)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, rec.views, tt.wantViews)
			if tt.wantViews > 0 {
				assert.Equal(t, "t1", rec.views[0].UID)
				assert.Equal(t, models.TransactionTypeDeposit, rec.views[0].Type)
				assert.True(t, rec.views[0].CreatedAt.Equal(created))
			}
		})
	}
}

func TestProjectorConsumesStream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := sharedredis.NewViewCache[models.TransactionView](client, zap.NewNop(), 0)
	readRepo := repository.NewTransactionReadRepository(nil, cache)
	projector := NewTransactionProjector(readRepo, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = projector.NewSubscriber(client, "test").Start(ctx)
	}()

	publisher := events.NewPublisher(client, 0)
	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	require.Eventually(t, func() bool {
		err := publisher.Publish(ctx, events.TransactionEventsStream, events.TransactionRecorded, events.TransactionRecordedEvent{
			UID: "t1", UserID: "u1", Type: "WITHDRAW", Amount: "1.50", CreatedAt: ts, ProcessedAt: ts,
		})
		if err != nil {
			return false
		}
		_, ok := cache.Get(ctx, repository.TransactionViewKey("t1"))
		return ok
	}, 5*time.Second, 100*time.Millisecond)

	view, ok := cache.Get(ctx, repository.TransactionViewKey("t1"))
	require.True(t, ok)
	assert.Equal(t, "1.50", view.Amount)

	cancel()
	<-done
}
