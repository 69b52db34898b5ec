// Package projection keeps the Redis read model in step with the
// transaction event stream.
package projection

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ledgerbank/balance-service/shared/events"
	"github.com/ledgerbank/balance-service/shared/models"
)

const ProjectorGroup = "ledger-projector"

type ViewCacher interface {
	CacheTransactionView(ctx context.Context, view *models.TransactionView)
}

// TransactionProjector caches a view for every recorded transaction.
type TransactionProjector struct {
	views  ViewCacher
	logger *zap.Logger
}

func NewTransactionProjector(views ViewCacher, logger *zap.Logger) *TransactionProjector {
	return &TransactionProjector{views: views, logger: logger}
}

// Handle is an events.Handler for the ledger.transactions stream.
func (p *TransactionProjector) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.TransactionRecorded:
		var data events.TransactionRecordedEvent
		if err := event.DecodeData(&data); err != nil {
			return err
		}
		txType := models.TransactionType(data.Type)
		if !txType.Valid() {
			return fmt.Errorf("unknown transaction type %q in %s", data.Type, event.Type)
		}
		p.views.CacheTransactionView(ctx, &models.TransactionView{
			UID:         data.UID,
			UserID:      data.UserID,
			Type:        txType,
			Amount:      data.Amount,
			CreatedAt:   data.CreatedAt.UTC(),
			ProcessedAt: data.ProcessedAt.UTC(),
		})
		p.logger.Debug("transaction view projected", zap.String("uid", data.UID))
	case events.BalanceUpdated:
		var data events.BalanceUpdatedEvent
		if err := event.DecodeData(&data); err != nil {
			return err
		}
		p.logger.Debug("balance updated",
			zap.String("user_id", data.UserID),
			zap.String("balance", data.NewBalance),
		)
	}
	return nil
}

// NewSubscriber wires the projector to the transaction stream.
func (p *TransactionProjector) NewSubscriber(client *goredis.Client, consumer string) *events.Subscriber {
	return events.NewSubscriber(client, p.logger, events.SubscriberConfig{
		Group:    ProjectorGroup,
		Consumer: consumer,
		Stream:   events.TransactionEventsStream,
		Handler:  p.Handle,
	})
}
