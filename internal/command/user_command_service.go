package command

import (
	"context"

	"go.uber.org/zap"

	"github.com/ledgerbank/balance-service/shared/apperr"
	"github.com/ledgerbank/balance-service/shared/cqrs"
	"github.com/ledgerbank/balance-service/shared/events"
	"github.com/ledgerbank/balance-service/shared/models"
	"github.com/ledgerbank/balance-service/shared/uow"
)

type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, id, name string) (*models.User, error)
}

// UserCommandService opens accounts with a zero balance.
type UserCommandService struct {
	store     UserStore
	publisher EventPublisher
	logger    *zap.Logger
}

func NewUserCommandService(store UserStore, publisher EventPublisher, logger *zap.Logger) *UserCommandService {
	return &UserCommandService{store: store, publisher: publisher, logger: logger}
}

func (s *UserCommandService) CreateUser(ctx context.Context, cmd cqrs.CreateUserCommand) (*models.User, error) {
	existing, err := s.store.GetUser(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.ErrUserAlreadyExists
	}

	user, err := s.store.CreateUser(ctx, cmd.ID, cmd.Name)
	if err != nil {
		return nil, err
	}

	created := *user
	uow.AfterCommit(ctx, func(ctx context.Context) {
		if err := s.publisher.Publish(ctx, events.UserEventsStream, events.UserCreated, events.UserCreatedEvent{
			UserID: created.ID,
			Name:   created.Name,
		}); err != nil {
			s.logger.Warn("failed to publish event", zap.String("event", events.UserCreated), zap.Error(err))
		}
	})
	return user, nil
}
