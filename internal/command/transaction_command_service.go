package command

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ledgerbank/balance-service/shared/apperr"
	"github.com/ledgerbank/balance-service/shared/cqrs"
	"github.com/ledgerbank/balance-service/shared/events"
	"github.com/ledgerbank/balance-service/shared/models"
	"github.com/ledgerbank/balance-service/shared/uow"
	"github.com/ledgerbank/balance-service/shared/utils"
)

type TransactionStore interface {
	GetTransaction(ctx context.Context, uid string) (*models.Transaction, error)
	InsertTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
}

type BalanceApplier interface {
	ApplyDelta(ctx context.Context, userID string, delta decimal.Decimal) (decimal.Decimal, error)
}

// TransactionCommandService records deposits and withdrawals exactly once per
// uid. It must run inside a unit of work opened by the caller: the balance
// update and the insert commit or roll back together.
type TransactionCommandService struct {
	store     TransactionStore
	balances  BalanceApplier
	publisher EventPublisher
	logger    *zap.Logger
}

func NewTransactionCommandService(
	store TransactionStore,
	balances BalanceApplier,
	publisher EventPublisher,
	logger *zap.Logger,
) *TransactionCommandService {
	return &TransactionCommandService{
		store:     store,
		balances:  balances,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *TransactionCommandService) AddTransaction(ctx context.Context, cmd cqrs.AddTransactionCommand) (*models.Transaction, error) {
	if !cmd.Type.Valid() {
		return nil, apperr.ErrInvalidTransactionType
	}
	if !utils.ValidateAmount(cmd.Amount) {
		return nil, apperr.ErrInvalidAmount
	}

	existing, err := s.store.GetTransaction(ctx, cmd.UID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.ErrTransactionAlreadyProcessed
	}

	delta := cmd.Type.Signed(cmd.Amount)
	newBalance, err := s.balances.ApplyDelta(ctx, cmd.UserID, delta)
	if err != nil {
		if errors.Is(err, apperr.ErrInsufficientBalance) {
			return nil, apperr.ErrTransactionExceedsBalance
		}
		return nil, err
	}

	tx, err := s.store.InsertTransaction(ctx, &models.Transaction{
		UID:       cmd.UID,
		UserID:    cmd.UserID,
		Type:      cmd.Type,
		Amount:    cmd.Amount,
		CreatedAt: cmd.CreatedAt.UTC(),
	})
	if err != nil {
		return nil, err
	}

	recorded := *tx
	uow.AfterCommit(ctx, func(ctx context.Context) {
		s.logger.Info("transaction recorded",
			zap.String("uid", recorded.UID),
			zap.String("user_id", recorded.UserID),
			zap.String("type", string(recorded.Type)),
			zap.String("amount", recorded.Amount.StringFixed(models.MoneyScale)),
		)
		s.publish(ctx, events.TransactionRecorded, events.TransactionRecordedEvent{
			UID:         recorded.UID,
			UserID:      recorded.UserID,
			Type:        string(recorded.Type),
			Amount:      recorded.Amount.StringFixed(models.MoneyScale),
			CreatedAt:   recorded.CreatedAt,
			ProcessedAt: recorded.ProcessedAt,
		})
		s.publish(ctx, events.BalanceUpdated, events.BalanceUpdatedEvent{
			UserID:     recorded.UserID,
			NewBalance: newBalance.StringFixed(models.MoneyScale),
			Change:     delta.StringFixed(models.MoneyScale),
		})
	})

	return tx, nil
}

func (s *TransactionCommandService) publish(ctx context.Context, eventType string, data any) {
	if err := s.publisher.Publish(ctx, events.TransactionEventsStream, eventType, data); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event", eventType), zap.Error(err))
	}
}
