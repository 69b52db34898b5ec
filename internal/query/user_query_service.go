package query

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbank/balance-service/shared/apperr"
	"github.com/ledgerbank/balance-service/shared/cqrs"
	"github.com/ledgerbank/balance-service/shared/models"
)

type UserReader interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type HistoricalBalancer interface {
	HistoricalBalance(ctx context.Context, userID string, asOf time.Time) (decimal.Decimal, error)
}

// UserQueryService serves accounts and their live or point-in-time balances.
// Balance reads should run inside a read-only unit of work so the existence
// check and the ledger sums see one snapshot.
type UserQueryService struct {
	users    UserReader
	balances HistoricalBalancer
	now      func() time.Time
}

type Option func(*UserQueryService)

// WithClock overrides the clock used to reject future timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *UserQueryService) { s.now = now }
}

func NewUserQueryService(users UserReader, balances HistoricalBalancer, opts ...Option) *UserQueryService {
	s := &UserQueryService{users: users, balances: balances, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetUser returns nil without an error when the user does not exist.
func (s *UserQueryService) GetUser(ctx context.Context, q cqrs.GetUserQuery) (*models.User, error) {
	return s.users.GetUser(ctx, q.UserID)
}

func (s *UserQueryService) GetBalance(ctx context.Context, q cqrs.GetBalanceQuery) (*models.Balance, error) {
	user, err := s.users.GetUser(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.ErrUserNotFound
	}

	if q.Timestamp == nil {
		return &models.Balance{UserID: user.ID, Amount: user.Balance}, nil
	}

	asOf := q.Timestamp.UTC()
	if asOf.After(s.now().UTC()) {
		return nil, apperr.ErrInvalidTimestamp
	}
	amount, err := s.balances.HistoricalBalance(ctx, user.ID, asOf)
	if err != nil {
		return nil, err
	}
	return &models.Balance{UserID: user.ID, Amount: amount, Timestamp: &asOf}, nil
}
