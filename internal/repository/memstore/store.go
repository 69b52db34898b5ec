// Package memstore is the embedded ledger backend: the same operations as the
// Postgres repositories over in-process maps. It backs local runs and the
// engine tests.
package memstore

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbank/balance-service/shared/apperr"
	"github.com/ledgerbank/balance-service/shared/models"
	"github.com/ledgerbank/balance-service/shared/uow"
)

var errReadOnly = errors.New("memstore: write inside a read-only unit of work")

// Store serialises writers with one lock. A unit of work holds the lock for
// its whole duration and restores a snapshot if it fails.
type Store struct {
	mu    sync.RWMutex
	users map[string]models.User
	txs   map[string]models.Transaction
	now   func() time.Time
}

var _ uow.Runner = (*Store)(nil)

type Option func(*Store)

// WithClock overrides the source of processed_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		users: make(map[string]models.User),
		txs:   make(map[string]models.Transaction),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type unitKey struct{}

type unit struct {
	store    *Store
	readOnly bool
}

func (s *Store) currentUnit(ctx context.Context) (*unit, bool) {
	u, ok := ctx.Value(unitKey{}).(*unit)
	if !ok || u.store != s {
		return nil, false
	}
	return u, true
}

// acquire locks the store for a single call made outside a unit of work.
// Inside one the lock is already held.
func (s *Store) acquire(ctx context.Context, write bool) (func(), error) {
	if u, ok := s.currentUnit(ctx); ok {
		if write && u.readOnly {
			return nil, errReadOnly
		}
		return func() {}, nil
	}
	if write {
		s.mu.Lock()
		return s.mu.Unlock, nil
	}
	s.mu.RLock()
	return s.mu.RUnlock, nil
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := s.currentUnit(ctx); ok {
		return fn(ctx)
	}

	s.mu.Lock()
	users, txs := maps.Clone(s.users), maps.Clone(s.txs)
	restore := func() {
		s.users, s.txs = users, txs
	}

	unitCtx, hooks := uow.Attach(context.WithValue(ctx, unitKey{}, &unit{store: s}))
	err := func() error {
		defer func() {
			if p := recover(); p != nil {
				restore()
				s.mu.Unlock()
				panic(p)
			}
		}()
		return fn(unitCtx)
	}()
	if err != nil {
		restore()
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	hooks.Run(ctx)
	return nil
}

func (s *Store) WithinReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := s.currentUnit(ctx); ok {
		return fn(ctx)
	}

	s.mu.RLock()
	unitCtx, hooks := uow.Attach(context.WithValue(ctx, unitKey{}, &unit{store: s, readOnly: true}))
	err := func() error {
		defer s.mu.RUnlock()
		return fn(unitCtx)
	}()
	if err != nil {
		return err
	}

	hooks.Run(ctx)
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	release, err := s.acquire(ctx, false)
	if err != nil {
		return nil, err
	}
	defer release()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, id, name string) (*models.User, error) {
	release, err := s.acquire(ctx, true)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, ok := s.users[id]; ok {
		return nil, apperr.ErrUserAlreadyExists
	}
	user := models.User{ID: id, Name: name, Balance: decimal.Zero}
	s.users[id] = user
	return &user, nil
}

// AdjustBalance mirrors the conditional UPDATE of the Postgres backend.
func (s *Store) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, bool, error) {
	release, err := s.acquire(ctx, true)
	if err != nil {
		return decimal.Zero, false, err
	}
	defer release()

	user, ok := s.users[id]
	if !ok {
		return decimal.Zero, false, nil
	}
	balance := user.Balance.Add(delta)
	if balance.IsNegative() {
		return decimal.Zero, false, nil
	}
	if balance.GreaterThan(models.MaxMoney) {
		return decimal.Zero, false, apperr.ErrInvalidAmount
	}
	user.Balance = balance
	s.users[id] = user
	return balance, true, nil
}

func (s *Store) InsertTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	release, err := s.acquire(ctx, true)
	if err != nil {
		return nil, err
	}
	defer release()

	if !tx.Amount.IsPositive() || tx.Amount.GreaterThan(models.MaxMoney) {
		return nil, apperr.ErrInvalidAmount
	}
	if _, ok := s.txs[tx.UID]; ok {
		return nil, apperr.ErrTransactionAlreadyProcessed
	}
	if _, ok := s.users[tx.UserID]; !ok {
		return nil, apperr.ErrUserNotFound
	}

	stored := *tx
	stored.CreatedAt = stored.CreatedAt.UTC()
	stored.ProcessedAt = s.now().UTC()
	s.txs[stored.UID] = stored
	return &stored, nil
}

func (s *Store) GetTransaction(ctx context.Context, uid string) (*models.Transaction, error) {
	release, err := s.acquire(ctx, false)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, ok := s.txs[uid]
	if !ok {
		return nil, nil
	}
	return &tx, nil
}

// SumAmountsByType totals a user's transactions per type within the
// inclusive, optional bounds.
func (s *Store) SumAmountsByType(ctx context.Context, userID string, after, before *time.Time) (map[models.TransactionType]decimal.Decimal, error) {
	release, err := s.acquire(ctx, false)
	if err != nil {
		return nil, err
	}
	defer release()

	sums := make(map[models.TransactionType]decimal.Decimal, 2)
	for _, tx := range s.txs {
		if tx.UserID != userID {
			continue
		}
		if after != nil && tx.CreatedAt.Before(*after) {
			continue
		}
		if before != nil && tx.CreatedAt.After(*before) {
			continue
		}
		sums[tx.Type] = sums[tx.Type].Add(tx.Amount)
	}
	return sums, nil
}
