//go:build integration

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/ledgerbank/balance-service/shared/apperr"
	"github.com/ledgerbank/balance-service/shared/models"
	"github.com/ledgerbank/balance-service/shared/uow"
)

// setupPostgres starts a disposable PostgreSQL container with the schema
// migrated and returns an open pool.
func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db), "re-running migrations must be a no-op")
	return db
}

func TestIntegration_LedgerRoundTrip(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	tm := NewTxManager(db, zap.NewNop())
	users := NewUserWriteRepository(db)
	txs := NewTransactionWriteRepository(db)

	_, err := users.CreateUser(ctx, "u1", "Ann")
	require.NoError(t, err)
	_, err = users.CreateUser(ctx, "u1", "Ann")
	assert.ErrorIs(t, err, apperr.ErrUserAlreadyExists)

	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	err = tm.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, _, err := users.AdjustBalance(ctx, "u1", decimal.RequireFromString("10.50")); err != nil {
			return err
		}
		_, err := txs.InsertTransaction(ctx, &models.Transaction{
			UID: "t1", UserID: "u1", Type: models.TransactionTypeDeposit,
			Amount: decimal.RequireFromString("10.50"), CreatedAt: created,
		})
		return err
	})
	require.NoError(t, err)

	stored, err := txs.GetTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, stored.CreatedAt.Equal(created))
	assert.False(t, stored.ProcessedAt.IsZero())

	_, err = txs.InsertTransaction(ctx, &models.Transaction{
		UID: "t1", UserID: "u1", Type: models.TransactionTypeDeposit, Amount: decimal.NewFromInt(1), CreatedAt: created,
	})
	assert.ErrorIs(t, err, apperr.ErrTransactionAlreadyProcessed)

	_, err = txs.InsertTransaction(ctx, &models.Transaction{
		UID: "t2", UserID: "ghost", Type: models.TransactionTypeDeposit, Amount: decimal.NewFromInt(1), CreatedAt: created,
	})
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)

	_, applied, err := users.AdjustBalance(ctx, "u1", decimal.RequireFromString("-10.51"))
	require.NoError(t, err)
	assert.False(t, applied)

	before := created.Add(-time.Second)
	sums, err := txs.SumAmountsByType(ctx, "u1", nil, &before)
	require.NoError(t, err)
	assert.Empty(t, sums)

	sums, err = txs.SumAmountsByType(ctx, "u1", &created, &created)
	require.NoError(t, err)
	assert.Equal(t, "10.50", sums[models.TransactionTypeDeposit].StringFixed(2))
}

func TestIntegration_RollbackLeavesNoTrace(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	tm := NewTxManager(db, zap.NewNop())
	users := NewUserWriteRepository(db)
	txs := NewTransactionWriteRepository(db)

	_, err := users.CreateUser(ctx, "u1", "Ann")
	require.NoError(t, err)

	var hookRan bool
	boom := errors.New("boom")
	err = tm.WithinTransaction(ctx, func(ctx context.Context) error {
		uow.AfterCommit(ctx, func(context.Context) { hookRan = true })
		if _, _, err := users.AdjustBalance(ctx, "u1", decimal.NewFromInt(5)); err != nil {
			return err
		}
		if _, err := txs.InsertTransaction(ctx, &models.Transaction{
			UID: "t1", UserID: "u1", Type: models.TransactionTypeDeposit, Amount: decimal.NewFromInt(5), CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, hookRan)

	user, err := users.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, user.Balance.IsZero())
	tx, err := txs.GetTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestIntegration_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	tm := NewTxManager(db, zap.NewNop())
	users := NewUserWriteRepository(db)
	txs := NewTransactionWriteRepository(db)

	_, err := users.CreateUser(ctx, "u1", "Ann")
	require.NoError(t, err)
	_, _, err = users.AdjustBalance(ctx, "u1", decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = txs.InsertTransaction(ctx, &models.Transaction{
		UID: "seed", UserID: "u1", Type: models.TransactionTypeDeposit, Amount: decimal.NewFromInt(100), CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = tm.WithinTransaction(ctx, func(ctx context.Context) error {
				_, applied, err := users.AdjustBalance(ctx, "u1", decimal.NewFromInt(-7))
				if err != nil {
					return err
				}
				if !applied {
					return apperr.ErrInsufficientBalance
				}
				_, err = txs.InsertTransaction(ctx, &models.Transaction{
					UID: fmt.Sprintf("w%d", i), UserID: "u1", Type: models.TransactionTypeWithdraw,
					Amount: decimal.NewFromInt(7), CreatedAt: time.Now(),
				})
				return err
			})
		}(i)
	}
	wg.Wait()

	user, err := users.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "2.00", user.Balance.StringFixed(2))

	sums, err := txs.SumAmountsByType(ctx, "u1", nil, nil)
	require.NoError(t, err)
	net := sums[models.TransactionTypeDeposit].Sub(sums[models.TransactionTypeWithdraw])
	assert.True(t, net.Equal(user.Balance), "balance %s must equal ledger sum %s", user.Balance, net)
}

func TestIntegration_ConcurrentDuplicateUID(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	tm := NewTxManager(db, zap.NewNop())
	users := NewUserWriteRepository(db)
	txs := NewTransactionWriteRepository(db)

	_, err := users.CreateUser(ctx, "u1", "Ann")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = tm.WithinTransaction(ctx, func(ctx context.Context) error {
				if _, _, err := users.AdjustBalance(ctx, "u1", decimal.NewFromInt(10)); err != nil {
					return err
				}
				_, err := txs.InsertTransaction(ctx, &models.Transaction{
					UID: "same", UserID: "u1", Type: models.TransactionTypeDeposit,
					Amount: decimal.NewFromInt(10), CreatedAt: time.Now(),
				})
				return err
			})
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, err := range errs {
		if err == nil {
			applied++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrTransactionAlreadyProcessed)
	}
	assert.Equal(t, 1, applied)

	user, err := users.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "10.00", user.Balance.StringFixed(2))
}
