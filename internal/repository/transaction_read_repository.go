package repository

import (
	"context"

	"github.com/ledgerbank/balance-service/shared/apperr"
	"github.com/ledgerbank/balance-service/shared/models"
	sharedredis "github.com/ledgerbank/balance-service/shared/redis"
)

const transactionViewKeyPrefix = "transaction:view:"

func TransactionViewKey(uid string) string {
	return transactionViewKeyPrefix + uid
}

// TransactionSource is the write-side lookup the read repository falls back
// to. Both store backends satisfy it.
type TransactionSource interface {
	GetTransaction(ctx context.Context, uid string) (*models.Transaction, error)
}

// TransactionReadRepository serves transaction views from Redis first,
// falling back to the store on a miss. Transactions are immutable, so a
// cached view never goes stale. A nil cache disables Redis entirely.
type TransactionReadRepository struct {
	source TransactionSource
	cache  *sharedredis.ViewCache[models.TransactionView]
}

func NewTransactionReadRepository(source TransactionSource, cache *sharedredis.ViewCache[models.TransactionView]) *TransactionReadRepository {
	return &TransactionReadRepository{source: source, cache: cache}
}

func (r *TransactionReadRepository) GetByUID(ctx context.Context, uid string) (*models.TransactionView, error) {
	if r.cache != nil {
		if view, ok := r.cache.Get(ctx, TransactionViewKey(uid)); ok {
			return view, nil
		}
	}

	tx, err := r.source.GetTransaction(ctx, uid)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, apperr.ErrTransactionNotFound
	}

	view := models.NewTransactionView(tx)
	r.CacheTransactionView(ctx, view)
	return view, nil
}

// CacheTransactionView stores the read model for a transaction. Called by the
// projector and on read-through.
func (r *TransactionReadRepository) CacheTransactionView(ctx context.Context, view *models.TransactionView) {
	if r.cache == nil {
		return
	}
	r.cache.Set(ctx, TransactionViewKey(view.UID), view)
}
