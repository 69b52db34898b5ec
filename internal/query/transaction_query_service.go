package query

import (
	"context"

	"github.com/ledgerbank/balance-service/shared/cqrs"
	"github.com/ledgerbank/balance-service/shared/models"
)

type TransactionViewReader interface {
	GetByUID(ctx context.Context, uid string) (*models.TransactionView, error)
}

// TransactionQueryService serves transaction views, cache first.
type TransactionQueryService struct {
	readRepo TransactionViewReader
}

func NewTransactionQueryService(readRepo TransactionViewReader) *TransactionQueryService {
	return &TransactionQueryService{readRepo: readRepo}
}

func (s *TransactionQueryService) GetTransaction(ctx context.Context, q cqrs.GetTransactionQuery) (*models.TransactionView, error) {
	return s.readRepo.GetByUID(ctx, q.UID)
}
