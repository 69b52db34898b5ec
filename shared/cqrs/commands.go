package cqrs

import (
	"time"

	"github.com/ledgerbank/balance-service/shared/models"
	"github.com/shopspring/decimal"
)

type CreateUserCommand struct {
	ID   string
	Name string
}

// AddTransactionCommand records a deposit or withdrawal. UID is the
// caller's idempotency key.
type AddTransactionCommand struct {
	UID       string
	UserID    string
	Type      models.TransactionType
	Amount    decimal.Decimal
	CreatedAt time.Time
}
