package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits carried by every amount and
// balance.
const MoneyScale = 2

// MaxMoney is the largest amount or balance the NUMERIC(10,2) columns hold.
var MaxMoney = decimal.RequireFromString("99999999.99")

type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "DEPOSIT"
	TransactionTypeWithdraw TransactionType = "WITHDRAW"
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypeDeposit || t == TransactionTypeWithdraw
}

// Signed returns the balance delta a transaction of this type applies.
func (t TransactionType) Signed(amount decimal.Decimal) decimal.Decimal {
	if t == TransactionTypeWithdraw {
		return amount.Neg()
	}
	return amount
}

type User struct {
	ID      string
	Name    string
	Balance decimal.Decimal
}

type Transaction struct {
	UID         string
	UserID      string
	Type        TransactionType
	Amount      decimal.Decimal
	CreatedAt   time.Time
	ProcessedAt time.Time
}

// Balance is the outcome of a balance query. Timestamp is set only for
// point-in-time queries.
type Balance struct {
	UserID    string
	Amount    decimal.Decimal
	Timestamp *time.Time
}
