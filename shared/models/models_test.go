package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransactionTypeSigned(t *testing.T) {
	amount := decimal.RequireFromString("12.50")

	assert.True(t, TransactionTypeDeposit.Signed(amount).Equal(amount))
	assert.True(t, TransactionTypeWithdraw.Signed(amount).Equal(decimal.RequireFromString("-12.50")))
	assert.False(t, TransactionType("deposit").Valid())
}

func TestNewBalanceView(t *testing.T) {
	live := NewBalanceView(&Balance{UserID: "u1", Amount: decimal.NewFromInt(100)})
	assert.Equal(t, "100.00", live.Balance)
	assert.Nil(t, live.Timestamp)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	historical := NewBalanceView(&Balance{UserID: "u1", Amount: decimal.RequireFromString("7.5"), Timestamp: &ts})
	assert.Equal(t, "7.50", historical.Balance)
	if assert.NotNil(t, historical.Timestamp) {
		assert.Equal(t, time.UTC, historical.Timestamp.Location())
		assert.True(t, historical.Timestamp.Equal(ts))
	}
}
