package cqrs

import "time"

// ---------- User queries ----------

type GetUserQuery struct {
	UserID string
}

// GetBalanceQuery reads the live balance when Timestamp is nil and the
// balance reconstructed from the ledger as of Timestamp otherwise.
type GetBalanceQuery struct {
	UserID    string
	Timestamp *time.Time
}

// ---------- Transaction queries ----------

type GetTransactionQuery struct {
	UID string
}
