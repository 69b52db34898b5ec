package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	UserCreated = "user.created"

	TransactionRecorded = "transaction.recorded"
	BalanceUpdated      = "balance.updated"
)

// Stream names
const (
	UserEventsStream        = "ledger.users"
	TransactionEventsStream = "ledger.transactions"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// DecodeData converts the loosely typed payload of a received event into dst.
func (e Event) DecodeData(dst any) error {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", e.Type, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", e.Type, err)
	}
	return nil
}

// User events
type UserCreatedEvent struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// Transaction events. Amounts travel as fixed-point decimal strings.
type TransactionRecordedEvent struct {
	UID         string    `json:"uid"`
	UserID      string    `json:"userId"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	CreatedAt   time.Time `json:"createdAt"`
	ProcessedAt time.Time `json:"processedAt"`
}

type BalanceUpdatedEvent struct {
	UserID     string `json:"userId"`
	NewBalance string `json:"newBalance"`
	Change     string `json:"change"`
}
