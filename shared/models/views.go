package models

import "time"

// UserView is the public projection of a user. The balance is served by the
// balance endpoint only.
type UserView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BalanceView renders a Balance. Timestamp is omitted for live balances.
type BalanceView struct {
	UserID    string     `json:"user_id"`
	Balance   string     `json:"balance"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// TransactionView is the read model of a transaction. It is also the JSON
// document stored in the Redis view cache.
type TransactionView struct {
	UID         string          `json:"uid"`
	UserID      string          `json:"user_id"`
	Type        TransactionType `json:"type"`
	Amount      string          `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt time.Time       `json:"processed_at"`
}

func NewUserView(u *User) *UserView {
	return &UserView{ID: u.ID, Name: u.Name}
}

func NewBalanceView(b *Balance) *BalanceView {
	view := &BalanceView{
		UserID:  b.UserID,
		Balance: b.Amount.StringFixed(MoneyScale),
	}
	if b.Timestamp != nil {
		ts := b.Timestamp.UTC()
		view.Timestamp = &ts
	}
	return view
}

func NewTransactionView(t *Transaction) *TransactionView {
	return &TransactionView{
		UID:         t.UID,
		UserID:      t.UserID,
		Type:        t.Type,
		Amount:      t.Amount.StringFixed(MoneyScale),
		CreatedAt:   t.CreatedAt.UTC(),
		ProcessedAt: t.ProcessedAt.UTC(),
	}
}
