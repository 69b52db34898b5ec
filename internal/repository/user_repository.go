package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerbank/balance-service/shared/apperr"
	"github.com/ledgerbank/balance-service/shared/models"
)

// UserWriteRepository owns the users table. Every method runs on the unit of
// work carried by ctx when there is one.
type UserWriteRepository struct {
	db *sql.DB
}

func NewUserWriteRepository(db *sql.DB) *UserWriteRepository {
	return &UserWriteRepository{db: db}
}

// GetUser returns nil without an error when the user does not exist.
func (r *UserWriteRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, name, balance FROM users WHERE id = $1`

	var user models.User
	err := executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Name, &user.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *UserWriteRepository) CreateUser(ctx context.Context, id, name string) (*models.User, error) {
	query := `INSERT INTO users (id, name) VALUES ($1, $2) RETURNING balance`

	user := models.User{ID: id, Name: name}
	err := executor(ctx, r.db).QueryRowContext(ctx, query, id, name).Scan(&user.Balance)
	if err != nil {
		if pgErrorCode(err) == codeUniqueViolation {
			return nil, apperr.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// AdjustBalance adds delta to the user's balance in a single conditional
// statement. applied is false when the user does not exist or the result
// would be negative; the row is left untouched in both cases.
func (r *UserWriteRepository) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, bool, error) {
	query := `
		UPDATE users
		SET balance = balance + $2
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING balance
	`
	var balance decimal.Decimal
	err := executor(ctx, r.db).QueryRowContext(ctx, query, id, delta).Scan(&balance)
	switch {
	case err == nil:
		return balance, true, nil
	case errors.Is(err, sql.ErrNoRows):
		return decimal.Zero, false, nil
	}
	switch pgErrorCode(err) {
	case codeCheckViolation:
		return decimal.Zero, false, nil
	case codeNumericOverflow:
		return decimal.Zero, false, apperr.ErrInvalidAmount
	}
	return decimal.Zero, false, fmt.Errorf("failed to adjust balance: %w", err)
}
