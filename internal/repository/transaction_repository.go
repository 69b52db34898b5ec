package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbank/balance-service/shared/apperr"
	"github.com/ledgerbank/balance-service/shared/models"
)

// TransactionWriteRepository owns the transactions ledger. It is the source
// of truth for point-in-time balances.
type TransactionWriteRepository struct {
	db *sql.DB
}

func NewTransactionWriteRepository(db *sql.DB) *TransactionWriteRepository {
	return &TransactionWriteRepository{db: db}
}

// InsertTransaction persists tx and returns it with the processed_at the
// database assigned.
func (r *TransactionWriteRepository) InsertTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	query := `
		INSERT INTO transactions (uid, user_id, type, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING processed_at
	`
	stored := *tx
	err := executor(ctx, r.db).QueryRowContext(ctx, query,
		tx.UID, tx.UserID, string(tx.Type), tx.Amount, tx.CreatedAt.UTC(),
	).Scan(&stored.ProcessedAt)
	if err != nil {
		switch pgErrorCode(err) {
		case codeUniqueViolation:
			return nil, apperr.ErrTransactionAlreadyProcessed
		case codeForeignKeyViolation:
			return nil, apperr.ErrUserNotFound
		case codeCheckViolation, codeNumericOverflow:
			return nil, apperr.ErrInvalidAmount
		}
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	stored.CreatedAt = stored.CreatedAt.UTC()
	stored.ProcessedAt = stored.ProcessedAt.UTC()
	return &stored, nil
}

// GetTransaction returns nil without an error when uid is unknown.
func (r *TransactionWriteRepository) GetTransaction(ctx context.Context, uid string) (*models.Transaction, error) {
	query := `
		SELECT uid, user_id, type, amount, created_at, processed_at
		FROM transactions
		WHERE uid = $1
	`
	var tx models.Transaction
	var txType string
	err := executor(ctx, r.db).QueryRowContext(ctx, query, uid).Scan(
		&tx.UID, &tx.UserID, &txType, &tx.Amount, &tx.CreatedAt, &tx.ProcessedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	tx.Type = models.TransactionType(txType)
	tx.CreatedAt = tx.CreatedAt.UTC()
	tx.ProcessedAt = tx.ProcessedAt.UTC()
	return &tx, nil
}

// SumAmountsByType totals a user's transactions per type. Both bounds are
// optional and inclusive. Types with no rows are absent from the result.
func (r *TransactionWriteRepository) SumAmountsByType(ctx context.Context, userID string, after, before *time.Time) (map[models.TransactionType]decimal.Decimal, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT type, SUM(amount) FROM transactions WHERE user_id = $1`)
	args := []any{userID}
	if after != nil {
		args = append(args, after.UTC())
		fmt.Fprintf(&sb, ` AND created_at >= $%d`, len(args))
	}
	if before != nil {
		args = append(args, before.UTC())
		fmt.Fprintf(&sb, ` AND created_at <= $%d`, len(args))
	}
	sb.WriteString(` GROUP BY type`)

	rows, err := executor(ctx, r.db).QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sum transactions: %w", err)
	}
	defer rows.Close()

	sums := make(map[models.TransactionType]decimal.Decimal, 2)
	for rows.Next() {
		var txType string
		var sum decimal.Decimal
		if err := rows.Scan(&txType, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan transaction sum: %w", err)
		}
		sums[models.TransactionType(txType)] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transaction sums: %w", err)
	}
	return sums, nil
}
