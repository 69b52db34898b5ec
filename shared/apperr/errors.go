// Package apperr holds the domain error taxonomy shared by the engines and
// the boundary layer. Callers match with errors.Is.
package apperr

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	ErrTransactionNotFound         = errors.New("transaction not found")
	ErrTransactionAlreadyProcessed = errors.New("transaction already processed")
	ErrTransactionExceedsBalance   = errors.New("transaction exceeds balance")

	ErrInvalidTimestamp       = errors.New("wrong timestamp: are you from the future?")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// ErrInsufficientBalance is raised by the balance accessor only. The
	// transaction engine translates it to ErrTransactionExceedsBalance.
	ErrInsufficientBalance = errors.New("amount exceeds balance")
)

var domainErrors = []error{
	ErrUserNotFound,
	ErrUserAlreadyExists,
	ErrTransactionNotFound,
	ErrTransactionAlreadyProcessed,
	ErrTransactionExceedsBalance,
	ErrInvalidTimestamp,
	ErrInvalidAmount,
	ErrInvalidTransactionType,
	ErrInsufficientBalance,
}

// IsDomain reports whether err is (or wraps) one of the expected domain
// failures, as opposed to an infrastructure fault.
func IsDomain(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
