package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ledgerbank/balance-service/shared/apperr"
	"github.com/ledgerbank/balance-service/shared/middleware"
)

var domainStatus = []struct {
	err     error
	status  int
	message string
}{
	{apperr.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{apperr.ErrUserAlreadyExists, http.StatusConflict, "User already exists"},
	{apperr.ErrTransactionNotFound, http.StatusNotFound, "Transaction not found"},
	{apperr.ErrTransactionAlreadyProcessed, http.StatusConflict, "Transaction already processed"},
	{apperr.ErrTransactionExceedsBalance, http.StatusUnprocessableEntity, "Transaction exceeds balance"},
	{apperr.ErrInvalidTimestamp, http.StatusBadRequest, apperr.ErrInvalidTimestamp.Error()},
	{apperr.ErrInvalidAmount, http.StatusBadRequest, "Amount must be positive with at most two decimal places"},
	{apperr.ErrInvalidTransactionType, http.StatusBadRequest, "Type must be DEPOSIT or WITHDRAW"},
}

// respondWithError maps domain errors to their status. Anything else is
// attached to the context for the logging middleware and hidden behind a 500.
func respondWithError(c *gin.Context, err error) {
	for _, d := range domainStatus {
		if errors.Is(err, d.err) {
			middleware.RespondWithError(c, d.status, d.message)
			return
		}
	}
	_ = c.Error(err)
	middleware.RespondWithError(c, http.StatusInternalServerError, "Internal server error")
}
