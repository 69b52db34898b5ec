package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ledgerbank/balance-service/shared/cqrs"
	"github.com/ledgerbank/balance-service/shared/middleware"
	"github.com/ledgerbank/balance-service/shared/models"
	"github.com/ledgerbank/balance-service/shared/uow"
	"github.com/ledgerbank/balance-service/shared/utils"
)

// TransactionCommander defines the write-side operations used by TransactionHandler.
type TransactionCommander interface {
	AddTransaction(context.Context, cqrs.AddTransactionCommand) (*models.Transaction, error)
}

// TransactionQuerier defines the read-side operations used by TransactionHandler.
type TransactionQuerier interface {
	GetTransaction(context.Context, cqrs.GetTransactionQuery) (*models.TransactionView, error)
}

type TransactionHandler struct {
	uow      uow.Runner
	commands TransactionCommander
	queries  TransactionQuerier
}

// AddTransactionRequest accepts amount as a JSON number or a decimal string.
type AddTransactionRequest struct {
	UID       string          `json:"uid" validate:"required,max=36"`
	UserID    string          `json:"user_id" validate:"required,max=36"`
	Type      string          `json:"type" validate:"required,oneof=DEPOSIT WITHDRAW"`
	Amount    decimal.Decimal `json:"amount" validate:"required,gt=0"`
	CreatedAt string          `json:"created_at" validate:"required"`
}

func NewTransactionHandler(runner uow.Runner, commands TransactionCommander, queries TransactionQuerier) *TransactionHandler {
	return &TransactionHandler{uow: runner, commands: commands, queries: queries}
}

func (h *TransactionHandler) AddTransaction(c *gin.Context) {
	var req AddTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	createdAt, err := utils.ParseTimestamp(req.CreatedAt)
	if err != nil {
		middleware.RespondWithValidationError(c, []middleware.ValidationError{{
			Field:   "CreatedAt",
			Message: "Value must be an ISO 8601 timestamp",
			Type:    "timestamp",
		}})
		return
	}

	var tx *models.Transaction
	err = h.uow.WithinTransaction(c.Request.Context(), func(ctx context.Context) error {
		var err error
		tx, err = h.commands.AddTransaction(ctx, cqrs.AddTransactionCommand{
			UID:       req.UID,
			UserID:    req.UserID,
			Type:      models.TransactionType(req.Type),
			Amount:    req.Amount,
			CreatedAt: createdAt,
		})
		return err
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.NewTransactionView(tx))
}

func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	uid := c.Param("uid")

	var view *models.TransactionView
	err := h.uow.WithinReadOnlyTransaction(c.Request.Context(), func(ctx context.Context) error {
		var err error
		view, err = h.queries.GetTransaction(ctx, cqrs.GetTransactionQuery{UID: uid})
		return err
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
