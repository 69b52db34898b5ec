package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ledgerbank/balance-service/shared/cqrs"
	"github.com/ledgerbank/balance-service/shared/middleware"
	"github.com/ledgerbank/balance-service/shared/models"
	"github.com/ledgerbank/balance-service/shared/uow"
	"github.com/ledgerbank/balance-service/shared/utils"
)

// UserCommander defines the write-side operations used by UserHandler.
type UserCommander interface {
	CreateUser(context.Context, cqrs.CreateUserCommand) (*models.User, error)
}

// UserQuerier defines the read-side operations used by UserHandler.
type UserQuerier interface {
	GetUser(context.Context, cqrs.GetUserQuery) (*models.User, error)
	GetBalance(context.Context, cqrs.GetBalanceQuery) (*models.Balance, error)
}

// UserHandler routes requests to the command or query service as appropriate.
// Every call runs inside its own unit of work.
type UserHandler struct {
	uow      uow.Runner
	commands UserCommander
	queries  UserQuerier
}

type CreateUserRequest struct {
	ID   string `json:"id" validate:"required,max=36"`
	Name string `json:"name" validate:"required,max=255"`
}

func NewUserHandler(runner uow.Runner, commands UserCommander, queries UserQuerier) *UserHandler {
	return &UserHandler{uow: runner, commands: commands, queries: queries}
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	var user *models.User
	err := h.uow.WithinTransaction(c.Request.Context(), func(ctx context.Context) error {
		var err error
		user, err = h.commands.CreateUser(ctx, cqrs.CreateUserCommand{ID: req.ID, Name: req.Name})
		return err
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.NewUserView(user))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	userID := c.Param("userId")

	var user *models.User
	err := h.uow.WithinReadOnlyTransaction(c.Request.Context(), func(ctx context.Context) error {
		var err error
		user, err = h.queries.GetUser(ctx, cqrs.GetUserQuery{UserID: userID})
		return err
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	if user == nil {
		middleware.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	}

	c.JSON(http.StatusOK, models.NewUserView(user))
}

// GetBalance serves the live balance, or the balance as of ?ts= when given.
func (h *UserHandler) GetBalance(c *gin.Context) {
	q := cqrs.GetBalanceQuery{UserID: c.Param("userId")}
	if raw, ok := c.GetQuery("ts"); ok {
		at, err := utils.ParseTimestamp(raw)
		if err != nil {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid timestamp")
			return
		}
		q.Timestamp = &at
	}

	var balance *models.Balance
	err := h.uow.WithinReadOnlyTransaction(c.Request.Context(), func(ctx context.Context) error {
		var err error
		balance, err = h.queries.GetBalance(ctx, q)
		return err
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewBalanceView(balance))
}
