// Package natsrpc answers balance requests over NATS request/reply.
package natsrpc

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/ledgerbank/balance-service/shared/apperr"
	"github.com/ledgerbank/balance-service/shared/cqrs"
	"github.com/ledgerbank/balance-service/shared/models"
	"github.com/ledgerbank/balance-service/shared/uow"
	"github.com/ledgerbank/balance-service/shared/utils"
)

const (
	BalanceSubject    = "ledger.balance.get"
	BalanceQueueGroup = "ledger-balance"
)

// Error codes carried in the reply's error field.
const (
	codeUserNotFound     = "user_not_found"
	codeInvalidTimestamp = "invalid_timestamp"
	codeBadRequest       = "bad_request"
	codeInternal         = "internal"
)

type BalanceQuerier interface {
	GetBalance(ctx context.Context, q cqrs.GetBalanceQuery) (*models.Balance, error)
}

type balanceRequest struct {
	UserID string `json:"user_id"`
	TS     string `json:"ts,omitempty"`
}

type errorReply struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// BalanceResponder serves GetBalance on BalanceSubject. Instances subscribed
// with the same queue group share the load.
type BalanceResponder struct {
	uow     uow.Runner
	queries BalanceQuerier
	logger  *zap.Logger
	timeout time.Duration
}

func NewBalanceResponder(runner uow.Runner, queries BalanceQuerier, logger *zap.Logger) *BalanceResponder {
	return &BalanceResponder{
		uow:     runner,
		queries: queries,
		logger:  logger.With(zap.String("subject", BalanceSubject)),
		timeout: 5 * time.Second,
	}
}

func (r *BalanceResponder) Subscribe(nc *nats.Conn) (*nats.Subscription, error) {
	return nc.QueueSubscribe(BalanceSubject, BalanceQueueGroup, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := msg.Respond(r.handle(ctx, msg.Data)); err != nil {
			r.logger.Warn("failed to send reply", zap.Error(err))
		}
	})
}

func (r *BalanceResponder) handle(ctx context.Context, data []byte) []byte {
	var req balanceRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return r.fail(codeBadRequest, "request must be a JSON object")
	}
	if !utils.ValidateID(req.UserID) {
		return r.fail(codeBadRequest, "user_id is required and at most 36 characters")
	}

	q := cqrs.GetBalanceQuery{UserID: req.UserID}
	if req.TS != "" {
		at, err := utils.ParseTimestamp(req.TS)
		if err != nil {
			return r.fail(codeBadRequest, "ts must be an ISO 8601 timestamp")
		}
		q.Timestamp = &at
	}

	var bal *models.Balance
	err := r.uow.WithinReadOnlyTransaction(ctx, func(ctx context.Context) error {
		var err error
		bal, err = r.queries.GetBalance(ctx, q)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrUserNotFound):
		return r.fail(codeUserNotFound, "User not found")
	case errors.Is(err, apperr.ErrInvalidTimestamp):
		return r.fail(codeInvalidTimestamp, apperr.ErrInvalidTimestamp.Error())
	case apperr.IsDomain(err):
		return r.fail(codeBadRequest, err.Error())
	default:
		r.logger.Error("balance request failed", zap.String("user_id", req.UserID), zap.Error(err))
		return r.fail(codeInternal, "Internal server error")
	}

	reply, err := json.Marshal(models.NewBalanceView(bal))
	if err != nil {
		r.logger.Error("failed to encode reply", zap.Error(err))
		return r.fail(codeInternal, "Internal server error")
	}
	return reply
}

func (r *BalanceResponder) fail(code, message string) []byte {
	reply, _ := json.Marshal(errorReply{Error: code, Message: message})
	return reply
}
