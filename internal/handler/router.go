package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ledgerbank/balance-service/shared/middleware"
)

// NewRouter registers every route behind the request-id, logging and
// recovery middleware.
func NewRouter(logger *zap.Logger, users *UserHandler, transactions *TransactionHandler) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.LoggingMiddleware(logger), middleware.Recovery(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/users", users.CreateUser)
		v1.GET("/users/:userId", users.GetUser)
		v1.GET("/users/:userId/balance", users.GetBalance)

		v1.PUT("/transactions", transactions.AddTransaction)
		v1.GET("/transactions/:uid", transactions.GetTransaction)
	}

	return router
}
