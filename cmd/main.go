package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/ledgerbank/balance-service/internal/balance"
	"github.com/ledgerbank/balance-service/internal/command"
	"github.com/ledgerbank/balance-service/internal/handler"
	"github.com/ledgerbank/balance-service/internal/natsrpc"
	"github.com/ledgerbank/balance-service/internal/projection"
	"github.com/ledgerbank/balance-service/internal/query"
	"github.com/ledgerbank/balance-service/internal/repository"
	"github.com/ledgerbank/balance-service/internal/repository/memstore"
	"github.com/ledgerbank/balance-service/shared/config"
	"github.com/ledgerbank/balance-service/shared/events"
	"github.com/ledgerbank/balance-service/shared/logger"
	"github.com/ledgerbank/balance-service/shared/models"
	sharedredis "github.com/ledgerbank/balance-service/shared/redis"
	"github.com/ledgerbank/balance-service/shared/uow"
)

const eventStreamMaxLen = 100_000

// storage is one backend seen through the interfaces the services consume.
type storage struct {
	runner uow.Runner
	users  interface {
		command.UserStore
		balance.UserStore
	}
	ledger interface {
		command.TransactionStore
		balance.LedgerStore
	}
	close func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.ServiceName, cfg.LogLevel, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("service stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.close() }()

	// Redis is optional: without it events are dropped and reads skip the cache.
	var publisher command.EventPublisher = events.NopPublisher{}
	var viewCache *sharedredis.ViewCache[models.TransactionView]
	var redis *sharedredis.Client
	if cfg.RedisAddr != "" {
		redis, err = sharedredis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer redis.Close()
		publisher = events.NewPublisher(redis.Client, eventStreamMaxLen)
		viewCache = sharedredis.NewViewCache[models.TransactionView](redis.Client, log, 0)
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	// CQRS: accessor, read repo, command + query services
	accessor := balance.NewAccessor(store.users, store.ledger)
	readRepo := repository.NewTransactionReadRepository(store.ledger, viewCache)

	userCommands := command.NewUserCommandService(store.users, publisher, log)
	txCommands := command.NewTransactionCommandService(store.ledger, accessor, publisher, log)
	userQueries := query.NewUserQueryService(store.users, accessor)
	txQueries := query.NewTransactionQueryService(readRepo)

	if redis != nil {
		consumer, _ := os.Hostname()
		subscriber := projection.NewTransactionProjector(readRepo, log).NewSubscriber(redis.Client, consumer)
		go func() {
			if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("projector stopped", zap.Error(err))
			}
		}()
	}

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer nc.Drain()
		if _, err := natsrpc.NewBalanceResponder(store.runner, userQueries, log).Subscribe(nc); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", natsrpc.BalanceSubject, err)
		}
		log.Info("nats balance responder ready", zap.String("subject", natsrpc.BalanceSubject))
	}

	router := handler.NewRouter(log,
		handler.NewUserHandler(store.runner, userCommands, userQueries),
		handler.NewTransactionHandler(store.runner, txCommands, txQueries),
	)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("balance service starting", zap.String("port", cfg.Port), zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		log.Warn("using the in-memory store; data is lost on exit")
		store := memstore.New()
		return &storage{runner: store, users: store, ledger: store, close: func() error { return nil }}, nil
	}

	db, err := repository.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.MigrateOnStart {
		if err := repository.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("database migrations applied")
	}
	return &storage{
		runner: repository.NewTxManager(db, log),
		users:  repository.NewUserWriteRepository(db),
		ledger: repository.NewTransactionWriteRepository(db),
		close:  db.Close,
	}, nil
}
