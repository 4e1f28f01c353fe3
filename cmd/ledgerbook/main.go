package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerbook/ledgerbook/internal/app"
	"github.com/ledgerbook/ledgerbook/internal/auth"
	"github.com/ledgerbook/ledgerbook/internal/customers"
	"github.com/ledgerbook/ledgerbook/internal/ledger"
	"github.com/ledgerbook/ledgerbook/internal/observability"
	"github.com/ledgerbook/ledgerbook/internal/platform/db"
	"github.com/ledgerbook/ledgerbook/internal/shared"
	"github.com/ledgerbook/ledgerbook/jobs"
)

// receiptDispatcher forwards committed entries to the job queue so the
// receipt goes out without holding up the request.
type receiptDispatcher struct {
	client *jobs.Client
	logger *slog.Logger
}

func (d receiptDispatcher) HandleEntryPosted(ctx context.Context, evt ledger.EntryPostedEvent) error {
	if d.client == nil {
		return nil
	}
	_, err := d.client.EnqueueSendReceipt(ctx, jobs.SendReceiptPayload{
		EntryID:      evt.EntryID,
		ShopID:       evt.ShopID,
		CustomerID:   evt.CustomerID,
		EntryType:    string(evt.Type),
		Amount:       evt.Amount.String(),
		BalanceAfter: evt.BalanceAfter.String(),
		OccurredAt:   evt.OccurredAt,
	})
	if err != nil && d.logger != nil {
		d.logger.Warn("enqueue receipt", slog.Any("error", err))
	}
	return err
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authMiddleware := auth.Middleware{Service: authService, Logger: logger}

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	metrics := observability.NewMetrics()

	summaryCache := ledger.NewSummaryCache(redisClient, cfg.SummaryCacheTTL)
	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(
		ledgerRepo,
		auditLogger,
		idempotencyStore,
		summaryCache,
		receiptDispatcher{client: jobsClient, logger: logger},
	).WithMetrics(metrics)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	customersRepo := customers.NewRepository(dbpool)
	customersService := customers.NewService(customersRepo)
	customersHandler := customers.NewHandler(logger, customersService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthMiddleware:   authMiddleware,
		LedgerHandler:    ledgerHandler,
		CustomersHandler: customersHandler,
		JobsHandler:      jobsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
