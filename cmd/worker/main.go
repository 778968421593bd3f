package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brandcart/brandcart-backend/internal/idempotency"
	"github.com/brandcart/brandcart-backend/internal/inventory"
	"github.com/brandcart/brandcart-backend/internal/ledger"
	"github.com/brandcart/brandcart-backend/internal/orders"
	"github.com/brandcart/brandcart-backend/internal/products"
	"github.com/brandcart/brandcart-backend/internal/risk"
	"github.com/brandcart/brandcart-backend/internal/timeline"
	"github.com/brandcart/brandcart-backend/internal/trust"
	"github.com/brandcart/brandcart-backend/internal/users"
	"github.com/brandcart/brandcart-backend/internal/workers"
	"github.com/brandcart/brandcart-backend/pkg/config"
	"github.com/brandcart/brandcart-backend/pkg/db"
	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/logger"
	"github.com/brandcart/brandcart-backend/pkg/metrics"
	"github.com/brandcart/brandcart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if cfg.App.IsDev() {
		if err := dbClient.DB().AutoMigrate(models.All()...); err != nil {
			logg.Error(context.Background(), "failed to run dev migrations", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gdb := dbClient.DB()
	ordersRepo := orders.NewRepository(gdb)
	usersRepo := users.NewRepository(gdb)

	inventorySvc, err := inventory.NewService(gdb)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gdb))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	idempotencySvc, err := idempotency.NewService(gdb, time.Now)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency service", err)
		os.Exit(1)
	}
	timelineSvc, err := timeline.NewService(gdb)
	if err != nil {
		logg.Error(context.Background(), "failed to create timeline service", err)
		os.Exit(1)
	}
	trustSvc, err := trust.NewService(usersRepo, ordersRepo, timelineSvc, time.Now)
	if err != nil {
		logg.Error(context.Background(), "failed to create trust service", err)
		os.Exit(1)
	}
	counters, err := risk.NewRedisCounters(redisClient, time.Now)
	if err != nil {
		logg.Error(context.Background(), "failed to create risk counters", err)
		os.Exit(1)
	}
	guard, err := risk.NewGuard(cfg.Orders, counters)
	if err != nil {
		logg.Error(context.Background(), "failed to create risk guard", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orders.Deps{
		Tx:          dbClient,
		Repo:        ordersRepo,
		Users:       usersRepo,
		Products:    products.NewRepository(gdb),
		Inventory:   inventorySvc,
		Ledger:      ledgerSvc,
		Idempotency: idempotencySvc,
		Trust:       trustSvc,
		Guard:       guard,
		Timeline:    timelineSvc,
		Limiter:     redisClient,
		Counters:    counters,
		Cfg:         cfg.Orders,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	settlementJob, err := workers.NewSettlementJob(workers.SettlementJobParams{
		Logger:   logg,
		DB:       dbClient,
		Orders:   ordersRepo,
		Users:    usersRepo,
		Ledger:   ledgerSvc,
		Timeline: timelineSvc,
		Metrics:  jobMetrics,
		Interval: cfg.Workers.SettlementInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement job", err)
		os.Exit(1)
	}
	reserveReleaseJob, err := workers.NewReserveReleaseJob(workers.ReserveReleaseJobParams{
		Logger:     logg,
		DB:         dbClient,
		Orders:     ordersRepo,
		Ledger:     ledgerSvc,
		Timeline:   timelineSvc,
		Metrics:    jobMetrics,
		Interval:   cfg.Workers.ReserveReleaseInterval,
		HoldPeriod: cfg.Orders.ReserveHoldPeriod,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reserve release job", err)
		os.Exit(1)
	}
	returnRefundJob, err := workers.NewReturnRefundJob(workers.ReturnRefundJobParams{
		Logger:   logg,
		Orders:   ordersRepo,
		Service:  ordersSvc,
		Metrics:  jobMetrics,
		Interval: cfg.Workers.ReturnRefundInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create return refund job", err)
		os.Exit(1)
	}
	returnDeadlineJob, err := workers.NewReturnDeadlineJob(workers.ReturnDeadlineJobParams{
		Logger:   logg,
		Orders:   ordersRepo,
		Service:  ordersSvc,
		Metrics:  jobMetrics,
		Interval: cfg.Workers.ReturnDeadlineInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create return deadline job", err)
		os.Exit(1)
	}
	orderExpiryJob, err := workers.NewOrderExpiryJob(workers.OrderExpiryJobParams{
		Logger:         logg,
		Orders:         ordersRepo,
		Service:        ordersSvc,
		Metrics:        jobMetrics,
		Interval:       cfg.Workers.OrderExpiryInterval,
		PaymentTimeout: cfg.Orders.OnlinePaymentTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order expiry job", err)
		os.Exit(1)
	}
	probationJob, err := workers.NewProbationJob(workers.ProbationJobParams{
		Logger:   logg,
		Users:    usersRepo,
		Metrics:  jobMetrics,
		Interval: cfg.Workers.ProbationInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create probation job", err)
		os.Exit(1)
	}
	retentionJob, err := workers.NewRetentionJob(workers.RetentionJobParams{
		Logger:   logg,
		Store:    idempotencySvc,
		Metrics:  jobMetrics,
		Interval: cfg.Workers.RetentionInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create retention job", err)
		os.Exit(1)
	}

	registry := workers.NewRegistry(
		settlementJob,
		reserveReleaseJob,
		returnRefundJob,
		returnDeadlineJob,
		orderExpiryJob,
		probationJob,
		retentionJob,
	)

	service, err := workers.NewService(workers.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Metrics:  jobMetrics,
		Locks: func(name string) (workers.Lock, error) {
			return workers.NewRedisLock(redisClient, name, cfg.Workers.LockTTL)
		},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting background workers")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shut down gracefully")
}
