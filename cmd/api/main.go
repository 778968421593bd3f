package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/brandcart/brandcart-backend/api/routes"
	"github.com/brandcart/brandcart-backend/internal/idempotency"
	"github.com/brandcart/brandcart-backend/internal/inventory"
	"github.com/brandcart/brandcart-backend/internal/ledger"
	"github.com/brandcart/brandcart-backend/internal/orders"
	"github.com/brandcart/brandcart-backend/internal/products"
	"github.com/brandcart/brandcart-backend/internal/risk"
	"github.com/brandcart/brandcart-backend/internal/timeline"
	"github.com/brandcart/brandcart-backend/internal/trust"
	"github.com/brandcart/brandcart-backend/internal/users"
	"github.com/brandcart/brandcart-backend/internal/wallet"
	"github.com/brandcart/brandcart-backend/pkg/config"
	"github.com/brandcart/brandcart-backend/pkg/db"
	"github.com/brandcart/brandcart-backend/pkg/db/models"
	"github.com/brandcart/brandcart-backend/pkg/logger"
	"github.com/brandcart/brandcart-backend/pkg/payouts"
	"github.com/brandcart/brandcart-backend/pkg/razorpay"
	"github.com/brandcart/brandcart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
	productsRepo := products.NewRepository(gdb)

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

	ordersDeps := orders.Deps{
		Tx:          dbClient,
		Repo:        ordersRepo,
		Users:       usersRepo,
		Products:    productsRepo,
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
	}

	var paymentVerifier *razorpay.Client
	if cfg.Payments.KeyID != "" {
		paymentVerifier, err = razorpay.NewClient(context.Background(), cfg.Payments, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create payment gateway client", err)
			os.Exit(1)
		}
		ordersDeps.Gateway = paymentVerifier
	}

	ordersSvc, err := orders.NewService(ordersDeps)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	walletDeps := wallet.Deps{
		Tx:       dbClient,
		Repo:     wallet.NewRepository(gdb),
		Users:    usersRepo,
		Ledger:   ledgerSvc,
		Timeline: timelineSvc,
		Logger:   logg,
	}

	var payoutVerifier *payouts.Client
	if cfg.Payouts.KeyID != "" {
		payoutVerifier, err = payouts.NewClient(context.Background(), cfg.Payouts, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create payout client", err)
			os.Exit(1)
		}
		walletDeps.Provider = payoutVerifier
	}

	walletSvc, err := wallet.NewService(walletDeps)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	routerParams := routes.RouterParams{
		Cfg:         cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Orders:      ordersSvc,
		Wallet:      walletSvc,
		Idempotency: idempotencySvc,
	}
	if paymentVerifier != nil {
		routerParams.PaymentVerifier = paymentVerifier
	}
	if payoutVerifier != nil {
		routerParams.PayoutVerifier = payoutVerifier
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(routerParams),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shut down gracefully")
}
