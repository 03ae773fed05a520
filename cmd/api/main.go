package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MyLiaread/Lia-backend/api/routes"
	"github.com/MyLiaread/Lia-backend/internal/authors"
	"github.com/MyLiaread/Lia-backend/internal/platform"
	"github.com/MyLiaread/Lia-backend/internal/sales"
	"github.com/MyLiaread/Lia-backend/internal/settlement"
	fedapaywebhook "github.com/MyLiaread/Lia-backend/internal/webhooks/fedapay"
	"github.com/MyLiaread/Lia-backend/pkg/config"
	"github.com/MyLiaread/Lia-backend/pkg/db"
	"github.com/MyLiaread/Lia-backend/pkg/fedapay"
	"github.com/MyLiaread/Lia-backend/pkg/logger"
	"github.com/MyLiaread/Lia-backend/pkg/metrics"
	"github.com/MyLiaread/Lia-backend/pkg/migrate"
	"github.com/MyLiaread/Lia-backend/pkg/redis"
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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
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

	fedapayClient, err := fedapay.NewClient(context.Background(), cfg.FedaPay, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create fedapay client", err)
		os.Exit(1)
	}

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)

	salesService, err := sales.NewService(sales.ServiceParams{
		Repo:        sales.NewRepository(dbClient.DB()),
		Provider:    fedapayClient,
		CallbackURL: cfg.FedaPay.CallbackURL(),
		Metrics:     settlementMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
		os.Exit(1)
	}

	authorShare, platformShare, err := cfg.Revenue.Shares()
	if err != nil {
		logg.Error(context.Background(), "invalid revenue shares", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		SalesRepo:     sales.NewRepository(dbClient.DB()),
		AuthorsRepo:   authors.NewRepository(dbClient.DB()),
		LedgerRepo:    platform.NewRepository(dbClient.DB()),
		TxRunner:      dbClient,
		AuthorShare:   authorShare,
		PlatformShare: platformShare,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	webhookService, err := fedapaywebhook.NewService(fedapaywebhook.ServiceParams{
		Settlement: settlementService,
		Metrics:    settlementMetrics,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := fedapaywebhook.NewIdempotencyGuard(redisClient, cfg.FedaPay.IdempotencyTTL, "fedapay-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"fedapay_env": fedapayClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, salesService, fedapayClient, webhookService, webhookGuard),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
