// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-forfait-service/internal/config"
	"marketplace-forfait-service/internal/domain/ports/adapter"
	"marketplace-forfait-service/internal/infra/api"
	pg "marketplace-forfait-service/internal/infra/db/postgres"
	"marketplace-forfait-service/internal/infra/gateway"
	"marketplace-forfait-service/internal/infra/logging"
	"marketplace-forfait-service/internal/infra/metrics"
	"marketplace-forfait-service/internal/infra/notify"
	red "marketplace-forfait-service/internal/infra/redis"
	"marketplace-forfait-service/internal/infra/sched"
	"marketplace-forfait-service/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, verbose)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	// ---- Repositories ----
	paymentRepo := pg.NewPaymentRepo(pool)
	forfaitRepo := pg.NewForfaitRepoCacheDecorator(pg.NewForfaitRepo(pool), redisClient)
	boostRepo := pg.NewProductForfaitRepo(pool)
	notifLogRepo := pg.NewNotificationLogRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Adapters ----
	camPay := gateway.NewCamPayClient(cfg.Gateway, logger)
	notifier := notify.NewDBNotifier(pool, logger)
	productCache := red.NewProductCacheInvalidator(redisClient, logger)

	var alerter adapter.OpsAlerter = notify.NoopAlerter{}
	if cfg.Alerts.TelegramToken != "" && cfg.Alerts.ChatID != 0 {
		tg, err := notify.NewTelegramAlerter(cfg.Alerts.TelegramToken, cfg.Alerts.ChatID, logger)
		if err != nil {
			log.Fatalf("telegram alerter: %v", err)
		}
		alerter = tg
	} else {
		logger.Warn().Msg("alerts.telegram_token not set; ops alerts disabled")
	}

	// ---- Use case ----
	paymentUC := usecase.NewPaymentUseCase(
		paymentRepo, forfaitRepo, boostRepo,
		camPay, notifier, productCache, txManager, logger,
	)

	// ---- Background workers ----
	reconciler := sched.NewPaymentReconciler(
		paymentUC, paymentRepo, alerter,
		cfg.Scheduler.ReconcileInterval,
		cfg.Scheduler.WebhookSLA,
		cfg.Scheduler.ReconcileWindow,
		cfg.Scheduler.PendingExpiry,
		logger,
	)
	go func() { _ = reconciler.Run(ctx) }()

	expiryWorker := sched.NewForfaitExpiryWorker(
		cfg.Scheduler.ExpiryCron,
		boostRepo, paymentRepo, notifLogRepo,
		notifier, productCache, alerter, logger,
	)
	go func() { _ = expiryWorker.Run(ctx) }()

	// ---- HTTP server ----
	authManager := api.NewAuthManager(cfg.Auth.JWTSecret)
	server := api.NewServer(cfg.Server, authManager, paymentUC, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
