package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/lamsahq/lamsa-backend/api/routes"
	"github.com/lamsahq/lamsa-backend/internal/audit"
	"github.com/lamsahq/lamsa-backend/internal/bookings"
	"github.com/lamsahq/lamsa-backend/internal/credits"
	"github.com/lamsahq/lamsa-backend/internal/notifications"
	"github.com/lamsahq/lamsa-backend/internal/payments"
	"github.com/lamsahq/lamsa-backend/internal/referrals"
	"github.com/lamsahq/lamsa-backend/internal/wallet"
	"github.com/lamsahq/lamsa-backend/internal/webhooks"
	"github.com/lamsahq/lamsa-backend/pkg/config"
	"github.com/lamsahq/lamsa-backend/pkg/db"
	"github.com/lamsahq/lamsa-backend/pkg/enums"
	"github.com/lamsahq/lamsa-backend/pkg/logger"
	"github.com/lamsahq/lamsa-backend/pkg/migrate"
	"github.com/lamsahq/lamsa-backend/pkg/moyasar"
	"github.com/lamsahq/lamsa-backend/pkg/pubsub"
	"github.com/lamsahq/lamsa-backend/pkg/redis"
	"github.com/lamsahq/lamsa-backend/pkg/tabby"
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

	moyasarClient, err := moyasar.NewClient(context.Background(), cfg.Moyasar, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap moyasar client", err)
		os.Exit(1)
	}
	tabbyClient, err := tabby.NewClient(context.Background(), cfg.Tabby, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap tabby client", err)
		os.Exit(1)
	}

	notifier, err := buildNotifier(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap notifications", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	auditService, err := audit.NewService(audit.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}
	walletService, err := wallet.NewService(wallet.ServiceParams{
		Repo:              wallet.NewRepository(gormDB),
		TransactionRunner: dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}
	creditService, err := credits.NewService(credits.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create credit service", err)
		os.Exit(1)
	}
	referralService, err := referrals.NewService(referrals.ServiceParams{
		Repo:   referrals.NewRepository(gormDB),
		Wallet: walletService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create referral service", err)
		os.Exit(1)
	}

	bookingRepo := bookings.NewRepository(gormDB)
	paymentRepo := payments.NewRepository(gormDB)
	gateways := payments.GatewayRegistry{
		enums.PaymentMethodMoyasar: payments.NewMoyasarGateway(moyasarClient),
		enums.PaymentMethodTabby:   payments.NewTabbyGateway(tabbyClient),
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:              paymentRepo,
		Bookings:          bookingRepo,
		Wallet:            walletService,
		Credits:           creditService,
		Referrals:         referralService,
		Audit:             auditService,
		Gateways:          gateways,
		TransactionRunner: dbClient,
		Notifier:          notifier,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	webhookService, err := webhooks.NewService(webhooks.ServiceParams{
		Repo:              webhooks.NewRepository(gormDB),
		Payments:          paymentRepo,
		Gateways:          gateways,
		Bookings:          bookingRepo,
		Referrals:         referralService,
		Audit:             auditService,
		TransactionRunner: dbClient,
		Notifier:          notifier,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:         cfg,
			Logger:         logg,
			DBPinger:       dbClient,
			Redis:          redisClient,
			PaymentService: paymentService,
			WalletService:  walletService,
			CreditService:  creditService,
			WebhookService: webhookService,
			AuditService:   auditService,
			MoyasarClient:  moyasarClient,
			TabbyClient:    tabbyClient,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildNotifier wires the Pub/Sub publisher when a project is configured and
// falls back to a dropping publisher otherwise.
func buildNotifier(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*notifications.Publisher, error) {
	if cfg.GCP.ProjectID == "" {
		return notifications.NewPublisher(nil, logg)
	}
	psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, err
	}
	return notifications.NewPublisher(psClient.NotificationPublisher(), logg)
}
