package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lamsahq/lamsa-backend/api/controllers"
	webhookcontrollers "github.com/lamsahq/lamsa-backend/api/controllers/webhooks"
	"github.com/lamsahq/lamsa-backend/api/middleware"
	"github.com/lamsahq/lamsa-backend/internal/audit"
	"github.com/lamsahq/lamsa-backend/internal/credits"
	"github.com/lamsahq/lamsa-backend/internal/payments"
	"github.com/lamsahq/lamsa-backend/internal/wallet"
	"github.com/lamsahq/lamsa-backend/internal/webhooks"
	"github.com/lamsahq/lamsa-backend/pkg/config"
	"github.com/lamsahq/lamsa-backend/pkg/db"
	"github.com/lamsahq/lamsa-backend/pkg/logger"
	"github.com/lamsahq/lamsa-backend/pkg/moyasar"
	"github.com/lamsahq/lamsa-backend/pkg/redis"
	"github.com/lamsahq/lamsa-backend/pkg/tabby"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DBPinger       db.Pinger
	Redis          *redis.Client
	PaymentService payments.Service
	WalletService  wallet.Service
	CreditService  credits.Service
	WebhookService webhooks.Service
	AuditService   audit.Service
	MoyasarClient  *moyasar.Client
	TabbyClient    *tabby.Client
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DBPinger, params.Redis))
	})
	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Handle("/metrics", promhttp.Handler())

	guardTTL := cfg.Webhooks.ReplayGuardTTL
	r.Route("/webhooks", func(r chi.Router) {
		r.Use(middleware.WebhookRateLimit(params.Redis, cfg.Webhooks.RateLimit, cfg.Webhooks.RateLimitWindow, logg))
		r.Post("/moyasar", webhookcontrollers.MoyasarWebhook(params.WebhookService, params.MoyasarClient, params.Redis, guardTTL, logg))
		r.Post("/tabby", webhookcontrollers.TabbyWebhook(params.WebhookService, params.TabbyClient, params.Redis, guardTTL, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/payments", func(r chi.Router) {
			r.Get("/", controllers.UserPayments(params.PaymentService, logg))
			r.Post("/charge", controllers.PaymentCharge(params.PaymentService, logg))
			r.Post("/{paymentId}/refund", controllers.PaymentRefund(params.PaymentService, logg))
			r.Post("/{paymentId}/verify", controllers.PaymentVerify(params.WebhookService, logg))
			r.Get("/{paymentId}", controllers.PaymentDetail(params.PaymentService, logg))
		})

		r.Get("/bookings/{bookingId}/payments", controllers.BookingPayments(params.PaymentService, logg))

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletBalance(params.WalletService, logg))
			r.Get("/transactions", controllers.WalletTransactions(params.WalletService, logg))
		})

		r.Route("/credits", func(r chi.Router) {
			r.Get("/", controllers.CreditBalance(params.CreditService, logg))
			r.Get("/history", controllers.CreditHistory(params.CreditService, logg))
			r.Post("/grant", controllers.CreditGrant(params.CreditService, logg))
		})

		r.Get("/webhook-events/failed", controllers.FailedWebhookEvents(params.WebhookService, logg))
		r.Get("/audit/{resourceType}/{resourceId}", controllers.AuditTrail(params.AuditService, logg))
	})

	return r
}
