package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brandcart/brandcart-backend/api/controllers"
	webhookcontrollers "github.com/brandcart/brandcart-backend/api/controllers/webhooks"
	"github.com/brandcart/brandcart-backend/api/middleware"
	"github.com/brandcart/brandcart-backend/internal/idempotency"
	internalorders "github.com/brandcart/brandcart-backend/internal/orders"
	"github.com/brandcart/brandcart-backend/internal/wallet"
	"github.com/brandcart/brandcart-backend/pkg/config"
	"github.com/brandcart/brandcart-backend/pkg/db"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	"github.com/brandcart/brandcart-backend/pkg/logger"
	"github.com/brandcart/brandcart-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Cfg             *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           *redis.Client
	Orders          internalorders.Service
	Wallet          wallet.Service
	Idempotency     idempotency.Service
	PaymentVerifier webhookcontrollers.WebhookVerifier
	PayoutVerifier  webhookcontrollers.WebhookVerifier
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Cfg
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	apiPolicy := middleware.RateLimitPolicy{
		Scope:  "api",
		Limit:  300,
		Window: time.Minute,
	}
	var limiter middleware.FixedWindowLimiter
	if params.Redis != nil {
		limiter = params.Redis
	}

	var pingers []db.Pinger
	if params.DB != nil {
		pingers = append(pingers, params.DB)
	}
	if params.Redis != nil {
		pingers = append(pingers, params.Redis)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers...))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payment", webhookcontrollers.PaymentWebhook(params.Orders, params.PaymentVerifier, logg))
		r.Post("/courier", webhookcontrollers.CourierWebhook(params.Orders, params.Idempotency, cfg.Courier, logg))
		r.Post("/payout", webhookcontrollers.PayoutWebhook(params.Wallet, params.PayoutVerifier, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		r.Use(middleware.RateLimit(apiPolicy, limiter, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.ActorRoleBuyer, logg))
				r.Post("/", controllers.CreateOrder(params.Orders, logg))
				r.Post("/{orderId}/confirm-delivery", controllers.ConfirmDelivery(params.Orders, logg))
				r.Post("/{orderId}/return", controllers.RequestReturn(params.Orders, logg))
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.ActorRoleSeller, logg))
				r.Post("/{orderId}/ship", controllers.ShipOrder(params.Orders, logg))
				r.Post("/{orderId}/return/decision", controllers.ReturnDecision(params.Orders, logg))
			})
			r.Get("/{orderId}", controllers.OrderDetail(params.Orders, logg))
			r.Get("/{orderId}/timeline", controllers.OrderTimeline(params.Orders, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.ActorRoleSeller, logg))
			r.Get("/", controllers.WalletSummary(params.Wallet, logg))
			r.Get("/entries", controllers.WalletEntries(params.Wallet, logg))
			r.Get("/payouts", controllers.WalletPayouts(params.Wallet, logg))
			r.Post("/payouts/emergency", controllers.EmergencyPayout(params.Wallet, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		r.Use(middleware.RequireRole(enums.ActorRoleAdmin, logg))
		r.Use(middleware.RateLimit(apiPolicy, limiter, logg))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Post("/rto", controllers.MarkRTO(params.Orders, logg))
			r.Post("/delivery-otp", controllers.GenerateDeliveryOTP(params.Orders, logg))
			r.Post("/pickup/schedule", controllers.SchedulePickup(params.Orders, logg))
			r.Post("/pickup/complete", controllers.CompletePickup(params.Orders, logg))
		})
	})

	return r
}
