package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/southerncrossbullion/bullion-backend/api/controllers"
	webhookcontrollers "github.com/southerncrossbullion/bullion-backend/api/controllers/webhooks"
	"github.com/southerncrossbullion/bullion-backend/api/middleware"
	haltsvc "github.com/southerncrossbullion/bullion-backend/internal/halt"
	paymentsvc "github.com/southerncrossbullion/bullion-backend/internal/payment"
	locksvc "github.com/southerncrossbullion/bullion-backend/internal/pricelock"
	pricingsvc "github.com/southerncrossbullion/bullion-backend/internal/pricing"
	paymentwebhook "github.com/southerncrossbullion/bullion-backend/internal/webhooks/payment"
	"github.com/southerncrossbullion/bullion-backend/pkg/config"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Gatherer prometheus.Gatherer

	Pricing      pricingsvc.Service
	Locks        locksvc.Service
	Payments     paymentsvc.Service
	Halts        haltsvc.Service
	WebhookSvc   webhookcontrollers.PaymentWebhookService
	WebhookGuard *paymentwebhook.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/pricing", controllers.GetPricing(deps.Pricing, logg))

		r.Route("/locks", func(r chi.Router) {
			r.Post("/", controllers.CreateLocks(deps.Locks, logg))
			r.Get("/{sessionID}", controllers.GetLocks(deps.Locks, logg))
			r.Delete("/{sessionID}", controllers.ReleaseLocks(deps.Locks, logg))
		})

		r.Post("/payments/validate", controllers.ValidatePayment(deps.Payments, logg))

		r.Post("/webhooks/payment", webhookcontrollers.PaymentWebhook(
			deps.WebhookSvc, cfg.Payment.WebhookSecret, deps.WebhookGuard, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminActor(logg))

		r.Route("/halt", func(r chi.Router) {
			r.Get("/", controllers.ListHaltStates(deps.Halts, logg))
			r.Get("/{symbol}", controllers.GetHaltState(deps.Halts, logg))
			r.Get("/{symbol}/events", controllers.ListHaltEvents(deps.Halts, logg))
			r.Put("/{symbol}", controllers.SetHaltState(deps.Halts, logg))
		})

		r.Route("/pricing-config", func(r chi.Router) {
			r.Get("/", controllers.GetPricingConfig(deps.Pricing, logg))
			r.Put("/", controllers.UpdatePricingConfig(deps.Pricing, logg))
		})
	})

	return r
}
