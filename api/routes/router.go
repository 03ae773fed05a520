package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MyLiaread/Lia-backend/api/controllers"
	webhookcontrollers "github.com/MyLiaread/Lia-backend/api/controllers/webhooks"
	"github.com/MyLiaread/Lia-backend/api/middleware"
	"github.com/MyLiaread/Lia-backend/internal/sales"
	fedapaywebhook "github.com/MyLiaread/Lia-backend/internal/webhooks/fedapay"
	"github.com/MyLiaread/Lia-backend/pkg/config"
	"github.com/MyLiaread/Lia-backend/pkg/db"
	"github.com/MyLiaread/Lia-backend/pkg/fedapay"
	"github.com/MyLiaread/Lia-backend/pkg/logger"
	"github.com/MyLiaread/Lia-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	salesService sales.Service,
	fedapayClient *fedapay.Client,
	webhookService *fedapaywebhook.Service,
	webhookGuard *fedapaywebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/pay", controllers.CreatePayment(salesService, logg))
		r.Post("/fedapay/callback", webhookcontrollers.FedaPayWebhook(webhookService, fedapayClient, webhookGuard, logg))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
