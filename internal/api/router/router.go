package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atelielash/agenda-api/internal/availability"
	"github.com/atelielash/agenda-api/internal/http/middleware"
	"github.com/atelielash/agenda-api/internal/payments"
	"github.com/atelielash/agenda-api/pkg/logging"
)

// Config wires the handlers into the route table.
type Config struct {
	Checkout *payments.CheckoutHandler
	Status   *payments.StatusHandler
	Webhook  *payments.WebhookHandler
	Slots    *availability.Handler

	CORSAllowedOrigins []string
	MetricsHandler     http.Handler
	Logger             *logging.Logger
}

// New builds the chi router with the service routes.
func New(cfg Config) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Post("/gerar-pagamento", cfg.Checkout.CreateCheckout)
	r.Post("/webhook", cfg.Webhook.Handle)
	r.Get("/horarios-disponiveis", cfg.Slots.ListSlots)
	r.Get("/status-pagamento", cfg.Status.GetStatus)

	return r
}
