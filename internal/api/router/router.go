package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/seguroja/whatsapp-crm/internal/http/handlers"
	httpmiddleware "github.com/seguroja/whatsapp-crm/internal/http/middleware"
	"github.com/seguroja/whatsapp-crm/pkg/logging"
)

const defaultWebhookPath = "/webhook/evolution"

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	EvolutionWebhook   *handlers.EvolutionWebhookHandler
	AdminLeads         *handlers.AdminLeadsHandler
	MetricsHandler     http.Handler
	WebhookPath        string
	AdminAuthSecret    string
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	webhookPath := cfg.WebhookPath
	if webhookPath == "" {
		webhookPath = defaultWebhookPath
	}

	// Public endpoints (gateway webhook, health, metrics).
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.EvolutionWebhook != nil {
			public.Post(webhookPath, cfg.EvolutionWebhook.Handle)
			public.Get(webhookPath, cfg.EvolutionWebhook.HandleGet)
			// Evolution appends the event name when "webhook by events" is on.
			public.Post(webhookPath+"/{event}", cfg.EvolutionWebhook.Handle)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Dashboard API, JWT-protected when a secret is configured.
	if cfg.AdminLeads != nil {
		r.Route("/api", func(api chi.Router) {
			if cfg.AdminAuthSecret != "" {
				api.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			}
			api.Route("/leads", func(r chi.Router) {
				r.Get("/", cfg.AdminLeads.List)
				r.Get("/stats", cfg.AdminLeads.Stats)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.AdminLeads.Get)
					r.Get("/messages", cfg.AdminLeads.Messages)
					r.Post("/takeover", cfg.AdminLeads.Takeover)
					r.Patch("/status", cfg.AdminLeads.UpdateStatus)
				})
			})
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
