package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mpeters88/chatdesk/internal/agent"
	"github.com/mpeters88/chatdesk/internal/http/handlers"
	httpmiddleware "github.com/mpeters88/chatdesk/internal/http/middleware"
	"github.com/mpeters88/chatdesk/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger *logging.Logger

	ChatHandler        *handlers.ChatHandler
	AdminKnowledge     *handlers.AdminKnowledgeHandler
	AdminAvailability  *handlers.AdminAvailabilityHandler
	AgentHub           *agent.Hub
	MetricsHandler     http.Handler
	HealthCheck        http.HandlerFunc
	APIKeys            httpmiddleware.KeyResolver
	AdminAuthSecret    string
	CORSAllowedOrigins []string
}

// New creates the chi router with all routes configured.
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

	// Public endpoints.
	r.Group(func(public chi.Router) {
		if cfg.HealthCheck != nil {
			public.Get("/health", cfg.HealthCheck)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Widget endpoints, authenticated by per-org API key.
	if cfg.ChatHandler != nil && cfg.APIKeys != nil {
		r.Group(func(widget chi.Router) {
			widget.Use(httpmiddleware.APIKeyAuth(cfg.APIKeys))
			widget.Post("/api/chat/message", cfg.ChatHandler.HandleMessage)
			if cfg.AgentHub != nil {
				cfg.AgentHub.RegisterRoutes(widget)
			}
		})
	}

	// Admin endpoints, authenticated by JWT.
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		admin.Route("/orgs/{orgID}", func(org chi.Router) {
			if cfg.AdminKnowledge != nil {
				org.Get("/knowledge", cfg.AdminKnowledge.GetDocuments)
				org.Put("/knowledge", cfg.AdminKnowledge.PutDocuments)
				org.Get("/faqs", cfg.AdminKnowledge.GetFAQs)
				org.Put("/faqs", cfg.AdminKnowledge.PutFAQs)
				org.Post("/cache/purge", cfg.AdminKnowledge.PurgeCache)
			}
			if cfg.AdminAvailability != nil {
				org.Get("/availability", cfg.AdminAvailability.GetWindows)
				org.Put("/availability", cfg.AdminAvailability.PutWindows)
			}
		})
	})

	return r
}
