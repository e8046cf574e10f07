package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/healthylife-gp-assistant/internal/conversation"
	"github.com/wolfman30/healthylife-gp-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/healthylife-gp-assistant/internal/http/middleware"
	"github.com/wolfman30/healthylife-gp-assistant/internal/webchat"
	"github.com/wolfman30/healthylife-gp-assistant/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	SidebarHandler      *handlers.SidebarHandler
	WebChatHandler      *webchat.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// MessageLimiter throttles turn submissions per client IP (optional).
	MessageLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	if cfg.SidebarHandler != nil {
		r.Get("/health", cfg.SidebarHandler.HealthCheck)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.WebChatHandler != nil {
		r.Get("/ws", cfg.WebChatHandler.HandleWebSocket)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Compress(5))

		if cfg.ConversationHandler != nil {
			api.Post("/sessions", cfg.ConversationHandler.CreateSession)
			api.Route("/sessions/{id}", func(session chi.Router) {
				session.Get("/", cfg.ConversationHandler.GetSession)
				if cfg.MessageLimiter != nil {
					session.With(httpmiddleware.RateLimit(cfg.MessageLimiter)).Post("/messages", cfg.ConversationHandler.PostMessage)
				} else {
					session.Post("/messages", cfg.ConversationHandler.PostMessage)
				}
			})
		}
		if cfg.SidebarHandler != nil {
			api.Get("/appointments", cfg.SidebarHandler.ListAppointments)
			api.Get("/practitioners", cfg.SidebarHandler.ListPractitioners)
			api.Get("/surgery", cfg.SidebarHandler.SurgeryInfo)
		}
	})

	return r
}
