// Package api wires the HTTP surface of the chatbot service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Rrens/redbot/internal/access"
	"github.com/Rrens/redbot/internal/api/handler"
	customMiddleware "github.com/Rrens/redbot/internal/api/middleware"
	"github.com/Rrens/redbot/internal/config"
	"github.com/Rrens/redbot/internal/conversation"
	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/entitlement"
	"github.com/Rrens/redbot/internal/responder"
	"github.com/Rrens/redbot/internal/security"
	"github.com/Rrens/redbot/internal/service"
)

// Deps are the components the router serves
type Deps struct {
	Config        *config.Config
	Store         handler.Pinger
	Bots          domain.BotRepository
	Entitlements  *entitlement.Service
	Guard         *access.Guard
	Orchestrator  *responder.Orchestrator
	Conversations *conversation.Service
	Hub           *conversation.Hub
	QA            *service.QAService
	Enquiries     *service.EnquiryService

	// Optional
	Limiter     customMiddleware.Limiter
	HTTPMetrics *customMiddleware.HTTPMetrics
}

// NewRouter creates and configures the HTTP router
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// Widgets are embedded on customer sites; origins are enforced per bot
	// by the access guard.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	messages := security.NewMessageValidator()
	gate := handler.NewGate(d.Bots, d.Entitlements, d.Guard, cfg.Server.PublicHost)

	embedHandler := handler.NewEmbedHandler(gate, d.QA, d.Enquiries)
	chatHandler := handler.NewChatHandler(gate, d.Orchestrator, messages)
	liveHandler := handler.NewLiveHandler(gate, d.Orchestrator, d.Conversations, messages)
	wsHandler := handler.NewWSHandler(gate, d.Conversations, d.Hub, messages)

	limit := func(next http.Handler) http.Handler { return next }
	if d.Limiter != nil {
		limit = customMiddleware.NewRateLimitMiddleware(d.Limiter).Limit
	}
	instrument := d.HTTPMetrics.Handler

	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}

	// Sockets are long-lived and must not inherit the request timeout
	r.Get("/ws/chat/{publicKey}/{sessionID}", wsHandler.Serve)

	r.Group(func(r chi.Router) {
		if cfg.Server.MiddlewareTimeout > 0 {
			r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/health", handler.HealthCheck)
			r.Get("/ready", handler.ReadyCheck(d.Store))
		})

		r.With(limit, instrument("chat")).Post("/api/chat", chatHandler.Chat)

		r.Route("/embed", func(r chi.Router) {
			r.With(limit, instrument("widget")).Get("/widget/{publicKey}", embedHandler.Widget)
			r.With(instrument("config")).Get("/config/{publicKey}", embedHandler.Config)
			r.With(instrument("qa")).Get("/qa/{publicKey}", embedHandler.QA)
			r.With(limit, instrument("enquiry")).Post("/enquiry", embedHandler.Enquiry)

			r.Route("/live", func(r chi.Router) {
				r.With(limit, instrument("live_send")).Post("/send", liveHandler.Send)
				r.With(instrument("live_poll")).Get("/poll", liveHandler.Poll)
			})
		})
	})

	return r
}
