package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/calendar-booking-agent/internal/agent"
	httpmiddleware "github.com/wolfman30/calendar-booking-agent/internal/http/middleware"
	"github.com/wolfman30/calendar-booking-agent/internal/webchat"
	"github.com/wolfman30/calendar-booking-agent/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	AgentHandler       *agent.Handler
	AdminHandler       *agent.AdminHandler
	WebchatHandler     *webchat.Handler
	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string

	// RateLimitRPS <= 0 disables rate limiting on the chat endpoints.
	RateLimitRPS   float64
	RateLimitBurst int

	// Context bounds background work such as the rate limiter sweeper.
	Context context.Context
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.AgentHandler.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Chat surface
	r.Group(func(chat chi.Router) {
		if cfg.RateLimitRPS > 0 {
			chat.Use(httpmiddleware.RateLimit(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst))
		}
		chat.Post("/chat", cfg.AgentHandler.Chat)
		chat.Post("/confirm-booking", cfg.AgentHandler.ConfirmBooking)
		chat.Get("/sessions/{sessionID}/booking.ics", cfg.AgentHandler.BookingInvite)
		if cfg.WebchatHandler != nil {
			chat.Get("/ws/chat", cfg.WebchatHandler.HandleWebSocket)
		}
	})

	// Operator routes. An empty secret keeps them mounted but answering 401.
	if cfg.AdminHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Use(operatorAccessLog(cfg.Logger))
			admin.Get("/sessions/{sessionID}", cfg.AdminHandler.GetSession)
			admin.Get("/bookings", cfg.AdminHandler.ListBookings)
			admin.Get("/audit", cfg.AdminHandler.ListAudit)
			admin.Get("/stats", cfg.AdminHandler.Stats)
		})
	}

	return r
}

// operatorAccessLog records which operator read which admin route.
func operatorAccessLog(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger != nil {
				if claims, ok := httpmiddleware.OperatorFromContext(r.Context()); ok {
					logger.Info("admin access",
						"operator", claims.Subject,
						"method", r.Method,
						"path", r.URL.Path,
						"request_id", middleware.GetReqID(r.Context()),
					)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
