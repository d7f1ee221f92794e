package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/gymguard-dashboard/internal/activity"
	"github.com/wolfman30/gymguard-dashboard/internal/admin"
	"github.com/wolfman30/gymguard-dashboard/internal/campaigns"
	httpmiddleware "github.com/wolfman30/gymguard-dashboard/internal/http/middleware"
	"github.com/wolfman30/gymguard-dashboard/internal/members"
	"github.com/wolfman30/gymguard-dashboard/internal/watchlist"
	"github.com/wolfman30/gymguard-dashboard/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Watchlist          *watchlist.Handler
	Members            *members.Handler
	Campaigns          *campaigns.Handler
	Activity           *activity.Handler
	Admin              *admin.Handler
	Health             *HealthHandler
	MetricsHandler     http.Handler
	SessionSecret      string
	CORSAllowedOrigins []string
	// ActionLimiter throttles mutating watchlist calls per user (optional).
	ActionLimiter *httpmiddleware.ActionLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	// Public endpoints
	r.Group(func(public chi.Router) {
		if cfg.Health != nil {
			public.Get("/health", cfg.Health.ServeHTTP)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Dashboard routes act as the signed-in user.
	r.Group(func(app chi.Router) {
		app.Use(httpmiddleware.SessionAuth(cfg.SessionSecret))

		if cfg.Watchlist != nil {
			app.Route("/watchlist", func(wl chi.Router) {
				if cfg.ActionLimiter != nil {
					wl.Use(cfg.ActionLimiter.LimitMutations)
				}
				// Outreach calls are bounded by the outreach client timeout.
				wl.Use(middleware.Timeout(60 * time.Second))
				cfg.Watchlist.RegisterRoutes(wl)
			})
		}
		if cfg.Members != nil {
			app.Route("/members", cfg.Members.RegisterRoutes)
		}
		if cfg.Campaigns != nil {
			// No timeout here: the progress websocket is long-lived.
			app.Route("/campaigns", cfg.Campaigns.RegisterRoutes)
		}
		if cfg.Activity != nil {
			app.Group(cfg.Activity.RegisterRoutes)
		}
		if cfg.Admin != nil {
			app.Route("/admin", cfg.Admin.RegisterRoutes)
		}
	})

	return r
}
