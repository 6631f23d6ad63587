package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ukydev/fleet-replay/internal/auth"
	"github.com/ukydev/fleet-replay/internal/middleware"
	"github.com/ukydev/fleet-replay/internal/models"
)

// RouterOptions wires the HTTP surface.
type RouterOptions struct {
	Control *ControlHandler
	// Auth and AuthService are nil when authentication is disabled.
	Auth        *AuthHandler
	AuthService *auth.Service
	RateLimiter *middleware.RateLimitMiddleware
	CORSOrigins []string
}

// Login attempts allowed per client IP and window.
const (
	loginAttempts = 10
	loginWindow   = time.Minute
)

// NewRouter builds the chi router for the control surface.
func NewRouter(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		})
	})

	authEnabled := opts.AuthService != nil
	var authMW *middleware.AuthMiddleware
	limiter := opts.RateLimiter
	if authEnabled {
		authMW = middleware.NewAuthMiddleware(opts.AuthService)
		if limiter == nil {
			limiter = middleware.NewRateLimitMiddleware()
		}
	}

	// require returns the permission check for action, or a pass-through
	// when authentication is off.
	require := func(action string) func(http.Handler) http.Handler {
		if !authEnabled {
			return func(next http.Handler) http.Handler { return next }
		}
		return authMW.RequirePermission(action)
	}

	c := opts.Control
	r.Route("/api", func(r chi.Router) {
		if authEnabled {
			r.Use(authMW.Authenticate)
			if opts.Auth != nil {
				r.With(limiter.RateLimit(loginAttempts, loginWindow)).Post("/auth/login", opts.Auth.Login)
			}
		}

		r.Group(func(r chi.Router) {
			r.Use(require(models.ActionViewMetrics))
			r.Get("/simulation", c.GetSimulation)
			r.Get("/fleet", c.GetFleet)
			r.Get("/trips", c.GetTrips)
			r.Get("/trips/{tripId}", c.GetTrip)
		})

		r.Group(func(r chi.Router) {
			r.Use(require(models.ActionControlPlayback))
			r.Post("/simulation/play", c.Play)
			r.Post("/simulation/pause", c.Pause)
			r.Post("/simulation/reset", c.Reset)
			r.Put("/simulation/speed", c.ChangeSpeed)
			r.Post("/simulation/skip", c.SkipTo)
		})
	})

	return r
}
