package http

import (
	"net/http"
	"time"

	"github.com/atinyakov/favkeeper/internal/middleware"
	"github.com/atinyakov/favkeeper/internal/models"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions tunes the public endpoints.
type RouterOptions struct {
	// AuthRate is the number of register/login requests per second allowed
	// per client IP; AuthBurst is the bucket size.
	AuthRate  float64
	AuthBurst int

	// Metrics, when set, observes every request and MetricsHandler is
	// served on GET /metrics.
	Metrics        *middleware.Metrics
	MetricsHandler http.Handler
}

// DefaultRouterOptions returns the limits used when none are configured.
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{AuthRate: 1, AuthBurst: 5}
}

// NewRouter constructs and returns an HTTP handler that serves the account
// API under /api/user.
//
// Routes:
//
//	POST   /api/user/register         → authHandler.Register
//	POST   /api/user/login            → authHandler.Login
//	GET    /api/user/favourites       → list favourites   (token required)
//	PUT    /api/user/favourites/{id}  → add favourite     (token required)
//	DELETE /api/user/favourites/{id}  → remove favourite  (token required)
//	GET    /api/user/history          → list history      (token required)
//	PUT    /api/user/history/{id}     → add to history    (token required)
//	DELETE /api/user/history/{id}     → remove from history (token required)
//
// Middleware chain (applied in order): CORS, panic recovery, metrics,
// JSON content-type enforcement, request logging. Register and login are
// rate limited per IP.
func NewRouter(
	authHandler *AuthHandler,
	collectionHandler *CollectionHandler,
	tokens middleware.TokenParser,
	logger *zap.Logger,
	opts RouterOptions,
) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))
	r.Use(chiMiddleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Handler)
	}
	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))

	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	limiter := middleware.NewRateLimiter(opts.AuthRate, opts.AuthBurst, 10*time.Minute)

	r.Route("/api/user", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter.Handler)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.TokenAuth(tokens))
			mountCollection(r, "/favourites", models.Favourites, collectionHandler)
			mountCollection(r, "/history", models.History, collectionHandler)
		})
	})

	return r
}

func mountCollection(r chi.Router, path string, kind models.CollectionKind, h *CollectionHandler) {
	r.Get(path, h.List(kind))
	r.Put(path+"/{id}", h.Add(kind))
	r.Delete(path+"/{id}", h.Remove(kind))
}
