package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/lockgate/internal/auth"
	"github.com/BradenHooton/lockgate/internal/handlers"
	"github.com/BradenHooton/lockgate/internal/middleware"
	"github.com/BradenHooton/lockgate/internal/models"
	pkghttp "github.com/BradenHooton/lockgate/pkg/http"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// HealthCheck probes one dependency for /health
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Dependencies collects everything the router serves
type Dependencies struct {
	AuthHandler    *handlers.AuthHandler
	AccountHandler *handlers.AccountHandler
	AuditHandler   *handlers.AuditHandler
	AdminHandler   *handlers.AdminHandler

	TokenManager *auth.TokenManager
	UserRepo     auth.UserRepository
	IPConfig     *pkghttp.IPConfig

	LoginRequestsPerMinute int
	AdminRequestsPerMinute int

	Metrics      http.Handler
	HealthChecks []HealthCheck
	Env          string
	Logger       *slog.Logger
}

// NewRouter builds the chi router with global middleware and all routes
func NewRouter(deps Dependencies) chi.Router {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: deps.Env}))
	router.Use(middleware.SecureLogger(deps.Logger))
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(60 * time.Second))

	router.Get("/health", healthHandler(deps.HealthChecks))
	if deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	RegisterRoutes(router, deps)
	return router
}

// RegisterRoutes registers the auth and admin routes
func RegisterRoutes(router chi.Router, deps Dependencies) {
	loginLimit := middleware.RateLimitByIP(middleware.RateLimitConfig{
		RequestsPerMinute: deps.LoginRequestsPerMinute,
		IPConfig:          deps.IPConfig,
	})

	// Public routes - no authentication required
	router.With(loginLimit).Post("/auth/login", deps.AuthHandler.Login)

	// Admin-only routes
	router.Route("/admin", func(r chi.Router) {
		r.Use(auth.AuthMiddleware(deps.TokenManager))
		r.Use(auth.RequireRole(deps.UserRepo, models.RoleAdmin))
		r.Use(middleware.RateLimitByUserID(middleware.RateLimitConfig{
			RequestsPerMinute: deps.AdminRequestsPerMinute,
			IPConfig:          deps.IPConfig,
		}))

		r.Route("/accounts/{id}", func(r chi.Router) {
			r.Get("/lockout", deps.AccountHandler.GetLockoutStatus)
			r.Post("/unlock", deps.AccountHandler.Unlock)
			r.Get("/audit", deps.AuditHandler.GetAccountAuditTrail)
			r.Put("/status", deps.AccountHandler.UpdateStatus)
		})

		r.Get("/lockouts/stats", deps.AdminHandler.GetLockoutStats)
		r.Get("/lockouts/activity", deps.AdminHandler.GetRecentActivity)
	})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func healthHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "healthy", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				resp.Checks[c.Name] = "down"
				resp.Status = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "up"
		}

		pkghttp.WriteJSON(w, status, resp)
	}
}
