package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/quickcourt/quickcourt-api/internal/auth"
	"github.com/quickcourt/quickcourt-api/internal/booking"
	"github.com/quickcourt/quickcourt-api/internal/config"
	"github.com/quickcourt/quickcourt-api/internal/httputil"
	"github.com/quickcourt/quickcourt-api/internal/logging"
	"github.com/quickcourt/quickcourt-api/internal/user"
	"github.com/quickcourt/quickcourt-api/internal/venue"
)

// Handlers groups the feature handlers mounted by the router
type Handlers struct {
	Auth    *auth.Handler
	Venue   *venue.Handler
	Booking *booking.Handler
	Health  http.Handler
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, authMiddleware *auth.Middleware, metrics *Metrics, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.Compress(5))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondErrorWithCode(w, "not found", "NOT_FOUND", http.StatusNotFound)
	})

	r.Method(http.MethodGet, "/health", h.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Swagger UI is not routed at all outside development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled", "path", "/swagger/")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Auth.Signup)
		r.Post("/resend-otp", h.Auth.ResendOTP)
		r.Post("/verify-otp", h.Auth.VerifyOTP)
		r.Post("/login", h.Auth.Login)
		r.Post("/refresh", h.Auth.Refresh)
		r.Post("/logout", h.Auth.Logout)
		r.Post("/forgot-password", h.Auth.ForgotPassword)
		r.Post("/reset-password", h.Auth.ResetPassword)

		r.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
	})

	r.Route("/venues", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.OptionalAuth)
			r.Get("/", h.Venue.List)
			r.Get("/{id}", h.Venue.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Use(auth.RequireRole(user.RoleFacilityOwner))
			r.Post("/upload", h.Venue.Upload)
		})
	})

	r.Route("/bookings", func(r chi.Router) {
		r.With(authMiddleware.RequireAuth).Get("/", h.Booking.List)
		r.With(authMiddleware.OptionalAuth).Post("/quote", h.Booking.Quote)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Use(auth.RequireRole(user.RoleAdmin))
		r.Patch("/venues/{id}/status", h.Venue.UpdateStatus)
	})

	return r
}
