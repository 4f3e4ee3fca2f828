package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	_ "github.com/quickcourt/quickcourt-api/docs" // Swagger docs
	"github.com/quickcourt/quickcourt-api/internal/auth"
	"github.com/quickcourt/quickcourt-api/internal/booking"
	"github.com/quickcourt/quickcourt-api/internal/config"
	"github.com/quickcourt/quickcourt-api/internal/database"
	"github.com/quickcourt/quickcourt-api/internal/email"
	httpServer "github.com/quickcourt/quickcourt-api/internal/http"
	"github.com/quickcourt/quickcourt-api/internal/logging"
	"github.com/quickcourt/quickcourt-api/internal/ratelimit"
	"github.com/quickcourt/quickcourt-api/internal/user"
	"github.com/quickcourt/quickcourt-api/internal/venue"
	"github.com/quickcourt/quickcourt-api/internal/verification"
)

// @title           QuickCourt API
// @version         1.0
// @description     Sports facility booking: venue discovery, OTP-verified signup, venue uploads and bookings.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"token_type", cfg.Auth.TokenType,
		"refresh_store", cfg.Auth.RefreshStore,
		"email_provider", cfg.Email.Provider,
	)

	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Repositories
	userRepo := user.NewRepository(db)
	verificationRepo := verification.NewRepository(db)
	signupStore := auth.NewSignupStore(db, userRepo, verificationRepo)
	refreshRepo, err := auth.NewRefreshTokenRepository(cfg.Auth.RefreshStore, db, redisClient)
	if err != nil {
		return err
	}
	passwordResetRepo := auth.NewPasswordResetRepository(redisClient)

	rateLimiter := ratelimit.NewLimiter(redisClient, ratelimit.Config{
		IPLimit:        cfg.RateLimit.IPLimit,
		IPWindow:       cfg.RateLimit.IPWindow,
		EmailCooldown:  cfg.RateLimit.EmailCooldown,
		VerifyAttempts: cfg.RateLimit.VerifyAttempts,
		VerifyWindow:   cfg.RateLimit.VerifyWindow,
	})

	tokenService, err := newTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	emailService, err := email.NewService(cfg.Email, cfg.OTP.TTL, email.NewTransport(cfg.Email, logger))
	if err != nil {
		return fmt.Errorf("failed to initialize email service: %w", err)
	}

	// Services
	authService := auth.NewService(
		userRepo,
		verificationRepo,
		signupStore,
		refreshRepo,
		passwordResetRepo,
		tokenService,
		emailService,
		logger,
		auth.Options{
			AccessTokenDuration:  cfg.Auth.AccessTokenDuration,
			RefreshTokenDuration: cfg.Auth.RefreshTokenDuration,
			OTPTTL:               cfg.OTP.TTL,
			AllowAdminSignup:     cfg.Auth.AllowAdminSignup,
		},
	)
	venueService := venue.NewService(venue.NewRepository(db), logger, cfg.Upload.MaxPhotoBytes)
	bookingService := booking.NewService(booking.NewRepository(db), logger)

	// Handlers
	handlers := httpServer.Handlers{
		Auth: auth.NewHandler(authService, rateLimiter, logger, auth.HandlerOptions{
			SecureCookies:   !cfg.Server.IsDevelopment(),
			AccessDuration:  cfg.Auth.AccessTokenDuration,
			RefreshDuration: cfg.Auth.RefreshTokenDuration,
			ExposeOTP:       cfg.OTP.ExposeInResponse,
		}),
		Venue:   venue.NewHandler(venueService, cfg.Upload.MaxPhotoBytes, cfg.Upload.MaxMultipartBytes),
		Booking: booking.NewHandler(bookingService),
		Health: httpServer.NewHealth(map[string]httpServer.Check{
			"database": httpServer.DatabaseCheck(db),
			"redis":    httpServer.RedisCheck(redisClient),
		}),
	}

	router := httpServer.NewRouter(cfg, handlers, auth.NewMiddleware(tokenService), httpServer.NewMetrics(), logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		// Emails for requests that already completed are still in flight
		waitForEmails(ctx, authService, logger)
	}

	return nil
}

func newTokenService(cfg config.AuthConfig) (auth.TokenService, error) {
	switch cfg.TokenType {
	case "jwt":
		return auth.NewJWTService(cfg.JWTSecret)
	default:
		return auth.NewPasetoService(cfg.PasetoKey)
	}
}

func waitForEmails(ctx context.Context, authService *auth.Service, logger *logging.Logger) {
	done := make(chan struct{})
	go func() {
		authService.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("shutdown timeout reached with emails still sending")
	}
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
