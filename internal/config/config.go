package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	OTP       OTPConfig
	Email     EmailConfig
	Upload    UploadConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins for cookie auth
}

type DatabaseConfig struct {
	Driver         string // postgres (lib/pq), pgx or pgdriver
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ChannelBinding string // "require" for Neon DB, empty for local
	MaxOpenConns   int
	MaxIdleConns   int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	// TokenType selects the access token format: paseto or jwt
	TokenType string
	// PASETO symmetric key (must be 32 bytes for v4.local)
	PasetoKey            []byte
	JWTSecret            []byte
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	// RefreshStore selects where refresh tokens live: redis or postgres
	RefreshStore     string
	AllowAdminSignup bool
}

type OTPConfig struct {
	TTL time.Duration
	// ExposeInResponse echoes the generated code in signup/resend responses
	ExposeInResponse bool
}

// EmailConfig is the mail relay configuration handed to the email service at startup.
type EmailConfig struct {
	Provider           string // smtp, resend or log
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	InsecureSkipVerify bool
	ResendAPIKey       string
	FromAddress        string
	FromName           string
	AppURL             string // Base URL for links embedded in emails
}

type UploadConfig struct {
	MaxPhotoBytes     int64
	MaxMultipartBytes int64
}

type RateLimitConfig struct {
	IPLimit        int
	IPWindow       time.Duration
	EmailCooldown  time.Duration
	VerifyAttempts int
	VerifyWindow   time.Duration
}

// Load reads configuration from environment variables.
// Values from .env and from the YAML file named by CONFIG_FILE fill in
// anything the process environment does not set.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAMLDefaults(path); err != nil {
			return nil, err
		}
	}

	env := getEnv("APP_ENV", "dev")

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             env,
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Driver:         getEnv("DB_DRIVER", "postgres"),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "quickcourt"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			ChannelBinding: getEnv("DB_CHANNEL_BINDING", ""),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getIntEnv("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			TokenType:            getEnv("AUTH_TOKEN_TYPE", "paseto"),
			PasetoKey:            []byte(getEnv("PASETO_KEY", "")),
			JWTSecret:            []byte(getEnv("JWT_SECRET", "")),
			AccessTokenDuration:  getDurationEnv("ACCESS_TOKEN_DURATION", 15*time.Minute),
			RefreshTokenDuration: getDurationEnv("REFRESH_TOKEN_DURATION", 7*24*time.Hour),
			RefreshStore:         getEnv("REFRESH_TOKEN_STORE", "redis"),
			AllowAdminSignup:     getBoolEnv("AUTH_ALLOW_ADMIN_SIGNUP", false),
		},
		OTP: OTPConfig{
			TTL:              getDurationEnv("OTP_TTL", 10*time.Minute),
			ExposeInResponse: getBoolEnv("OTP_EXPOSE_IN_RESPONSE", env == "dev"),
		},
		Email: EmailConfig{
			Provider:           getEnv("EMAIL_PROVIDER", "smtp"),
			SMTPHost:           getEnv("EMAIL_SERVER_HOST", "smtp.gmail.com"),
			SMTPPort:           getIntEnv("EMAIL_SERVER_PORT", 587),
			SMTPUser:           getEnv("EMAIL_SERVER_USER", ""),
			SMTPPassword:       getEnv("EMAIL_SERVER_PASSWORD", ""),
			InsecureSkipVerify: getBoolEnv("EMAIL_SERVER_INSECURE", false),
			ResendAPIKey:       getEnv("RESEND_API_KEY", ""),
			FromAddress:        getEnv("EMAIL_FROM", getEnv("EMAIL_SERVER_USER", "noreply@quickcourt.com")),
			FromName:           getEnv("EMAIL_FROM_NAME", "QuickCourt"),
			AppURL:             getEnv("APP_URL", "http://localhost:3000"),
		},
		Upload: UploadConfig{
			MaxPhotoBytes:     int64(getIntEnv("UPLOAD_MAX_PHOTO_BYTES", 5*1024*1024)),
			MaxMultipartBytes: int64(getIntEnv("UPLOAD_MAX_MULTIPART_BYTES", 32*1024*1024)),
		},
		RateLimit: RateLimitConfig{
			IPLimit:        getIntEnv("RATE_LIMIT_IP_REQUESTS", 10),
			IPWindow:       getDurationEnv("RATE_LIMIT_IP_WINDOW", 15*time.Minute),
			EmailCooldown:  getDurationEnv("RATE_LIMIT_EMAIL_COOLDOWN", 60*time.Second),
			VerifyAttempts: getIntEnv("RATE_LIMIT_VERIFY_ATTEMPTS", 10),
			VerifyWindow:   getDurationEnv("RATE_LIMIT_VERIFY_WINDOW", 15*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that would otherwise fail at first use
func (c *Config) Validate() error {
	switch c.Auth.TokenType {
	case "paseto":
		// Validate PASETO key length (must be 32 bytes for v4.local)
		if len(c.Auth.PasetoKey) != 32 {
			return fmt.Errorf("PASETO_KEY must be exactly 32 bytes, got %d", len(c.Auth.PasetoKey))
		}
	case "jwt":
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.Auth.JWTSecret))
		}
	default:
		return fmt.Errorf("unsupported AUTH_TOKEN_TYPE %q", c.Auth.TokenType)
	}

	switch c.Auth.RefreshStore {
	case "redis", "postgres":
	default:
		return fmt.Errorf("unsupported REFRESH_TOKEN_STORE %q", c.Auth.RefreshStore)
	}

	switch c.Database.Driver {
	case "postgres", "pgx", "pgdriver":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Email.Provider {
	case "smtp", "resend", "log":
	default:
		return fmt.Errorf("unsupported EMAIL_PROVIDER %q", c.Email.Provider)
	}
	if c.Email.Provider == "resend" && c.Email.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY is required when EMAIL_PROVIDER=resend")
	}

	if c.OTP.TTL <= 0 {
		return fmt.Errorf("OTP_TTL must be positive")
	}

	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// URL returns the connection settings as a postgres:// URL (used by pgdriver)
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

// loadYAMLDefaults reads a flat KEY: value YAML file and exports every key
// that is not already present in the environment.
func loadYAMLDefaults(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	for key, value := range values {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		var str string
		switch v := value.(type) {
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			str = strings.Join(parts, ",")
		default:
			str = fmt.Sprint(v)
		}
		if err := os.Setenv(key, str); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
