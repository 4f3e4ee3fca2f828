package http

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/quickcourt/quickcourt-api/internal/httputil"
	"github.com/quickcourt/quickcourt-api/internal/logging"
)

const healthTimeout = 2 * time.Second

// Check probes one dependency
type Check func(ctx context.Context) error

// DatabaseCheck pings Postgres
func DatabaseCheck(db *bun.DB) Check {
	return db.PingContext
}

// RedisCheck pings Redis
func RedisCheck(client *redis.Client) Check {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health reports the reachability of the service's dependencies
type Health struct {
	checks map[string]Check
}

func NewHealth(checks map[string]Check) *Health {
	return &Health{checks: checks}
}

// ServeHTTP handles the health check
// @Summary      Health check
// @Description  Reports database and Redis reachability
// @Tags         health
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /health [get]
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			logger.Warn("health check failed", "check", name, "error", err.Error())
			resp.Checks[name] = "unavailable"
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	httputil.RespondJSON(w, resp, status)
}
