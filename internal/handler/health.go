package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/streamverse/catalog-api/internal/utils"
)

// APIVersion is reported by the health endpoint.
const APIVersion = "1.0"

// HealthHandler reports service liveness: store connectivity, uptime and
// API version. Load balancers poll it; 503 signals a degraded instance.
type HealthHandler struct {
	Ping    func(ctx context.Context) error
	started time.Time
}

func NewHealthHandler(ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{Ping: ping, started: time.Now().UTC()}
}

func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	dbStatus := "Connected"
	if err := h.Ping(ctx); err != nil {
		dbStatus = "Disconnected"
	}

	now := time.Now().UTC()
	uptime := now.Sub(h.started)
	info := echo.Map{
		"status":          "Healthy",
		"api_version":     APIVersion,
		"database_status": dbStatus,
		"uptime": echo.Map{
			"seconds": uptime.Seconds(),
			"minutes": uptime.Minutes(),
		},
		"timestamp_utc": now,
	}

	if dbStatus != "Connected" {
		info["status"] = "Unhealthy"
		return utils.JSON(c, http.StatusServiceUnavailable, info)
	}
	return utils.JSON(c, http.StatusOK, info)
}
