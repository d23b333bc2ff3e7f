package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/searelay/searelay/internal/relay"
	"github.com/searelay/searelay/internal/version"
)

// StatusSource exposes relay activity counters.
type StatusSource interface {
	Snapshot() relay.Stats
}

// StatusHandler serves GET /status with version, uptime, and relay counters.
type StatusHandler struct {
	logger  *slog.Logger
	relay   StatusSource
	started time.Time
}

func NewStatusHandler(log *slog.Logger, source StatusSource) *StatusHandler {
	return &StatusHandler{
		logger:  log.With(slog.String("handler", "status")),
		relay:   source,
		started: time.Now().UTC(),
	}
}

// Register mounts GET /status on the Echo instance.
func (h *StatusHandler) Register(e *echo.Echo) {
	e.GET("/status", h.Status)
}

type statusResponse struct {
	Version string      `json:"version"`
	Uptime  string      `json:"uptime"`
	Relay   relay.Stats `json:"relay"`
}

// Status returns 200 with the relay's runtime state.
func (h *StatusHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		Version: version.GetInfo(),
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Relay:   h.relay.Snapshot(),
	})
}
