package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const healthPingTimeout = 2 * time.Second

type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage,omitempty"`
}

type HealthHandler struct {
	Storage string
	Ping    func(ctx context.Context) error
}

// NewHealthHandler создает проверку здоровья с пингом хранилища.
func NewHealthHandler(storage string, ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{Storage: storage, Ping: ping}
}

// Health возвращает статус сервиса; недоступное хранилище дает 503.
func (h *HealthHandler) Health(c echo.Context) error {
	if h.Ping == nil {
		return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Storage: h.Storage})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
	defer cancel()

	if err := h.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "storage ping failed", slog.String("storage", h.Storage), slog.String("error", err.Error()))
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Storage: h.Storage})
	}

	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Storage: h.Storage})
}
