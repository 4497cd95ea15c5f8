package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db      Pinger
	timeout time.Duration
	logger  *zap.Logger
}

func NewHealthHandler(db Pinger, timeout time.Duration, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, timeout: timeout, logger: logger}
}

// HandleHealth handles GET /health
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("database ping failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "unhealthy",
			"database": "unreachable",
			"time":     time.Now(),
		})
	}

	return c.JSON(fiber.Map{
		"status":   "healthy",
		"database": "ok",
		"time":     time.Now(),
	})
}
