package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"recruitflow/assessment-api/internal/apperrors"
)

const (
	sessionHeader = "X-Session-ID"
	sessionQuery  = "session_id"
)

// sessionID reads the caller's flow session from the header, then the query string. An empty
// value selects the default session.
func sessionID(c *fiber.Ctx) string {
	if id := c.Get(sessionHeader); id != "" {
		return id
	}
	return c.Query(sessionQuery)
}

func respondError(c *fiber.Ctx, err error) error {
	code := apperrors.HTTPStatus(err)
	message := err.Error()
	if code == fiber.StatusInternalServerError {
		message = "internal server error"
	}
	return c.Status(code).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
		"code":  fiber.StatusBadRequest,
	})
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("invalid %s", name)
	}
	return uint(id), nil
}

// ErrorHandler is the fiber fallback for errors returned from handlers and middleware.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiberErr.Message,
			"code":  fiberErr.Code,
		})
	}
	return respondError(c, err)
}
