package handlers

import (
	"errors"
	"log/slog"

	"cms/internal/services"

	"github.com/gofiber/fiber/v2"
)

// errorStatus maps service errors to HTTP status codes.
var errorStatus = map[error]int{
	services.ErrUnauthenticated:    fiber.StatusUnauthorized,
	services.ErrInvalidCredentials: fiber.StatusUnauthorized,
	services.ErrInvalidToken:       fiber.StatusUnauthorized,
	services.ErrInactiveUser:       fiber.StatusUnauthorized,
	services.ErrForbidden:          fiber.StatusForbidden,
	services.ErrArticleNotFound:    fiber.StatusNotFound,
	services.ErrUserNotFound:       fiber.StatusNotFound,
	services.ErrEmailTaken:         fiber.StatusConflict,
	services.ErrNicknameTaken:      fiber.StatusConflict,
}

// writeError renders err as a JSON error response. Unknown errors are logged
// and reported with a generic message.
func writeError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  verr.Fields,
		})
	}

	for target, status := range errorStatus {
		if errors.Is(err, target) {
			return c.Status(status).JSON(fiber.Map{
				"message": target.Error(),
			})
		}
	}

	slog.ErrorContext(c.UserContext(), "request failed", "method", c.Method(), "path", c.Path(), "err", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
	})
}

func badBody(c *fiber.Ctx, err error) error {
	slog.Debug("error parsing request body", "path", c.Path(), "err", err)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}
