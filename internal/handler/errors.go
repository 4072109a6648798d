package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/contribscout/server/internal/models"
)

// toHTTPError maps the service error taxonomy onto HTTP statuses.
// Transient upstream failures come back as 503 so clients know to retry
// with backoff; invariant violations stay 500 and should page, not retry.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidParameter):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, models.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrSearchUnavailable),
		errors.Is(err, models.ErrIndexUnavailable),
		errors.Is(err, models.ErrProviderUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
