// Package middleware holds the Fiber middleware owned by this service.
// Request logging and recovery come from Fiber's stock middleware; only
// authentication is ours.
package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/contribscout/server/internal/models"
)

// profileKey is the Locals key under which Auth stores the caller profile.
const profileKey = "userProfile"

// ProfileResolver maps an API token to the caller's ranking profile. The
// Mongo-backed user repository implements it; the OAuth/session machinery
// that issues tokens lives in a separate service.
type ProfileResolver interface {
	FindProfileByToken(ctx context.Context, token string) (models.UserProfile, error)
}

// Auth returns a middleware that requires a bearer token and resolves it
// to a UserProfile, stored in the request Locals for handlers.
func Auth(resolver ProfileResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		profile, err := resolver.FindProfileByToken(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(profileKey, profile)
		return c.Next()
	}
}

// ProfileFrom returns the authenticated caller's profile, or a zero
// profile when the route skipped Auth.
func ProfileFrom(c *fiber.Ctx) models.UserProfile {
	if profile, ok := c.Locals(profileKey).(models.UserProfile); ok {
		return profile
	}
	return models.UserProfile{}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
