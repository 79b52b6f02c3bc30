// Package middleware provides authentication, logging, tracing and rate
// limiting middleware for the HTTP server.
package middleware

import (
	"context"
	"strings"

	"feedhub/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TokenVerifier resolves a bearer token to the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (uint, error)
}

// AuthRequired rejects requests without a valid "Authorization: Bearer <token>"
// header. On success the user ID is stored in locals ("userID") and in the
// user context under UserIDKey.
func AuthRequired(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return models.NewUnauthenticatedError("Not authenticated.")
		}

		userID, err := verifier.Verify(token)
		if err != nil {
			return err
		}

		c.Locals("userID", userID)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// UserID returns the authenticated user ID set by AuthRequired.
func UserID(c *fiber.Ctx) (uint, bool) {
	uid, ok := c.Locals("userID").(uint)
	return uid, ok
}
