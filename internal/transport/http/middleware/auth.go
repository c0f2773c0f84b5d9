package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tracecmd/backend/internal/config"
)

// AdminAuth guards task and command routes with the configured admin key.
// An empty key disables the check.
func AdminAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := cfg.Auth.AdminAPIKey
		if apiKey == "" {
			return c.Next()
		}

		if subtle.ConstantTimeCompare([]byte(requestToken(c)), []byte(apiKey)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}
		return c.Next()
	}
}

// requestToken reads the admin token from X-Admin-Token, a bearer
// Authorization header, or the token query parameter used by websocket clients.
func requestToken(c *fiber.Ctx) string {
	if token := c.Get("X-Admin-Token"); token != "" {
		return token
	}
	if token, ok := strings.CutPrefix(c.Get("Authorization"), "Bearer "); ok && token != "" {
		return token
	}
	return c.Query("token")
}
