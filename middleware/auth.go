package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/CiviTrack/civitrack-back/api/auth"
)

const actorLocal = "actor"

// Authenticate resolves a Bearer token into actor claims stored on the
// request context. Requests without a token pass through anonymous; route
// guards decide what requires identity.
func Authenticate(manager *auth.JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			return c.Next()
		}

		claims, err := manager.VerifyToken(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"ok":    false,
				"error": "invalid or expired token",
			})
		}
		c.Locals(actorLocal, claims)
		return c.Next()
	}
}

// Actor returns the authenticated actor claims, or nil for anonymous
// requests.
func Actor(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(actorLocal).(*auth.Claims)
	return claims
}

// RequireRole rejects requests whose actor does not carry one of the allowed
// roles.
func RequireRole(roles ...auth.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := Actor(c)
		if claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"ok":    false,
				"error": "authentication required",
			})
		}
		for _, role := range roles {
			if claims.Role == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"ok":    false,
			"error": "insufficient role",
		})
	}
}
