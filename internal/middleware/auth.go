package middleware

import (
	"strings"

	"inkwell/internal/auth"

	"github.com/gofiber/fiber/v2"
)

const identityLocal = "identity"

// IdentityResolver reads the session token from the Authorization header or
// the session cookie and stores the caller in locals. A missing or invalid
// token leaves the request anonymous; routes decide whether that is enough.
func IdentityResolver(tokens *auth.TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			raw = c.Cookies(auth.CookieName)
		}
		if raw == "" {
			return c.Next()
		}

		who, err := tokens.Parse(raw)
		if err != nil {
			return c.Next()
		}
		c.Locals(identityLocal, who)
		c.Locals("userID", who.UserID)
		return c.Next()
	}
}

// CurrentIdentity returns the caller resolved by IdentityResolver.
func CurrentIdentity(c *fiber.Ctx) auth.Identity {
	if who, ok := c.Locals(identityLocal).(auth.Identity); ok {
		return who
	}
	return auth.Anonymous
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
