package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/docu-man/documan/internal/identity"
	"github.com/docu-man/documan/internal/token"
)

const tokenHeader = "token"

// TokenAuth validates the custom `token` header the document API uses in
// place of a bearer scheme, and stores the resolved user on the context.
func TokenAuth(issuer *token.Issuer, repo identity.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(tokenHeader)
		if raw == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing token header")
		}
		claims, err := issuer.Verify(raw)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid or expired token")
		}
		user, err := repo.FindByMobile(c.UserContext(), claims.Mobile)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "unknown user")
		}

		c.Locals("user_id", user.ID)
		c.Locals("mobile", user.Mobile)
		c.Locals("user_name", user.Name)
		return c.Next()
	}
}
