package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Identity trusts bearer tokens minted by the external identity layer. The
// token's subject becomes the user_id local every wallet handler reads.
func Identity(secret []byte) fiber.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		if len(secret) == 0 {
			return fiber.NewError(http.StatusUnauthorized, "identity not configured")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])

		claims := &jwt.RegisteredClaims{}
		if _, err := parser.ParseWithClaims(tokenStr, claims, keyFunc); err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return fiber.NewError(http.StatusUnauthorized, "token expired")
			}
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		if claims.Subject == "" {
			return fiber.NewError(http.StatusUnauthorized, "token has no subject")
		}

		c.Locals("user_id", claims.Subject)
		return c.Next()
	}
}
