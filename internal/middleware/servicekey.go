package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const serviceKeyHeader = "X-Service-Key"

// ServiceKey guards operator routes (refunds, audits). The presented key is
// compared against a bcrypt hash so the plaintext never lives in config.
func ServiceKey(hash []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(serviceKeyHeader)
		if key == "" || len(hash) == 0 {
			return fiber.NewError(http.StatusUnauthorized, "missing service key")
		}
		if err := bcrypt.CompareHashAndPassword(hash, []byte(key)); err != nil {
			return fiber.NewError(http.StatusForbidden, "invalid service key")
		}
		c.Locals("operator", true)
		return c.Next()
	}
}
