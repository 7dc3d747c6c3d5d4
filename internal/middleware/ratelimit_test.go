package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpendRateLimit(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", c.Get("X-Test-User"))
		return c.Next()
	})
	app.Use(SpendRateLimit(cache, 2))
	app.Post("/spend", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	call := func(user string) int {
		req := httptest.NewRequest(fiber.MethodPost, "/spend", nil)
		req.Header.Set("X-Test-User", user)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusCreated, call("alice"))
	assert.Equal(t, fiber.StatusCreated, call("alice"))
	assert.Equal(t, fiber.StatusTooManyRequests, call("alice"))
	assert.Equal(t, fiber.StatusCreated, call("bob"))
	assert.Greater(t, mr.TTL("rl:spend:alice"), time.Duration(0))
}
