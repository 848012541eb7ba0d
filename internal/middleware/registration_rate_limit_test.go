package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func setupRateLimitApp(t *testing.T, maxPerMin int) (*fiber.App, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New()
	app.Post("/members", RegistrationRateLimit(cache, maxPerMin), func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}

	return app, cleanup
}

func registerOnce(t *testing.T, app *fiber.App, username string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/members", strings.NewReader(`{"username":"`+username+`"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestRegistrationRateLimitBlocksAfterThreshold(t *testing.T) {
	app, cleanup := setupRateLimitApp(t, 3)
	defer cleanup()

	for i := 0; i < 3; i++ {
		if code := registerOnce(t, app, "alice"); code != fiber.StatusCreated {
			t.Fatalf("request %d: expected %d got %d", i, fiber.StatusCreated, code)
		}
	}
	if code := registerOnce(t, app, "alice"); code != fiber.StatusTooManyRequests {
		t.Fatalf("expected %d got %d", fiber.StatusTooManyRequests, code)
	}

	// A different username keeps its own counter.
	if code := registerOnce(t, app, "bob"); code != fiber.StatusCreated {
		t.Fatalf("unrelated username blocked: %d", code)
	}
}

func TestRegistrationRateLimitWithoutCacheIsNoop(t *testing.T) {
	app := fiber.New()
	app.Post("/members", RegistrationRateLimit(nil, 1), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/members", strings.NewReader(`{"username":"alice"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusCreated {
			t.Fatalf("no-op limiter blocked request %d: %d", i, resp.StatusCode)
		}
	}
}
