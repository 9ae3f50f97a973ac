package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/docu-man/documan/internal/logging"
)

func setupIdempotencyApp(t *testing.T) (*fiber.App, *atomic.Int64) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	var handled atomic.Int64
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		handled.Add(1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"n": handled.Load()})
	})
	return app, &handled
}

func TestIdempotencyPassesThroughWithoutHeader(t *testing.T) {
	app, handled := setupIdempotencyApp(t)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader("{}"))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusCreated {
			t.Fatalf("status = %d, want 201", resp.StatusCode)
		}
	}
	if handled.Load() != 2 {
		t.Fatalf("handler ran %d times, want 2 (no key means no dedup)", handled.Load())
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	app, handled := setupIdempotencyApp(t)

	send := func() (int, map[string]int) {
		req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader("{}"))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		req.Header.Set(idempotencyKeyHeader, "abc123")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		var body map[string]int
		_ = json.Unmarshal(raw, &body)
		return resp.StatusCode, body
	}

	status, first := send()
	if status != fiber.StatusCreated {
		t.Fatalf("first status = %d", status)
	}
	status, second := send()
	if status != fiber.StatusCreated {
		t.Fatalf("replay status = %d", status)
	}
	if handled.Load() != 1 {
		t.Fatalf("handler ran %d times, want 1", handled.Load())
	}
	if first["n"] != second["n"] {
		t.Fatalf("replayed body %v differs from original %v", second, first)
	}
}

func TestIdempotencySkipsSafeMethods(t *testing.T) {
	app, handled := setupIdempotencyApp(t)
	app.Get("/read", func(c *fiber.Ctx) error {
		handled.Add(1)
		return c.SendString("ok")
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(fiber.MethodGet, "/read", nil)
		req.Header.Set(idempotencyKeyHeader, "same-key")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
	}
	if handled.Load() != 2 {
		t.Fatalf("handler ran %d times, want 2 (GETs are never deduplicated)", handled.Load())
	}
}
