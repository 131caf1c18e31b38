package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"accessgate-backend/config"
)

func limiterConfig() *config.Config {
	return &config.Config{
		RateLimitEnabled: true,
		DefaultBucket:    config.RateLimitBucket{Limit: 3, Window: time.Minute},
		AuthBucket:       config.RateLimitBucket{Limit: 2, Window: time.Minute},
		RegisterBucket:   config.RateLimitBucket{Limit: 1, Window: time.Hour},
		PasswordBucket:   config.RateLimitBucket{Limit: 1, Window: time.Hour},
	}
}

func newLimitedApp(cfg *config.Config, store WindowStore, now func() time.Time) *fiber.App {
	rl := NewRateLimiter(cfg, store, zap.NewNop())
	if now != nil {
		rl.now = now
	}

	app := fiber.New()
	app.Use(rl.Handle())
	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }
	app.Get("/api/things", ok)
	app.Post("/api/login", ok)
	app.Post("/api/register", ok)
	app.Post("/api/password-reset", ok)
	return app
}

func doGet(t *testing.T, app *fiber.App, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	rec.Code = resp.StatusCode
	for k, v := range resp.Header {
		rec.Header()[k] = v
	}
	body, _ := io.ReadAll(resp.Body)
	rec.Body.Write(body)
	return rec
}

func TestRateLimiter_Disabled(t *testing.T) {
	cfg := limiterConfig()
	cfg.RateLimitEnabled = false
	app := newLimitedApp(cfg, NewLocalWindowStore(), nil)

	resp := doGet(t, app, "/api/things", nil)
	assert.Equal(t, fiber.StatusOK, resp.Code)
	assert.Empty(t, resp.Header().Get(headerLimit))
}

func TestRateLimiter_QuotaHeaders(t *testing.T) {
	app := newLimitedApp(limiterConfig(), NewLocalWindowStore(), nil)

	resp := doGet(t, app, "/api/things", nil)
	assert.Equal(t, fiber.StatusOK, resp.Code)
	assert.Equal(t, "3", resp.Header().Get(headerLimit))
	assert.Equal(t, "2", resp.Header().Get(headerRemaining))

	_, err := time.Parse(time.RFC3339, resp.Header().Get(headerReset))
	assert.NoError(t, err, "reset header must be RFC3339")

	resp = doGet(t, app, "/api/things", nil)
	assert.Equal(t, "1", resp.Header().Get(headerRemaining))
}

func TestRateLimiter_RejectsOverQuota(t *testing.T) {
	app := newLimitedApp(limiterConfig(), NewLocalWindowStore(), nil)

	for i := 0; i < 3; i++ {
		resp := doGet(t, app, "/api/things", nil)
		require.Equal(t, fiber.StatusOK, resp.Code)
	}

	resp := doGet(t, app, "/api/things", nil)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "0", resp.Header().Get(headerRemaining))
	assert.NotEmpty(t, resp.Header().Get(fiber.HeaderRetryAfter))

	var body struct {
		Error      string `json:"error"`
		Message    string `json:"message"`
		RetryAfter int    `json:"retryAfter"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "too_many_requests", body.Error)
	assert.Contains(t, body.Message, "3 requests")
	assert.GreaterOrEqual(t, body.RetryAfter, 0)
}

func TestRateLimiter_AuthBucketIsStricter(t *testing.T) {
	store := NewLocalWindowStore()
	app := newLimitedApp(limiterConfig(), store, nil)

	post := func(path string) int {
		req := httptest.NewRequest("POST", path, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, post("/api/login"))
	assert.Equal(t, fiber.StatusOK, post("/api/login"))
	assert.Equal(t, fiber.StatusTooManyRequests, post("/api/login"))

	// Registration and password reset have their own (hourly) buckets.
	assert.Equal(t, fiber.StatusOK, post("/api/register"))
	assert.Equal(t, fiber.StatusTooManyRequests, post("/api/register"))
	assert.Equal(t, fiber.StatusOK, post("/api/password-reset"))
	assert.Equal(t, fiber.StatusTooManyRequests, post("/api/password-reset"))

	// The default bucket is unaffected by auth exhaustion.
	resp := doGet(t, app, "/api/things", nil)
	assert.Equal(t, fiber.StatusOK, resp.Code)
}

func TestRateLimiter_Whitelist(t *testing.T) {
	cfg := limiterConfig()
	cfg.DefaultBucket.Limit = 1
	cfg.Whitelist = []string{"10.1.2.3"}
	app := newLimitedApp(cfg, NewLocalWindowStore(), nil)

	for i := 0; i < 5; i++ {
		resp := doGet(t, app, "/api/things", map[string]string{fiber.HeaderXForwardedFor: "10.1.2.3"})
		assert.Equal(t, fiber.StatusOK, resp.Code)
		assert.Empty(t, resp.Header().Get(headerLimit), "whitelisted clients skip accounting")
	}
}

func TestRateLimiter_APIKeySeparatesClients(t *testing.T) {
	cfg := limiterConfig()
	cfg.DefaultBucket.Limit = 1
	app := newLimitedApp(cfg, NewLocalWindowStore(), nil)

	shared := map[string]string{fiber.HeaderXForwardedFor: "10.0.0.1", headerAPIKey: "agk_first_key"}
	resp := doGet(t, app, "/api/things", shared)
	require.Equal(t, fiber.StatusOK, resp.Code)
	resp = doGet(t, app, "/api/things", shared)
	require.Equal(t, fiber.StatusTooManyRequests, resp.Code)

	// Same IP, different key: separate window.
	other := map[string]string{fiber.HeaderXForwardedFor: "10.0.0.1", headerAPIKey: "agk_other_key"}
	resp = doGet(t, app, "/api/things", other)
	assert.Equal(t, fiber.StatusOK, resp.Code)
}

func TestRateLimiter_ForwardedForFirstHop(t *testing.T) {
	cfg := limiterConfig()
	cfg.DefaultBucket.Limit = 1
	app := newLimitedApp(cfg, NewLocalWindowStore(), nil)

	first := map[string]string{fiber.HeaderXForwardedFor: "10.0.0.1, 192.168.0.1"}
	resp := doGet(t, app, "/api/things", first)
	require.Equal(t, fiber.StatusOK, resp.Code)

	// Same first hop through a different proxy chain is the same client.
	second := map[string]string{fiber.HeaderXForwardedFor: "10.0.0.1, 172.16.0.9"}
	resp = doGet(t, app, "/api/things", second)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.Code)
}

type failingWindowStore struct{}

func (failingWindowStore) Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error) {
	return Decision{}, errors.New("backend unreachable")
}

func TestRateLimiter_FailsOpenOnBackendError(t *testing.T) {
	app := newLimitedApp(limiterConfig(), failingWindowStore{}, nil)

	for i := 0; i < 10; i++ {
		resp := doGet(t, app, "/api/things", nil)
		assert.Equal(t, fiber.StatusOK, resp.Code)
		assert.Equal(t, "0", resp.Header().Get(headerRemaining))
	}
}
