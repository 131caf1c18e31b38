package middlewares

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"accessgate-backend/config"
)

const (
	headerLimit     = "X-Rate-Limit-Limit"
	headerRemaining = "X-Rate-Limit-Remaining"
	headerReset     = "X-Rate-Limit-Reset"
	headerAPIKey    = "X-API-Key"
)

// RateLimiter applies a sliding-window limit per client identity and
// endpoint class. The window store is injected so the distributed and
// in-process backends are interchangeable and each test owns its own
// state.
type RateLimiter struct {
	cfg    *config.Config
	store  WindowStore
	logger *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewRateLimiter(cfg *config.Config, store WindowStore, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{cfg: cfg, store: store, logger: logger, now: time.Now}
}

// Handle returns the Fiber middleware.
func (rl *RateLimiter) Handle() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !rl.cfg.RateLimitEnabled {
			return c.Next()
		}

		ip := clientIP(c)
		apiKey := strings.TrimSpace(c.Get(headerAPIKey))
		if rl.whitelisted(ip, apiKey) {
			return c.Next()
		}

		identity := ip
		// Keyed clients behind a shared IP get their own window.
		if apiKey != "" {
			prefix := apiKey
			if len(prefix) > 8 {
				prefix = prefix[:8]
			}
			identity += ":" + prefix
		}

		bucket, bucketName := rl.classify(c.Path())
		now := rl.now()

		decision, err := rl.store.Take(c.UserContext(), bucketName+":"+identity, bucket.Limit, bucket.Window, now)
		if err != nil {
			// Fail open: availability beats strict limiting when the
			// backend is unreachable.
			rl.logger.Error("rate limit backend unavailable, failing open",
				zap.String("identity", identity), zap.Error(err))
			decision = Decision{Allowed: true, Remaining: 0, ResetTime: now.Add(bucket.Window)}
		}

		remaining := decision.Remaining
		if remaining < 0 {
			remaining = 0
		}
		c.Set(headerLimit, strconv.Itoa(bucket.Limit))
		c.Set(headerRemaining, strconv.Itoa(remaining))
		c.Set(headerReset, decision.ResetTime.UTC().Format(time.RFC3339))

		if !decision.Allowed {
			retryAfter := int(decision.ResetTime.Sub(now).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			rl.logger.Warn("rate limit exceeded",
				zap.String("identity", identity),
				zap.String("bucket", bucketName),
				zap.String("path", c.Path()))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":      "too_many_requests",
				"message":    "rate limit of " + strconv.Itoa(bucket.Limit) + " requests per " + bucket.Window.String() + " exceeded",
				"retryAfter": retryAfter,
			})
		}

		return c.Next()
	}
}

// classify picks the endpoint bucket by path substring.
func (rl *RateLimiter) classify(path string) (config.RateLimitBucket, string) {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "register"):
		return rl.cfg.RegisterBucket, "register"
	case strings.Contains(lower, "password-reset"):
		return rl.cfg.PasswordBucket, "password"
	case strings.Contains(lower, "login") || strings.Contains(lower, "auth"):
		return rl.cfg.AuthBucket, "auth"
	default:
		return rl.cfg.DefaultBucket, "default"
	}
}

func (rl *RateLimiter) whitelisted(ip, apiKey string) bool {
	for _, entry := range rl.cfg.Whitelist {
		if entry == ip || (apiKey != "" && entry == apiKey) {
			return true
		}
	}
	return false
}

// clientIP follows the forwarded-for chain before trusting the
// transport-layer address.
func clientIP(c *fiber.Ctx) string {
	if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
		// First hop only.
		if idx := strings.Index(fwd, ","); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	if real := c.Get("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}
	return c.IP()
}
