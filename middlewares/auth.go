package middlewares

import (
	"crypto/rsa"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"accessgate-backend/services"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "
)

var (
	keyOnce   sync.Once
	publicKey *rsa.PublicKey
	keyErr    error
)

// loadPublicKey reads the RS256 verification key once per process.
// Issuance re-reads the private key per call; verification is hot
// enough to warrant the cache.
func loadPublicKey(path string) error {
	keyOnce.Do(func() {
		if strings.TrimSpace(path) == "" {
			keyErr = errors.New("JWT public key path not configured (set JWT_PUBLIC_KEY_PATH)")
			return
		}
		pemBytes, err := os.ReadFile(path)
		if err != nil {
			keyErr = err
			return
		}
		publicKey, keyErr = jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	})
	return keyErr
}

// RequireAuth validates a Bearer token, enforces RS256, and populates
// c.Locals("userID","tenantKey","roles","permissions").
func RequireAuth(publicKeyPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := loadPublicKey(publicKeyPath); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "server auth not configured",
			})
		}

		h := c.Get(authHeader)
		if h == "" || !strings.HasPrefix(strings.ToLower(h), strings.ToLower(bearerPrefix)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "missing/invalid Authorization header"})
		}
		raw := strings.TrimSpace(h[len(bearerPrefix):])
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid bearer token"})
		}

		parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
		var claims services.AccessClaims
		token, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
			return publicKey, nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid or expired token"})
		}
		if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.TenantKey) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "token missing subject/tenant"})
		}

		c.Locals("userID", claims.Subject)
		c.Locals("tenantKey", claims.TenantKey)
		c.Locals("roles", claims.Roles)
		c.Locals("permissions", claims.Permissions)

		return c.Next()
	}
}

// RequireAPIKey classifies the X-API-Key header and rejects callers
// below the required level. Tenant-level matches expose the application
// id via c.Locals("apiKeyApplicationID").
func RequireAPIKey(classifier *services.APIKeyClassifier, minimum services.AccessLevel) fiber.Handler {
	return func(c *fiber.Ctx) error {
		check := classifier.Validate(c.UserContext(), c.Get(headerAPIKey))
		if check.Level < minimum {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid API key"})
		}
		c.Locals("apiKeyLevel", check.Level)
		if check.ApplicationID != "" {
			c.Locals("apiKeyApplicationID", check.ApplicationID)
		}
		return c.Next()
	}
}
