package services

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accessgate-backend/models"
)

func writeTestSigningKey(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	path := filepath.Join(t.TempDir(), "signing.pem")
	require.NoError(t, os.WriteFile(path, pemBytes, 0o600))
	return path, key
}

func testUserAndApp() (*models.User, *models.Application) {
	user := &models.User{
		Id:        "user-1",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
	}
	app := &models.Application{Id: "app-1", Key: "alpha", IsActive: true}
	return user, app
}

func TestTokenIssuer_ClaimContent(t *testing.T) {
	path, key := writeTestSigningKey(t)
	issuer := NewTokenIssuer(path, "accessgate", "accessgate-clients", 15*time.Minute)

	user, app := testUserAndApp()
	roles := []string{"editor", "viewer"}
	permissions := []string{"alpha.catalog.read", "alpha.catalog.write"}

	signed, err := issuer.Issue(user, app, roles, permissions)
	require.NoError(t, err)

	var claims AccessClaims
	parsed, err := jwt.ParseWithClaims(signed, &claims, func(token *jwt.Token) (interface{}, error) {
		require.Equal(t, jwt.SigningMethodRS256.Alg(), token.Method.Alg())
		return &key.PublicKey, nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "Ada Lovelace", claims.Name)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "alpha", claims.TenantKey)
	assert.Equal(t, roles, claims.Roles)
	assert.Equal(t, permissions, claims.Permissions)
	assert.Equal(t, "accessgate", claims.Issuer)
	assert.Contains(t, claims.Audience, "accessgate-clients")

	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	assert.Equal(t, 15*time.Minute, lifetime)
}

func TestTokenIssuer_DeterministicClaims(t *testing.T) {
	path, key := writeTestSigningKey(t)
	issuer := NewTokenIssuer(path, "accessgate", "clients", time.Hour)

	user, app := testUserAndApp()
	first, err := issuer.Issue(user, app, []string{"editor"}, []string{"alpha.catalog.read"})
	require.NoError(t, err)
	second, err := issuer.Issue(user, app, []string{"editor"}, []string{"alpha.catalog.read"})
	require.NoError(t, err)

	// Compare claim content, not raw bytes: iat/exp may straddle a
	// second boundary, signatures may differ.
	parse := func(signed string) AccessClaims {
		var claims AccessClaims
		_, err := jwt.ParseWithClaims(signed, &claims, func(*jwt.Token) (interface{}, error) {
			return &key.PublicKey, nil
		})
		require.NoError(t, err)
		return claims
	}
	a, b := parse(first), parse(second)
	assert.Equal(t, a.Subject, b.Subject)
	assert.Equal(t, a.TenantKey, b.TenantKey)
	assert.Equal(t, a.Roles, b.Roles)
	assert.Equal(t, a.Permissions, b.Permissions)
}

func TestTokenIssuer_EmptyRoleAndPermissionLists(t *testing.T) {
	path, key := writeTestSigningKey(t)
	issuer := NewTokenIssuer(path, "accessgate", "clients", time.Hour)

	user, app := testUserAndApp()
	signed, err := issuer.Issue(user, app, nil, nil)
	require.NoError(t, err)

	var claims AccessClaims
	_, err = jwt.ParseWithClaims(signed, &claims, func(*jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, claims.Roles)
	assert.NotNil(t, claims.Permissions)
}

func TestTokenIssuer_KeySourceNotConfigured(t *testing.T) {
	issuer := NewTokenIssuer("", "accessgate", "clients", time.Hour)

	user, app := testUserAndApp()
	_, err := issuer.Issue(user, app, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrKeySourceNotConfigured))
	assert.False(t, errors.Is(err, ErrKeyFileMissing))
}

func TestTokenIssuer_KeyFileMissing(t *testing.T) {
	issuer := NewTokenIssuer(filepath.Join(t.TempDir(), "nope.pem"), "accessgate", "clients", time.Hour)

	user, app := testUserAndApp()
	_, err := issuer.Issue(user, app, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrKeyFileMissing))
	assert.False(t, errors.Is(err, ErrKeySourceNotConfigured))
}

func TestTokenIssuer_CorruptKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a pem"), 0o600))

	issuer := NewTokenIssuer(path, "accessgate", "clients", time.Hour)
	user, app := testUserAndApp()
	_, err := issuer.Issue(user, app, nil, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrKeyFileMissing))
}
