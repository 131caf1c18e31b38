package services

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"accessgate-backend/apperrors"
	"accessgate-backend/models"
)

// Issuance failure kinds, distinguishable via errors.Is.
var (
	ErrKeySourceNotConfigured = apperrors.New(apperrors.KindInfrastructure, "signing key path not configured")
	ErrKeyFileMissing         = apperrors.New(apperrors.KindInfrastructure, "signing key file not found")
)

// AccessClaims is the issued token payload: user identity, tenant key,
// and the flat role/permission lists resolved at login time.
type AccessClaims struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	TenantKey   string   `json:"tenant"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// TokenIssuer builds and signs short-lived RS256 bearer tokens. The
// private key is read from disk on every issuance; callers that need a
// key cache add one outside this component.
type TokenIssuer struct {
	privateKeyPath string
	issuer         string
	audience       string
	lifetime       time.Duration
}

func NewTokenIssuer(privateKeyPath, issuer, audience string, lifetime time.Duration) *TokenIssuer {
	return &TokenIssuer{
		privateKeyPath: privateKeyPath,
		issuer:         issuer,
		audience:       audience,
		lifetime:       lifetime,
	}
}

// Issue signs a token embedding the user's identity, application key,
// role names and permission codes.
func (t *TokenIssuer) Issue(user *models.User, app *models.Application, roles []string, permissions []string) (string, error) {
	if t.privateKeyPath == "" {
		return "", ErrKeySourceNotConfigured
	}

	pemBytes, err := os.ReadFile(t.privateKeyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrKeyFileMissing
		}
		return "", apperrors.Wrap(err, apperrors.KindInfrastructure, "signing key read failed")
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.KindInternal, "signing key is not valid PEM RSA")
	}

	if roles == nil {
		roles = []string{}
	}
	if permissions == nil {
		permissions = []string{}
	}

	now := time.Now()
	claims := &AccessClaims{
		Name:        user.DisplayName(),
		Email:       user.Email,
		TenantKey:   app.Key,
		Roles:       roles,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Id,
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(t.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(privateKey)
}
