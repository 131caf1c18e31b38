package services

import (
	"context"
	"strings"

	"accessgate-backend/database"
	"accessgate-backend/utils"
)

// AccessLevel is the tri-state outcome of API key classification.
type AccessLevel int

const (
	AccessNone AccessLevel = iota
	AccessTenant
	AccessAdmin
)

func (l AccessLevel) String() string {
	switch l {
	case AccessAdmin:
		return "Admin"
	case AccessTenant:
		return "Tenant"
	default:
		return "None"
	}
}

// AccessCheck is the classification result. Stateless, computed per
// call, never persisted. ApplicationID is set only for AccessTenant.
type AccessCheck struct {
	Level         AccessLevel
	ApplicationID string
}

// AdminKeySet answers exact-membership checks against the statically
// configured admin key list.
type AdminKeySet interface {
	IsAdminKey(key string) bool
}

// APIKeyClassifier determines whether a presented key is an admin key,
// an application key, or invalid. Classification is O(active
// applications with keys); callers needing high request volume cache
// results at the middleware layer.
type APIKeyClassifier struct {
	adminKeys AdminKeySet
	store     database.Store
	audit     *AuditRecorder
}

func NewAPIKeyClassifier(adminKeys AdminKeySet, store database.Store, audit *AuditRecorder) *APIKeyClassifier {
	return &APIKeyClassifier{adminKeys: adminKeys, store: store, audit: audit}
}

// Validate classifies the presented key. The admin check runs first and
// does not touch the database, so admin access survives a store outage.
func (c *APIKeyClassifier) Validate(ctx context.Context, presentedKey string) AccessCheck {
	presentedKey = strings.TrimSpace(presentedKey)
	if presentedKey == "" {
		return AccessCheck{Level: AccessNone}
	}

	if c.adminKeys.IsAdminKey(presentedKey) {
		c.audit.Record("api_key.validated", "", map[string]any{"level": AccessAdmin.String()})
		return AccessCheck{Level: AccessAdmin}
	}

	apps, err := c.store.ActiveApplicationsWithKeys(ctx)
	if err != nil {
		c.audit.Record("api_key.rejected", "", map[string]any{"reason": "store unavailable"})
		return AccessCheck{Level: AccessNone}
	}

	for _, app := range apps {
		if utils.VerifySecret(presentedKey, app.APIKeyHash) {
			c.audit.Record("api_key.validated", "", map[string]any{
				"level":          AccessTenant.String(),
				"application_id": app.Id,
			})
			return AccessCheck{Level: AccessTenant, ApplicationID: app.Id}
		}
	}

	c.audit.Record("api_key.rejected", "", map[string]any{"reason": "no match"})
	return AccessCheck{Level: AccessNone}
}
