package services

import (
	"context"
	"strings"

	"accessgate-backend/apperrors"
	"accessgate-backend/cache"
	"accessgate-backend/database"
	"accessgate-backend/models"
)

// CheckSource names the evidence that decided a permission check.
type CheckSource string

const (
	SourceCache  CheckSource = "Cache"
	SourceRole   CheckSource = "Role"
	SourceDirect CheckSource = "Direct"
	SourceNone   CheckSource = "None"
)

// CheckResult is the outcome of a single permission check.
type CheckResult struct {
	HasPermission bool        `json:"has_permission"`
	Source        CheckSource `json:"source"`
}

// ModuleAction is one (module, action) pair for bulk checks.
type ModuleAction struct {
	Module string `json:"module" validate:"required"`
	Action string `json:"action" validate:"required"`
}

// BulkCheckResult pairs a requested module/action with its outcome.
type BulkCheckResult struct {
	Module        string `json:"module"`
	Action        string `json:"action"`
	HasPermission bool   `json:"has_permission"`
}

// PermissionResolver computes whether a user holds a permission within
// an application, consulting the cache before relational state. The
// evidence order is strict: cache, then role-derived grant, then direct
// grant.
type PermissionResolver struct {
	store database.Store
	cache cache.PermissionCache
	audit *AuditRecorder
}

func NewPermissionResolver(store database.Store, permCache cache.PermissionCache, audit *AuditRecorder) *PermissionResolver {
	return &PermissionResolver{store: store, cache: permCache, audit: audit}
}

// resolveApplication maps a tenant key to its active application.
// Missing and inactive both surface as NotFound.
func (r *PermissionResolver) resolveApplication(ctx context.Context, tenantKey string) (*models.Application, error) {
	app, err := r.store.ApplicationByKey(ctx, tenantKey)
	if err != nil {
		return nil, err
	}
	if !app.IsActive {
		return nil, apperrors.New(apperrors.KindNotFound, "application not found")
	}
	return app, nil
}

// Check evaluates a single permission for the user.
func (r *PermissionResolver) Check(ctx context.Context, userID, tenantKey, module, action string) (CheckResult, error) {
	app, err := r.resolveApplication(ctx, tenantKey)
	if err != nil {
		return CheckResult{Source: SourceNone}, err
	}

	code := models.PermissionCode(app.Key, module, action)

	// A cache hit short-circuits all relational access. A cache backend
	// error is treated as a miss; relational state is authoritative.
	if cached, ok, cacheErr := r.cache.Get(ctx, userID, app.Id); cacheErr == nil && ok {
		result := CheckResult{HasPermission: containsCode(cached, code), Source: SourceCache}
		r.audit.Record("permission.check", userID, map[string]any{
			"code": code, "granted": result.HasPermission, "source": string(result.Source),
		})
		return result, nil
	}

	// Unknown permission never matches; skip the grant queries entirely.
	if _, err := r.store.PermissionByCode(ctx, app.Id, code); err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return CheckResult{HasPermission: false, Source: SourceNone}, nil
		}
		return CheckResult{Source: SourceNone}, err
	}

	roleIDs, err := r.store.RoleIDsForUser(ctx, userID, app.Id)
	if err != nil {
		return CheckResult{Source: SourceNone}, err
	}
	roleCodes, err := r.store.PermissionCodesForRoles(ctx, roleIDs)
	if err != nil {
		return CheckResult{Source: SourceNone}, err
	}
	if containsCode(roleCodes, code) {
		return r.grant(ctx, userID, app, code, SourceRole)
	}

	directCodes, err := r.store.DirectPermissionCodes(ctx, userID, app.Id)
	if err != nil {
		return CheckResult{Source: SourceNone}, err
	}
	if containsCode(directCodes, code) {
		return r.grant(ctx, userID, app, code, SourceDirect)
	}

	r.audit.Record("permission.check", userID, map[string]any{
		"code": code, "granted": false, "source": string(SourceNone),
	})
	return CheckResult{HasPermission: false, Source: SourceNone}, nil
}

// grant populates the cache via a full resolution pass before returning
// the positive result. The pass is side-effect only here; the decision
// was already made.
func (r *PermissionResolver) grant(ctx context.Context, userID string, app *models.Application, code string, source CheckSource) (CheckResult, error) {
	if _, err := r.GetAllPermissions(ctx, userID, app.Id); err != nil {
		return CheckResult{Source: SourceNone}, err
	}
	r.audit.Record("permission.check", userID, map[string]any{
		"code": code, "granted": true, "source": string(source),
	})
	return CheckResult{HasPermission: true, Source: source}, nil
}

// GetAllPermissions returns the user's full permission-code set within
// the application: the union of role-derived codes and direct grants.
// A cache hit is returned verbatim; a miss recomputes and caches.
func (r *PermissionResolver) GetAllPermissions(ctx context.Context, userID, appID string) ([]string, error) {
	if cached, ok, err := r.cache.Get(ctx, userID, appID); err == nil && ok {
		return cached, nil
	}

	roleIDs, err := r.store.RoleIDsForUser(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	roleCodes, err := r.store.PermissionCodesForRoles(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	directCodes, err := r.store.DirectPermissionCodes(ctx, userID, appID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(roleCodes)+len(directCodes))
	union := make([]string, 0, len(roleCodes)+len(directCodes))
	for _, code := range append(roleCodes, directCodes...) {
		code = strings.ToLower(code)
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		union = append(union, code)
	}

	// Best-effort: a failed Set just means the next call recomputes.
	_ = r.cache.Set(ctx, userID, appID, union)

	return union, nil
}

// BulkCheck resolves the application and the full permission set once,
// then answers every pair from that one set.
func (r *PermissionResolver) BulkCheck(ctx context.Context, userID, tenantKey string, pairs []ModuleAction) ([]BulkCheckResult, error) {
	app, err := r.resolveApplication(ctx, tenantKey)
	if err != nil {
		return nil, err
	}

	codes, err := r.GetAllPermissions(ctx, userID, app.Id)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}

	results := make([]BulkCheckResult, 0, len(pairs))
	for _, pair := range pairs {
		code := models.PermissionCode(app.Key, pair.Module, pair.Action)
		_, granted := set[code]
		results = append(results, BulkCheckResult{
			Module:        pair.Module,
			Action:        pair.Action,
			HasPermission: granted,
		})
	}
	return results, nil
}

// ListUserPermissions returns the user's permission codes within the
// application, optionally filtered by module (case-insensitive).
func (r *PermissionResolver) ListUserPermissions(ctx context.Context, userID, tenantKey, moduleFilter string) ([]string, error) {
	app, err := r.resolveApplication(ctx, tenantKey)
	if err != nil {
		return nil, err
	}

	codes, err := r.GetAllPermissions(ctx, userID, app.Id)
	if err != nil {
		return nil, err
	}
	if moduleFilter == "" {
		return codes, nil
	}

	prefix := strings.ToLower(app.Key + "." + moduleFilter + ".")
	filtered := make([]string, 0, len(codes))
	for _, code := range codes {
		if strings.HasPrefix(strings.ToLower(code), prefix) {
			filtered = append(filtered, code)
		}
	}
	return filtered, nil
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}
