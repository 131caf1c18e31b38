package database

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"accessgate-backend/apperrors"
	"accessgate-backend/models"
)

// Store is the read boundary the authorization core consumes. Writes
// (application/role/permission/user mutation) belong to the management
// controllers, which own the matching cache invalidation.
type Store interface {
	// ApplicationByKey returns the application regardless of active state;
	// callers decide whether inactive counts as found.
	ApplicationByKey(ctx context.Context, key string) (*models.Application, error)
	// ActiveApplicationsWithKeys lists active applications that have a
	// stored API key hash.
	ActiveApplicationsWithKeys(ctx context.Context) ([]models.Application, error)
	RoleIDsForUser(ctx context.Context, userID, appID string) ([]string, error)
	PermissionCodesForRoles(ctx context.Context, roleIDs []string) ([]string, error)
	DirectPermissionCodes(ctx context.Context, userID, appID string) ([]string, error)
	PermissionByCode(ctx context.Context, appID, code string) (*models.Permission, error)
	RolesForUser(ctx context.Context, userID, appID string) ([]models.Role, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
}

type gormStore struct {
	db *gorm.DB
}

// NewStore wraps a GORM connection in the Store boundary.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) ApplicationByKey(ctx context.Context, key string) (*models.Application, error) {
	var app models.Application
	err := s.db.WithContext(ctx).
		Where("key = ?", strings.ToLower(strings.TrimSpace(key))).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.KindNotFound, "application not found")
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *gormStore) ActiveApplicationsWithKeys(ctx context.Context) ([]models.Application, error) {
	var apps []models.Application
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND api_key_hash <> ''", true).
		Find(&apps).Error
	return apps, err
}

func (s *gormStore) RoleIDsForUser(ctx context.Context, userID, appID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Table("roles").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ? AND roles.application_id = ?", userID, appID).
		Pluck("roles.id", &ids).Error
	return ids, err
}

func (s *gormStore) PermissionCodesForRoles(ctx context.Context, roleIDs []string) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	var codes []string
	err := s.db.WithContext(ctx).
		Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id IN ?", roleIDs).
		Distinct().
		Pluck("permissions.code", &codes).Error
	return codes, err
}

func (s *gormStore) DirectPermissionCodes(ctx context.Context, userID, appID string) ([]string, error) {
	var codes []string
	err := s.db.WithContext(ctx).
		Table("permissions").
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.id").
		Where("user_permissions.user_id = ? AND permissions.application_id = ?", userID, appID).
		Distinct().
		Pluck("permissions.code", &codes).Error
	return codes, err
}

func (s *gormStore) PermissionByCode(ctx context.Context, appID, code string) (*models.Permission, error) {
	var perm models.Permission
	err := s.db.WithContext(ctx).
		Where("application_id = ? AND code = ?", appID, strings.ToLower(code)).
		First(&perm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.KindNotFound, "permission not found")
	}
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

func (s *gormStore) RolesForUser(ctx context.Context, userID, appID string) ([]models.Role, error) {
	var roles []models.Role
	err := s.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ? AND roles.application_id = ?", userID, appID).
		Find(&roles).Error
	return roles, err
}

func (s *gormStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
