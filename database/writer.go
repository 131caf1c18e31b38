package database

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"accessgate-backend/apperrors"
	"accessgate-backend/models"
)

// Writer owns the mutations the management and auth controllers need.
// Every mutation that changes a user's role/permission graph obliges the
// caller to invalidate the matching cache entries before reporting
// success.
type Writer struct {
	db *gorm.DB
}

func NewWriter(db *gorm.DB) *Writer {
	return &Writer{db: db}
}

func translateWrite(err error, conflictMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.New(apperrors.KindConflict, conflictMsg)
	}
	return err
}

func (w *Writer) CreateUser(ctx context.Context, user *models.User) error {
	return translateWrite(w.db.WithContext(ctx).Create(user).Error, "email already exists")
}

func (w *Writer) SaveUser(ctx context.Context, user *models.User) error {
	return w.db.WithContext(ctx).Save(user).Error
}

func (w *Writer) CreateApplication(ctx context.Context, app *models.Application) error {
	return translateWrite(w.db.WithContext(ctx).Create(app).Error, "application key already exists")
}

func (w *Writer) SaveApplication(ctx context.Context, app *models.Application) error {
	return w.db.WithContext(ctx).Save(app).Error
}

func (w *Writer) ApplicationByID(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	err := w.db.WithContext(ctx).First(&app, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.KindNotFound, "application not found")
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (w *Writer) CreatePermission(ctx context.Context, perm *models.Permission) error {
	return translateWrite(w.db.WithContext(ctx).Create(perm).Error, "permission code already exists")
}

func (w *Writer) CreateRole(ctx context.Context, role *models.Role) error {
	return translateWrite(w.db.WithContext(ctx).Create(role).Error, "role already exists")
}

func (w *Writer) RoleByID(ctx context.Context, id string) (*models.Role, error) {
	var role models.Role
	err := w.db.WithContext(ctx).First(&role, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.KindNotFound, "role not found")
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (w *Writer) PermissionByID(ctx context.Context, id string) (*models.Permission, error) {
	var perm models.Permission
	err := w.db.WithContext(ctx).First(&perm, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.KindNotFound, "permission not found")
	}
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

func (w *Writer) AddPermissionToRole(ctx context.Context, role *models.Role, perm *models.Permission) error {
	return w.db.WithContext(ctx).Model(role).Association("Permissions").Append(perm)
}

func (w *Writer) AssignRoleToUser(ctx context.Context, user *models.User, role *models.Role) error {
	return w.db.WithContext(ctx).Model(user).Association("Roles").Append(role)
}

func (w *Writer) RemoveRoleFromUser(ctx context.Context, user *models.User, role *models.Role) error {
	return w.db.WithContext(ctx).Model(user).Association("Roles").Delete(role)
}

func (w *Writer) GrantPermissionToUser(ctx context.Context, user *models.User, perm *models.Permission) error {
	return w.db.WithContext(ctx).Model(user).Association("Permissions").Append(perm)
}

func (w *Writer) RevokePermissionFromUser(ctx context.Context, user *models.User, perm *models.Permission) error {
	return w.db.WithContext(ctx).Model(user).Association("Permissions").Delete(perm)
}

func (w *Writer) UserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := w.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
