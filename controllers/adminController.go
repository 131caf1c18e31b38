package controllers

import (
	"github.com/gofiber/fiber/v2"

	"accessgate-backend/cache"
	"accessgate-backend/database"
	"accessgate-backend/middlewares"
	"accessgate-backend/models"
	"accessgate-backend/services"
	"accessgate-backend/utils"
)

// AdminController owns application/role/permission management. Every
// mutation of a role/permission graph invalidates the matching cache
// entries before the response is sent, so staleness never outlives the
// change beyond the TTL.
type AdminController struct {
	DB    *database.Writer
	Cache cache.PermissionCache
	Audit *services.AuditRecorder
}

type createApplicationRequest struct {
	Key             string `json:"key" validate:"required,alphanum,min=2,max=40"`
	Name            string `json:"name" validate:"required"`
	MaxFailedLogins int    `json:"max_failed_logins" validate:"omitempty,min=1"`
	LockoutMinutes  int    `json:"lockout_minutes" validate:"omitempty,min=1"`
}

func (adm *AdminController) CreateApplication(c *fiber.Ctx) error {
	var req createApplicationRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	app := models.Application{
		Key:             req.Key,
		Name:            req.Name,
		IsActive:        true,
		MaxFailedLogins: req.MaxFailedLogins,
		LockoutMinutes:  req.LockoutMinutes,
	}
	if app.MaxFailedLogins == 0 {
		app.MaxFailedLogins = 5
	}
	if app.LockoutMinutes == 0 {
		app.LockoutMinutes = 15
	}
	if err := adm.DB.CreateApplication(c.UserContext(), &app); err != nil {
		return err
	}

	adm.Audit.Record("application.created", "", map[string]any{"key": app.Key})
	return c.JSON(app)
}

// RotateAPIKey generates a fresh key for the application, stores only
// its hash, and returns the raw value exactly once.
func (adm *AdminController) RotateAPIKey(c *fiber.Ctx) error {
	ctx := c.UserContext()
	app, err := adm.DB.ApplicationByID(ctx, c.Params("id"))
	if err != nil {
		return err
	}

	raw, err := utils.GenerateAPIKey()
	if err != nil {
		return err
	}
	hash, err := utils.HashSecret(raw)
	if err != nil {
		return err
	}

	app.APIKeyHash = hash
	if err := adm.DB.SaveApplication(ctx, app); err != nil {
		return err
	}

	adm.Audit.Record("application.api_key_rotated", "", map[string]any{"application_id": app.Id})
	return c.JSON(fiber.Map{"api_key": raw})
}

// SetApplicationActive toggles the application and invalidates every
// cached permission set for it: inactive applications must stop
// resolving immediately, not after the TTL.
func (adm *AdminController) SetApplicationActive(c *fiber.Ctx) error {
	var req struct {
		IsActive *bool `json:"is_active" validate:"required"`
	}
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	app, err := adm.DB.ApplicationByID(ctx, c.Params("id"))
	if err != nil {
		return err
	}

	app.IsActive = *req.IsActive
	if err := adm.DB.SaveApplication(ctx, app); err != nil {
		return err
	}
	if err := adm.Cache.InvalidateApplication(ctx, app.Id); err != nil {
		return err
	}

	adm.Audit.Record("application.active_changed", "", map[string]any{
		"application_id": app.Id, "is_active": app.IsActive,
	})
	return c.JSON(app)
}

type createPermissionRequest struct {
	Module string `json:"module" validate:"required,min=1,max=50"`
	Action string `json:"action" validate:"required,min=1,max=50"`
}

func (adm *AdminController) CreatePermission(c *fiber.Ctx) error {
	var req createPermissionRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	app, err := adm.DB.ApplicationByID(ctx, c.Params("id"))
	if err != nil {
		return err
	}

	perm := models.Permission{
		ApplicationId: app.Id,
		Module:        req.Module,
		Action:        req.Action,
		Code:          models.PermissionCode(app.Key, req.Module, req.Action),
	}
	if err := adm.DB.CreatePermission(ctx, &perm); err != nil {
		return err
	}

	adm.Audit.Record("permission.created", "", map[string]any{"code": perm.Code})
	return c.JSON(perm)
}

type createRoleRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=80"`
	Description string `json:"description"`
}

func (adm *AdminController) CreateRole(c *fiber.Ctx) error {
	var req createRoleRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	app, err := adm.DB.ApplicationByID(ctx, c.Params("id"))
	if err != nil {
		return err
	}

	role := models.Role{
		ApplicationId: app.Id,
		Name:          req.Name,
		Description:   req.Description,
	}
	if err := adm.DB.CreateRole(ctx, &role); err != nil {
		return err
	}
	return c.JSON(role)
}

// AddPermissionToRole changes the role's grant set, so every user
// holding the role may gain a permission: application-wide
// invalidation.
func (adm *AdminController) AddPermissionToRole(c *fiber.Ctx) error {
	ctx := c.UserContext()
	role, err := adm.DB.RoleByID(ctx, c.Params("roleId"))
	if err != nil {
		return err
	}
	perm, err := adm.DB.PermissionByID(ctx, c.Params("permissionId"))
	if err != nil {
		return err
	}

	if err := adm.DB.AddPermissionToRole(ctx, role, perm); err != nil {
		return err
	}
	if err := adm.Cache.InvalidateApplication(ctx, role.ApplicationId); err != nil {
		return err
	}

	adm.Audit.Record("role.permission_added", "", map[string]any{
		"role_id": role.Id, "code": perm.Code,
	})
	return c.JSON(fiber.Map{"message": "permission added"})
}

// AssignRole grants a role to one user; only that user's entry for the
// role's application goes stale.
func (adm *AdminController) AssignRole(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user, err := adm.DB.UserByID(ctx, c.Params("userId"))
	if err != nil {
		return err
	}
	role, err := adm.DB.RoleByID(ctx, c.Params("roleId"))
	if err != nil {
		return err
	}

	if err := adm.DB.AssignRoleToUser(ctx, user, role); err != nil {
		return err
	}
	if err := adm.Cache.InvalidateUser(ctx, user.Id, role.ApplicationId); err != nil {
		return err
	}

	adm.Audit.Record("user.role_assigned", user.Id, map[string]any{"role_id": role.Id})
	return c.JSON(fiber.Map{"message": "role assigned"})
}

func (adm *AdminController) RevokeRole(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user, err := adm.DB.UserByID(ctx, c.Params("userId"))
	if err != nil {
		return err
	}
	role, err := adm.DB.RoleByID(ctx, c.Params("roleId"))
	if err != nil {
		return err
	}

	if err := adm.DB.RemoveRoleFromUser(ctx, user, role); err != nil {
		return err
	}
	if err := adm.Cache.InvalidateUser(ctx, user.Id, role.ApplicationId); err != nil {
		return err
	}

	adm.Audit.Record("user.role_revoked", user.Id, map[string]any{"role_id": role.Id})
	return c.JSON(fiber.Map{"message": "role revoked"})
}

// GrantPermission adds a direct grant bypassing roles.
func (adm *AdminController) GrantPermission(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user, err := adm.DB.UserByID(ctx, c.Params("userId"))
	if err != nil {
		return err
	}
	perm, err := adm.DB.PermissionByID(ctx, c.Params("permissionId"))
	if err != nil {
		return err
	}

	if err := adm.DB.GrantPermissionToUser(ctx, user, perm); err != nil {
		return err
	}
	if err := adm.Cache.InvalidateUser(ctx, user.Id, perm.ApplicationId); err != nil {
		return err
	}

	adm.Audit.Record("user.permission_granted", user.Id, map[string]any{"code": perm.Code})
	return c.JSON(fiber.Map{"message": "permission granted"})
}

func (adm *AdminController) RevokePermission(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user, err := adm.DB.UserByID(ctx, c.Params("userId"))
	if err != nil {
		return err
	}
	perm, err := adm.DB.PermissionByID(ctx, c.Params("permissionId"))
	if err != nil {
		return err
	}

	if err := adm.DB.RevokePermissionFromUser(ctx, user, perm); err != nil {
		return err
	}
	if err := adm.Cache.InvalidateUser(ctx, user.Id, perm.ApplicationId); err != nil {
		return err
	}

	adm.Audit.Record("user.permission_revoked", user.Id, map[string]any{"code": perm.Code})
	return c.JSON(fiber.Map{"message": "permission revoked"})
}
