package controllers

import (
	"github.com/gofiber/fiber/v2"

	"accessgate-backend/middlewares"
	"accessgate-backend/services"
)

// PermissionController exposes the resolver to authenticated callers.
// The user and tenant always come from the verified token, never from
// the request.
type PermissionController struct {
	Resolver *services.PermissionResolver
}

// Check answers GET /permissions/check?module=...&action=...
func (pc *PermissionController) Check(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	tenantKey, _ := c.Locals("tenantKey").(string)

	module := c.Query("module")
	action := c.Query("action")
	if module == "" || action == "" {
		return fiber.NewError(fiber.StatusBadRequest, "module and action are required")
	}

	result, err := pc.Resolver.Check(c.UserContext(), userID, tenantKey, module, action)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

type bulkCheckRequest struct {
	Checks []services.ModuleAction `json:"checks" validate:"required,min=1,dive"`
}

// BulkCheck answers POST /permissions/bulk-check with one resolution
// pass for the whole batch.
func (pc *PermissionController) BulkCheck(c *fiber.Ctx) error {
	var req bulkCheckRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	userID, _ := c.Locals("userID").(string)
	tenantKey, _ := c.Locals("tenantKey").(string)

	results, err := pc.Resolver.BulkCheck(c.UserContext(), userID, tenantKey, req.Checks)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"results": results})
}

// List answers GET /permissions?module=... with the caller's full
// permission set, optionally filtered by module.
func (pc *PermissionController) List(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	tenantKey, _ := c.Locals("tenantKey").(string)

	codes, err := pc.Resolver.ListUserPermissions(c.UserContext(), userID, tenantKey, c.Query("module"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"permissions": codes})
}
