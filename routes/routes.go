package routes

import (
	"github.com/gofiber/fiber/v2"

	"accessgate-backend/config"
	"accessgate-backend/controllers"
	"accessgate-backend/middlewares"
	"accessgate-backend/services"
)

// Deps collects everything the route handlers need.
type Deps struct {
	Cfg        *config.Config
	Auth       *controllers.AuthController
	Permission *controllers.PermissionController
	Admin      *controllers.AdminController
	Classifier *services.APIKeyClassifier
}

// Register wires all HTTP routes.
func Register(app *fiber.App, d Deps) {
	api := app.Group("/api")

	// Public auth endpoints
	api.Post("/register", d.Auth.Register)
	api.Post("/login", d.Auth.Login)
	api.Post("/password-reset", d.Auth.RequestPasswordReset)

	// Protected endpoints (JWT auth)
	protected := api.Group("")
	protected.Use(middlewares.RequireAuth(d.Cfg.PublicKeyPath))

	protected.Get("/permissions/check", d.Permission.Check)
	protected.Post("/permissions/bulk-check", d.Permission.BulkCheck)
	protected.Get("/permissions", d.Permission.List)

	// Management endpoints (admin API key)
	admin := api.Group("/admin")
	admin.Use(middlewares.RequireAPIKey(d.Classifier, services.AccessAdmin))

	admin.Post("/applications", d.Admin.CreateApplication)
	admin.Post("/applications/:id/api-key", d.Admin.RotateAPIKey)
	admin.Put("/applications/:id/active", d.Admin.SetApplicationActive)
	admin.Post("/applications/:id/permissions", d.Admin.CreatePermission)
	admin.Post("/applications/:id/roles", d.Admin.CreateRole)
	admin.Post("/roles/:roleId/permissions/:permissionId", d.Admin.AddPermissionToRole)
	admin.Post("/users/:userId/roles/:roleId", d.Admin.AssignRole)
	admin.Delete("/users/:userId/roles/:roleId", d.Admin.RevokeRole)
	admin.Post("/users/:userId/permissions/:permissionId", d.Admin.GrantPermission)
	admin.Delete("/users/:userId/permissions/:permissionId", d.Admin.RevokePermission)
}
