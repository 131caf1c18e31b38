package controllers

import (
	"net/mail"
	"time"

	"github.com/gofiber/fiber/v2"

	"accessgate-backend/apperrors"
	"accessgate-backend/database"
	"accessgate-backend/middlewares"
	"accessgate-backend/models"
	"accessgate-backend/services"
	"accessgate-backend/utils"
)

// AuthController owns credential endpoints: registration, login (token
// issuance), and password-reset requests.
type AuthController struct {
	DB       *database.Writer
	Store    database.Store
	Issuer   *services.TokenIssuer
	Resolver *services.PermissionResolver
	Audit    *services.AuditRecorder
}

type registerRequest struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
}

func (ac *AuthController) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Password != req.PasswordConfirm {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{"message": "passwords do not match"})
	}

	if _, err := ac.Store.UserByEmail(c.UserContext(), req.Email); err == nil {
		return apperrors.New(apperrors.KindConflict, "email already exists")
	}

	hash, err := utils.HashSecret(req.Password)
	if err != nil {
		return err
	}

	user := models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := ac.DB.CreateUser(c.UserContext(), &user); err != nil {
		return err
	}

	ac.Audit.Record("user.registered", user.Id, map[string]any{"email": user.Email})
	return c.JSON(user)
}

type loginRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required"`
	ApplicationKey string `json:"application_key" validate:"required"`
}

func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{"message": "invalid email format"})
	}

	ctx := c.UserContext()

	app, err := ac.Store.ApplicationByKey(ctx, req.ApplicationKey)
	if err != nil || !app.IsActive {
		return apperrors.New(apperrors.KindNotFound, "application not found")
	}

	// Wrong email and wrong password are indistinguishable to callers.
	user, err := ac.Store.UserByEmail(ctx, req.Email)
	if err != nil {
		ac.Audit.Record("login.failed", "", map[string]any{"reason": "unknown email"})
		c.Status(fiber.StatusUnauthorized)
		return c.JSON(fiber.Map{"message": "invalid credentials"})
	}

	if user.LockedUntil != nil && user.LockedUntil.After(time.Now()) {
		ac.Audit.Record("login.locked", user.Id, nil)
		c.Status(fiber.StatusUnauthorized)
		return c.JSON(fiber.Map{"message": "account temporarily locked"})
	}

	if !utils.VerifySecret(req.Password, user.PasswordHash) {
		ac.registerFailedLogin(c, user, app)
		c.Status(fiber.StatusUnauthorized)
		return c.JSON(fiber.Map{"message": "invalid credentials"})
	}

	roles, err := ac.Store.RolesForUser(ctx, user.Id, app.Id)
	if err != nil {
		return err
	}
	roleNames := make([]string, 0, len(roles))
	for _, role := range roles {
		roleNames = append(roleNames, role.Name)
	}

	permissions, err := ac.Resolver.GetAllPermissions(ctx, user.Id, app.Id)
	if err != nil {
		return err
	}

	token, err := ac.Issuer.Issue(user, app, roleNames, permissions)
	if err != nil {
		return err
	}

	if user.FailedLogins > 0 {
		user.FailedLogins = 0
		user.LockedUntil = nil
		_ = ac.DB.SaveUser(ctx, user)
	}

	ac.Audit.Record("login.succeeded", user.Id, map[string]any{"application": app.Key})
	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    user.Id,
			"name":  user.DisplayName(),
			"email": user.Email,
		},
	})
}

// registerFailedLogin applies the application's lockout policy.
func (ac *AuthController) registerFailedLogin(c *fiber.Ctx, user *models.User, app *models.Application) {
	user.FailedLogins++
	if app.MaxFailedLogins > 0 && user.FailedLogins >= app.MaxFailedLogins {
		until := time.Now().Add(time.Duration(app.LockoutMinutes) * time.Minute)
		user.LockedUntil = &until
		user.FailedLogins = 0
	}
	_ = ac.DB.SaveUser(c.UserContext(), user)
	ac.Audit.Record("login.failed", user.Id, map[string]any{"reason": "wrong password"})
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RequestPasswordReset accepts the request and responds identically
// whether or not the email exists. Mail delivery is a fire-and-forget
// collaborator outside this service.
func (ac *AuthController) RequestPasswordReset(c *fiber.Ctx) error {
	var req passwordResetRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	if user, err := ac.Store.UserByEmail(c.UserContext(), req.Email); err == nil {
		ac.Audit.Record("password_reset.requested", user.Id, nil)
	} else {
		ac.Audit.Record("password_reset.requested", "", map[string]any{"known": false})
	}

	return c.JSON(fiber.Map{"message": "if the account exists, a reset email has been sent"})
}
