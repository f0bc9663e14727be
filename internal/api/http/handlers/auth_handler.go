package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront/internal/api/dto"
	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/service"
	apperrors "github.com/spec-kit/storefront/pkg/util"
)

// AuthHandler exposes the identity endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.auth.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Successfully created a new user!",
		"user":    dto.NewUserView(user),
	})
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.LoginResponse{
		Message:   "Login successful!",
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      dto.UserView{Name: res.User.Name, Email: res.User.Email, Role: res.User.Role},
	})
}

// Verify handles POST /verify.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	token, _ := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	claims, err := h.auth.Verify(token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Token is valid",
		"user":    dto.NewClaimsView(claims),
	})
}

// VerifyRole handles POST /verifyRole, the check other services delegate to.
func (h *AuthHandler) VerifyRole(c *fiber.Ctx) error {
	token, _ := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		return apperrors.NewUnauthorized("Unauthorized")
	}

	var req dto.VerifyRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Invalid role specified.", nil)
	}
	if _, err := h.auth.VerifyRole(token, req.Roles); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Sufficient permissions."})
}
