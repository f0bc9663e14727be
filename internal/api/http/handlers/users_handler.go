package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/storefront/internal/api/dto"
	"github.com/spec-kit/storefront/internal/service"
	apperrors "github.com/spec-kit/storefront/pkg/util"
)

// UsersHandler exposes the admin role-management endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.auth.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.UserView, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserView(&users[i]))
	}
	return c.JSON(fiber.Map{"users": items})
}

// UpdateRole handles PUT /users/:id/role.
func (h *UsersHandler) UpdateRole(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NewNotFound("User", nil)
	}
	var req dto.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Invalid role specified.", nil)
	}
	user, err := h.auth.UpdateRole(c.UserContext(), id.String(), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Role updated",
		"user":    dto.NewUserView(user),
	})
}
