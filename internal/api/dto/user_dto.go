package dto

import (
	"time"

	"github.com/spec-kit/storefront/internal/domain"
)

// RegisterRequest payload for new users.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyRoleRequest lists the roles an operation accepts.
type VerifyRoleRequest struct {
	Roles []domain.Role `json:"roles"`
}

// UpdateRoleRequest payload for the admin role change.
type UpdateRoleRequest struct {
	Role domain.Role `json:"role"`
}

// UserView is the public projection of an account.
type UserView struct {
	ID    string      `json:"id,omitempty"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// LoginResponse is returned by POST /login.
type LoginResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserView  `json:"user"`
}

// ClaimsView exposes decoded token claims.
type ClaimsView struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	Iat   int64       `json:"iat"`
	Exp   int64       `json:"exp"`
}

// NewUserView projects a user.
func NewUserView(u *domain.User) UserView {
	return UserView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// NewClaimsView projects claims.
func NewClaimsView(c *domain.Claims) ClaimsView {
	return ClaimsView{
		ID:    c.SubjectID,
		Email: c.Email,
		Role:  c.Role,
		Iat:   c.IssuedAt.Unix(),
		Exp:   c.ExpiresAt.Unix(),
	}
}
