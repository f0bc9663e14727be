package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront/internal/domain"
	apperrors "github.com/spec-kit/storefront/pkg/util"
)

// RoleSet is an allowed-role set. Membership is exact; no role implies another.
type RoleSet map[domain.Role]struct{}

// NewRoleSet builds a set from roles.
func NewRoleSet(roles ...domain.Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}

// Contains reports membership.
func (s RoleSet) Contains(role domain.Role) bool {
	_, ok := s[role]
	return ok
}

// Slice returns the members in the canonical role order.
func (s RoleSet) Slice() []domain.Role {
	out := make([]domain.Role, 0, len(s))
	for _, role := range domain.Roles() {
		if s.Contains(role) {
			out = append(out, role)
		}
	}
	return out
}

// RequireRole gates issuer-local routes on the authenticated claims.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := NewRoleSet(allowed...)

	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !allowedSet.Contains(claims.Role) {
			return apperrors.NewForbidden("Forbidden: insufficient role")
		}
		return c.Next()
	}
}
