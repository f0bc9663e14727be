package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/repository"
	apperrors "github.com/spec-kit/storefront/pkg/util"
)

const (
	userStore           = "user store"
	uniqueViolationCode = "23505"
)

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// AuthService coordinates registration, login and token checks.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenIssuer
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenIssuer, bcryptCost int) *AuthService {
	return &AuthService{users: users, tokens: tokens, bcryptCost: bcryptCost}
}

// Tokens exposes the issuer for local middleware.
func (s *AuthService) Tokens() *auth.TokenIssuer {
	return s.tokens
}

// Register creates an end-user account. Accounts always start as RoleUser;
// elevation goes through UpdateRole.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, apperrors.NewValidationError("Missing required fields.", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("User already exists!", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewDependencyError(userStore, err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, apperrors.NewConflict("User already exists!", nil)
		}
		return nil, apperrors.NewDependencyError(userStore, err)
	}
	return user, nil
}

// Login authenticates by email and password and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("Email and password are required.", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewUnauthorized("User not found.")
	}
	if err != nil {
		return nil, apperrors.NewDependencyError(userStore, err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("Invalid password.")
	}

	token, exp, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}

// Verify decodes a presented token.
func (s *AuthService) Verify(token string) (*domain.Claims, error) {
	if token == "" {
		return nil, apperrors.NewUnauthorized("Token is required")
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("Invalid or expired token")
	}
	return claims, nil
}

// VerifyRole answers the network-callable role check used by other services.
func (s *AuthService) VerifyRole(token string, roles []domain.Role) (*domain.Claims, error) {
	if token == "" {
		return nil, apperrors.NewUnauthorized("Unauthorized")
	}
	decision := s.tokens.VerifyRole(token, auth.NewRoleSet(roles...))
	switch decision.Reason {
	case auth.DenyNone:
		return decision.Claims, nil
	case auth.DenyInsufficientRole:
		return nil, apperrors.NewForbidden("Forbidden: insufficient role")
	default:
		return nil, apperrors.NewUnauthorized("Invalid token")
	}
}

// ListUsers returns every account.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.NewDependencyError(userStore, err)
	}
	return users, nil
}

// UpdateRole changes the role of an existing account.
func (s *AuthService) UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("Invalid role specified.", map[string]any{"role": string(role)})
	}
	user, err := s.users.UpdateRole(ctx, id, role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("User", nil)
	}
	if err != nil {
		return nil, apperrors.NewDependencyError(userStore, err)
	}
	return user, nil
}
