package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/storefront/internal/domain"
)

var (
	// ErrInvalidSignature covers tokens whose signature, algorithm or shape does not check out.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpired is returned once now is past the token expiry.
	ErrExpired = errors.New("token expired")
)

// DenyReason distinguishes the two ways VerifyRole can refuse a token.
type DenyReason string

const (
	DenyNone             DenyReason = ""
	DenyUnauthenticated  DenyReason = "unauthenticated"
	DenyInsufficientRole DenyReason = "insufficient_role"
)

// Decision is the outcome of a role check.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	Claims  *domain.Claims
	Err     error
}

// TokenIssuer signs and verifies bearer tokens with the process-wide secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer builds an issuer. A non-positive ttl falls back to one hour.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock swaps the time source, mostly for tests.
func (ti *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	ti.now = now
	return ti
}

// tokenClaims describes the JWT payload.
type tokenClaims struct {
	SubjectID string      `json:"id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issue builds and signs a token for the subject.
func (ti *TokenIssuer) Issue(subjectID, email string, role domain.Role) (string, time.Time, error) {
	if !role.Valid() {
		return "", time.Time{}, fmt.Errorf("%w: %q", domain.ErrUnknownRole, string(role))
	}
	// Claims carry whole seconds; truncate first so the returned expiry is
	// exactly the one that is signed.
	issuedAt := ti.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ti.ttl)
	claims := &tokenClaims{
		SubjectID: subjectID,
		Email:     email,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Verify checks signature and expiry and returns the decoded claims. A token
// is valid while now is strictly before its expiry and Expired from that
// instant on; expiry has one-second resolution and no leeway is applied.
func (ti *TokenIssuer) Verify(tokenStr string) (*domain.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return ti.secret, nil
	}, jwt.WithTimeFunc(ti.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || !claims.Role.Valid() {
		return nil, ErrInvalidSignature
	}
	out := &domain.Claims{
		SubjectID: claims.SubjectID,
		Email:     claims.Email,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// VerifyRole allows iff the token verifies and its role is in allowed.
func (ti *TokenIssuer) VerifyRole(tokenStr string, allowed RoleSet) Decision {
	claims, err := ti.Verify(tokenStr)
	if err != nil {
		return Decision{Reason: DenyUnauthenticated, Err: err}
	}
	if !allowed.Contains(claims.Role) {
		return Decision{Reason: DenyInsufficientRole, Claims: claims}
	}
	return Decision{Allowed: true, Claims: claims}
}
