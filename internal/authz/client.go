// Package authz delegates authorization decisions for protected catalog
// writes to the identity service. The catalog never holds the signing secret.
package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/storefront/internal/domain"
	apperrors "github.com/spec-kit/storefront/pkg/util"
)

const (
	verifyRolePath  = "/verifyRole"
	issuerName      = "identity service"
	maxResponseBody = 64 << 10
)

// Verifier decides whether a bearer token carries one of roles. It returns
// nil to allow, an UNAUTHORIZED or FORBIDDEN DomainError to deny, and a
// DEPENDENCY_FAILURE DomainError when no decision could be obtained.
type Verifier interface {
	VerifyRole(ctx context.Context, token string, roles []domain.Role) error
}

// IssuerClient calls the identity service's verifyRole endpoint.
type IssuerClient struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewIssuerClient builds a client. Every call is bounded by timeout.
func NewIssuerClient(baseURL string, timeout time.Duration) *IssuerClient {
	return &IssuerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 32,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type verifyRoleRequest struct {
	Roles []domain.Role `json:"roles"`
}

type issuerResponse struct {
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (r issuerResponse) message(fallback string) string {
	if r.Error != nil && r.Error.Message != "" {
		return r.Error.Message
	}
	if r.Message != "" {
		return r.Message
	}
	return fallback
}

// VerifyRole forwards token and roles and maps the answer. Transport
// failures, timeouts and unexpected statuses fail closed; nothing is retried.
func (c *IssuerClient) VerifyRole(ctx context.Context, token string, roles []domain.Role) error {
	payload, err := json.Marshal(verifyRoleRequest{Roles: roles})
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+verifyRolePath, bytes.NewReader(payload))
	if err != nil {
		return apperrors.NewDependencyError(issuerName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewDependencyError(issuerName, err)
	}
	defer resp.Body.Close()

	var body issuerResponse
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr == nil && len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return apperrors.NewUnauthorized(body.message("Unauthorized"))
	case http.StatusForbidden:
		return apperrors.NewForbidden(body.message("Forbidden: insufficient role"))
	default:
		return apperrors.NewDependencyError(issuerName, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, verifyRolePath))
	}
}
