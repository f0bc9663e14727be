package authz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/observability"
	apperrors "github.com/spec-kit/storefront/pkg/util"
)

type stubVerifier struct {
	err   error
	calls int
	token string
	roles []domain.Role
}

func (s *stubVerifier) VerifyRole(_ context.Context, token string, roles []domain.Role) error {
	s.calls++
	s.token = token
	s.roles = roles
	return s.err
}

func newDelegatedApp(d *Delegate, roles ...domain.Role) (*fiber.App, *int) {
	handled := new(int)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	app.Post("/product", d.Require(roles...), func(c *fiber.Ctx) error {
		*handled++
		return c.SendStatus(http.StatusCreated)
	})
	return app, handled
}

func doPost(t *testing.T, app *fiber.App, authorization string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/product", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	return resp.StatusCode, string(buf[:n])
}

func TestRequireOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		body     string
		handled  int
		decision string
	}{
		{"allowed", nil, http.StatusCreated, "", 1, "allow"},
		{"unauthenticated", apperrors.NewUnauthorized("Invalid or expired token"), http.StatusUnauthorized, apperrors.CodeUnauth, 0, "unauthenticated"},
		{"forbidden", apperrors.NewForbidden("Forbidden: insufficient role"), http.StatusForbidden, apperrors.CodeForbidden, 0, "forbidden"},
		{"issuer down", apperrors.NewDependencyError("identity service", errors.New("refused")), http.StatusInternalServerError, apperrors.CodeDependency, 0, "dependency"},
		{"untyped failure", errors.New("weird"), http.StatusInternalServerError, apperrors.CodeDependency, 0, "dependency"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			metrics := observability.NewMetrics("test")
			verifier := &stubVerifier{err: tc.err}
			app, handled := newDelegatedApp(NewDelegate(verifier, nil, metrics), domain.RoleAdmin, domain.RoleUser)

			status, body := doPost(t, app, "Bearer tok-1")
			assert.Equal(t, tc.status, status)
			if tc.body != "" {
				assert.Equal(t, tc.body, body)
			}
			assert.Equal(t, tc.handled, *handled)
			assert.Equal(t, "tok-1", verifier.token)
			assert.Equal(t, []domain.Role{domain.RoleUser, domain.RoleAdmin}, verifier.roles)
			assert.Equal(t, []string{tc.decision}, decisions(t, metrics))
		})
	}
}

func decisions(t *testing.T, metrics *observability.Metrics) []string {
	t.Helper()
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	var out []string
	for _, family := range families {
		if family.GetName() != "test_authz_decisions_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "decision" {
					out = append(out, label.GetValue())
				}
			}
		}
	}
	return out
}

func TestRequireWithoutTokenSkipsIssuer(t *testing.T) {
	verifier := &stubVerifier{}
	app, handled := newDelegatedApp(NewDelegate(verifier, nil, nil), domain.RoleAdmin)

	for _, header := range []string{"", "Basic abc", "Bearer "} {
		status, _ := doPost(t, app, header)
		assert.Equal(t, http.StatusUnauthorized, status, header)
	}
	assert.Zero(t, verifier.calls)
	assert.Zero(t, *handled)
}

func TestRequireFailsClosedWhenIssuerHangs(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client := NewIssuerClient(srv.URL, 100*time.Millisecond)
	app, handled := newDelegatedApp(NewDelegate(client, nil, nil), domain.RoleAdmin)

	status, body := doPost(t, app, "Bearer tok")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, apperrors.CodeDependency, body)
	assert.Zero(t, *handled)
}
