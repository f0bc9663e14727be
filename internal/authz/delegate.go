package authz

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/observability"
	apperrors "github.com/spec-kit/storefront/pkg/util"
)

// Delegate gates routes on a remote role check. Decisions are never cached:
// every request pays one issuer round trip.
type Delegate struct {
	verifier Verifier
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewDelegate builds the gate.
func NewDelegate(verifier Verifier, logger *zap.Logger, metrics *observability.Metrics) *Delegate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Delegate{verifier: verifier, logger: logger, metrics: metrics}
}

// Require allows the request through only when the issuer confirms the
// caller holds one of roles.
func (d *Delegate) Require(roles ...domain.Role) fiber.Handler {
	allowed := auth.NewRoleSet(roles...).Slice()

	return func(c *fiber.Ctx) error {
		token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			d.metrics.RecordAuthzDecision("unauthenticated")
			return apperrors.NewUnauthorized("Unauthorized")
		}

		err := d.verifier.VerifyRole(c.UserContext(), token, allowed)
		switch {
		case err == nil:
			d.metrics.RecordAuthzDecision("allow")
			return c.Next()
		case apperrors.IsCode(err, apperrors.CodeUnauth):
			d.metrics.RecordAuthzDecision("unauthenticated")
		case apperrors.IsCode(err, apperrors.CodeForbidden):
			d.metrics.RecordAuthzDecision("forbidden")
		default:
			d.metrics.RecordAuthzDecision("dependency")
			d.logger.Warn("issuer call failed; denying request",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
			if !apperrors.IsCode(err, apperrors.CodeDependency) {
				err = apperrors.NewDependencyError(issuerName, err)
			}
		}
		return err
	}
}
