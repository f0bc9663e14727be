package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront/internal/api/http/handlers"
	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/authz"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/observability"
)

// CatalogWriters may create, update and delete products.
var CatalogWriters = []domain.Role{domain.RoleUser, domain.RoleEmployee, domain.RoleAdmin}

// IssuerRoutes bundles dependencies of the identity service routes.
type IssuerRoutes struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterIssuerRoutes wires the identity service.
func RegisterIssuerRoutes(app *fiber.App, cfg IssuerRoutes) {
	registerProbes(app, cfg.Health, cfg.Metrics)

	app.Post("/register", cfg.Auth.Register)
	app.Post("/login", cfg.Auth.Login)
	app.Post("/verify", cfg.Auth.Verify)
	app.Post("/verifyRole", cfg.Auth.VerifyRole)

	admin := app.Group("/users", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Get("", cfg.Users.List)
	admin.Put("/:id/role", cfg.Users.UpdateRole)
}

// CatalogRoutes bundles dependencies of the catalog service routes.
type CatalogRoutes struct {
	Health   *handlers.HealthHandler
	Products *handlers.ProductsHandler
	Delegate *authz.Delegate
	Metrics  *observability.Metrics
}

// RegisterCatalogRoutes wires the catalog service. Writes are authorized by
// the identity service on every call.
func RegisterCatalogRoutes(app *fiber.App, cfg CatalogRoutes) {
	registerProbes(app, cfg.Health, cfg.Metrics)

	app.Get("/products", cfg.Products.List)

	gate := cfg.Delegate.Require(CatalogWriters...)
	app.Post("/product", gate, cfg.Products.Create)
	app.Put("/update/:id", gate, cfg.Products.Update)
	app.Delete("/delete/:id", gate, cfg.Products.Delete)
}

func registerProbes(app *fiber.App, health *handlers.HealthHandler, metrics *observability.Metrics) {
	app.Get("/test", health.Test)
	app.Get("/health/live", health.Live)
	app.Get("/health/ready", health.Ready)
	if metrics != nil {
		app.Get("/metrics", metrics.Handler())
	}
}
