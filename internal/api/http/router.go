package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/quiz-platform/internal/api/http/handlers"
	"github.com/spec-kit/quiz-platform/internal/auth"
	"github.com/spec-kit/quiz-platform/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Sessions    *handlers.SessionsHandler
	Admin       *handlers.AdminHandler
	SessionGate *auth.SessionGate
	Gate        *auth.Gate
}

// RegisterRoutes wires HTTP routes. The session gate runs before the bearer
// gate so an established session short-circuits token checks; neither gate
// ever rejects a request, the Require* guards do.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// Browser redirect target for unauthenticated non-API requests.
	app.Get("/login", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString("<html><body><h1>Sign in</h1><p>POST /auth/login</p></body></html>")
	})

	app.Use(cfg.SessionGate.Handle, cfg.Gate.Handle)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/strength", cfg.Auth.Strength)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	protected := authGroup.Group("", auth.RequireAuthenticated())
	protected.Post("/logout", cfg.Auth.Logout)
	protected.Post("/password/change", cfg.Auth.ChangePassword)

	api := app.Group("/api/v1", auth.RequireAuthenticated())
	api.Get("/me", cfg.Auth.Me)
	api.Get("/sessions", cfg.Sessions.List)
	api.Delete("/sessions/:id", cfg.Sessions.Revoke)

	admin := api.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.Get("/lockouts", cfg.Admin.ListLockouts)
	admin.Post("/lockouts/:id/unlock", cfg.Admin.Unlock)
}
