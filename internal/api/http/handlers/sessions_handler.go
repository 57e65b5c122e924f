package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/quiz-platform/internal/auth"
	"github.com/spec-kit/quiz-platform/internal/service"
)

// SessionsHandler lets authenticated users inspect and revoke their own
// interactive sessions.
type SessionsHandler struct {
	auth *service.AuthService
}

// NewSessionsHandler constructs handler.
func NewSessionsHandler(authService *service.AuthService) *SessionsHandler {
	return &SessionsHandler{auth: authService}
}

// List handles GET /api/v1/sessions.
func (h *SessionsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	sessions, err := h.auth.Sessions(c.Context(), principal.Subject)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"sessions": sessions}})
}

// Revoke handles DELETE /api/v1/sessions/:id. Only the caller's own
// sessions can be revoked.
func (h *SessionsHandler) Revoke(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	sessionID := c.Params("id")
	if sessionID == "" {
		return fiber.NewError(http.StatusBadRequest, "session id required")
	}

	if err := h.auth.RevokeSession(c.Context(), principal.Subject, sessionID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"revoked": sessionID}})
}
