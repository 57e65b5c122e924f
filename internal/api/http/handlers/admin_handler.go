package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/quiz-platform/internal/auth"
	"github.com/spec-kit/quiz-platform/internal/service"
)

// AdminHandler exposes lockout management for ADMIN principals.
type AdminHandler struct {
	auth *service.AuthService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService) *AdminHandler {
	return &AdminHandler{auth: authService}
}

// ListLockouts handles GET /api/v1/admin/lockouts.
func (h *AdminHandler) ListLockouts(c *fiber.Ctx) error {
	users, err := h.auth.LockedAccounts(c.Context())
	if err != nil {
		return err
	}

	out := make([]fiber.Map, 0, len(users))
	for _, user := range users {
		out = append(out, fiber.Map{
			"id":              user.ID,
			"username":        user.Username,
			"failed_attempts": user.FailedAttempts,
			"lock_time":       user.LockTime,
		})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"locked": out}})
}

// Unlock handles POST /api/v1/admin/lockouts/:id/unlock.
func (h *AdminHandler) Unlock(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid user id")
	}

	unlockedBy := ""
	if principal, ok := auth.PrincipalFromContext(c); ok {
		unlockedBy = principal.Subject
	}

	if err := h.auth.Unlock(c.Context(), userID, unlockedBy); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"unlocked": userID}})
}
