package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/quiz-platform/internal/domain"
	"github.com/spec-kit/quiz-platform/internal/session"
)

const principalKey = "auth_principal"

// PrincipalResolver looks up the principal for a token or session subject.
// A nil principal with a nil error means the subject no longer resolves.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, subject string) (*domain.Principal, error)
}

// Gate is the per-request authentication entry point. It only ever installs
// a principal or leaves the request unauthenticated; it never terminates the
// request itself. Turning "no principal" into a 401 or a redirect is the job
// of the Require* guards on protected routes, so one malformed header cannot
// break unrelated public routes.
type Gate struct {
	tokens   *TokenManager
	resolver PrincipalResolver
	logger   *zap.Logger
}

// NewGate constructs the gate.
func NewGate(tokens *TokenManager, resolver PrincipalResolver, logger *zap.Logger) *Gate {
	return &Gate{tokens: tokens, resolver: resolver, logger: logger}
}

// Handle runs once at the start of every inbound request.
func (g *Gate) Handle(c *fiber.Ctx) error {
	// A principal established earlier (the session-cookie path) wins; bearer
	// checks are skipped entirely.
	if _, ok := PrincipalFromContext(c); ok {
		return c.Next()
	}

	outcome := g.tokens.Inspect(bearerToken(c))
	switch outcome.Status {
	case StatusAbsent:
		return c.Next()
	case StatusExpired, StatusMalformed:
		g.logger.Debug("bearer token rejected",
			zap.String("status", outcome.Status.String()),
			zap.String("path", c.Path()))
		return c.Next()
	}

	principal, err := g.resolver.ResolvePrincipal(c.Context(), outcome.Claims.Subject)
	if err != nil {
		g.logger.Warn("principal lookup failed", zap.Error(err), zap.String("subject", outcome.Claims.Subject))
		return c.Next()
	}
	if principal == nil {
		g.logger.Debug("token subject no longer resolves", zap.String("subject", outcome.Claims.Subject))
		return c.Next()
	}

	// Re-verify against the resolved subject before trusting the token.
	if !g.tokens.VerifySubject(bearerToken(c), principal.Subject) {
		return c.Next()
	}

	InstallPrincipal(c, principal)
	return c.Next()
}

// bearerToken extracts the bearer token from the Authorization header. A
// missing header, an empty value or a non-Bearer scheme all yield "".
func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// SessionGate resolves the stateful session-cookie path. It runs before the
// bearer Gate and follows the same contract: install a principal or continue
// unauthenticated, never abort.
type SessionGate struct {
	registry   session.Registry
	resolver   PrincipalResolver
	cookieName string
	logger     *zap.Logger
}

// NewSessionGate constructs the session middleware.
func NewSessionGate(registry session.Registry, resolver PrincipalResolver, cookieName string, logger *zap.Logger) *SessionGate {
	return &SessionGate{registry: registry, resolver: resolver, cookieName: cookieName, logger: logger}
}

// Handle resolves the session cookie, if any, into a principal. An expired
// or unknown session identifier is treated as unauthenticated.
func (g *SessionGate) Handle(c *fiber.Ctx) error {
	sessionID := c.Cookies(g.cookieName)
	if sessionID == "" {
		return c.Next()
	}

	sess, err := g.registry.Touch(c.Context(), sessionID)
	if err != nil {
		if err != session.ErrNotFound {
			g.logger.Warn("session lookup failed", zap.Error(err))
		}
		return c.Next()
	}

	principal, err := g.resolver.ResolvePrincipal(c.Context(), sess.Username)
	if err != nil || principal == nil {
		return c.Next()
	}

	InstallPrincipal(c, principal)
	c.Locals(sessionIDKey, sess.ID)
	return c.Next()
}
