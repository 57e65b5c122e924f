package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/quiz-platform/internal/domain"
	"github.com/spec-kit/quiz-platform/internal/session"
)

type staticResolver struct {
	principals map[string]*domain.Principal
	err        error
}

func (r *staticResolver) ResolvePrincipal(_ context.Context, subject string) (*domain.Principal, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.principals[subject], nil
}

type gateFixture struct {
	app      *fiber.App
	tokens   *TokenManager
	registry *session.MemoryRegistry
}

func newGateFixture(resolver *staticResolver) *gateFixture {
	logger := zap.NewNop()
	tokens := NewTokenManager("gate-test-secret", time.Hour)
	registry := session.NewMemoryRegistry(3, 30*time.Minute)

	app := fiber.New()
	app.Use(NewSessionGate(registry, resolver, "quiz_session", logger).Handle)
	app.Use(NewGate(tokens, resolver, logger).Handle)

	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }
	app.Get("/public", ok)
	app.Get("/dashboard", RequireAuthenticated(), ok)
	app.Get("/api/v1/me", RequireAuthenticated(), func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		return c.JSON(fiber.Map{"username": principal.Subject, "role": principal.Role})
	})
	app.Get("/api/v1/admin/lockouts", RequireRole(domain.RoleAdmin), ok)

	return &gateFixture{app: app, tokens: tokens, registry: registry}
}

func aliceResolver() *staticResolver {
	return &staticResolver{principals: map[string]*domain.Principal{
		"alice": {Subject: "alice", Role: domain.RoleParticipant, UserID: 1},
		"root":  {Subject: "root", Role: domain.RoleAdmin, UserID: 2},
	}}
}

func TestGate_PublicRouteWithoutCredentials(t *testing.T) {
	f := newGateFixture(aliceResolver())

	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/public", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGate_ProtectedAPIRouteWithoutCredentials(t *testing.T) {
	f := newGateFixture(aliceResolver())

	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body struct {
		Status  int    `json:"status"`
		Error   string `json:"error"`
		Message string `json:"message"`
		Path    string `json:"path"`
	}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, http.StatusUnauthorized, body.Status)
	assert.Equal(t, "Unauthorized", body.Error)
	assert.Equal(t, "/api/v1/me", body.Path)
}

func TestGate_ProtectedBrowserRouteRedirects(t *testing.T) {
	f := newGateFixture(aliceResolver())

	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestGate_ValidBearerToken(t *testing.T) {
	f := newGateFixture(aliceResolver())

	token, _, err := f.tokens.Issue("alice", domain.RoleParticipant, 1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "alice")
}

func TestGate_MalformedTokenNeverBreaksChain(t *testing.T) {
	f := newGateFixture(aliceResolver())

	// A garbage credential on a public route must not disturb it.
	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// On a protected route it degrades to plain unauthenticated, not a 500.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	resp, err = f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGate_WrongSchemeIsNoCredential(t *testing.T) {
	f := newGateFixture(aliceResolver())

	token, _, err := f.tokens.Issue("alice", domain.RoleParticipant, 1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Token "+token)

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGate_ExpiredToken(t *testing.T) {
	f := newGateFixture(aliceResolver())

	now := time.Now()
	token, err := f.tokens.sign("alice", domain.RoleParticipant, 1, now.Add(-2*time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGate_UnknownSubjectProceedsUnauthenticated(t *testing.T) {
	f := newGateFixture(aliceResolver())

	token, _, err := f.tokens.Issue("ghost", domain.RoleParticipant, 99)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGate_RoleGuard(t *testing.T) {
	f := newGateFixture(aliceResolver())

	participant, _, err := f.tokens.Issue("alice", domain.RoleParticipant, 1)
	require.NoError(t, err)
	admin, _, err := f.tokens.Issue("root", domain.RoleAdmin, 2)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/lockouts", nil)
	req.Header.Set("Authorization", "Bearer "+participant)
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/lockouts", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err = f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionGate_CookieEstablishesPrincipal(t *testing.T) {
	f := newGateFixture(aliceResolver())

	sess, err := f.registry.Register(context.Background(), "alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: "quiz_session", Value: sess.ID})

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionGate_SessionPathSkipsBearerChecks(t *testing.T) {
	f := newGateFixture(aliceResolver())

	sess, err := f.registry.Register(context.Background(), "alice")
	require.NoError(t, err)

	// A broken bearer header alongside a valid session must not matter: the
	// session-established principal short-circuits token verification.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: "quiz_session", Value: sess.ID})
	req.Header.Set("Authorization", "Bearer broken")

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionGate_UnknownCookieIsUnauthenticated(t *testing.T) {
	f := newGateFixture(aliceResolver())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: "quiz_session", Value: "no-such-session"})

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionGate_RevokedCookieIsUnauthenticated(t *testing.T) {
	f := newGateFixture(aliceResolver())

	sess, err := f.registry.Register(context.Background(), "alice")
	require.NoError(t, err)
	require.NoError(t, f.registry.Revoke(context.Background(), sess.ID))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: "quiz_session", Value: sess.ID})

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
