package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/quiz-platform/internal/domain"
)

var (
	// ErrInvalidArgument signals an empty subject or token string. This is a
	// caller bug, never an expected outcome of network input.
	ErrInvalidArgument = errors.New("auth: invalid argument")
	// ErrTokenExpired signals a token whose expiry has passed.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenMalformed signals a structurally invalid token or a bad signature.
	ErrTokenMalformed = errors.New("auth: token malformed")
)

// Claims describes the JWT payload.
type Claims struct {
	Role   domain.Role `json:"role"`
	UserID int64       `json:"userId"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256-signed bearer tokens. It is a pure
// function of the shared secret and the claims; it keeps no external state
// and is safe for concurrent use.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue builds and signs a token for the subject. The only failure mode is
// an absent subject, reported as ErrInvalidArgument.
func (tm *TokenManager) Issue(subject string, role domain.Role, userID int64) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, fmt.Errorf("%w: empty subject", ErrInvalidArgument)
	}
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	signed, err := tm.sign(subject, role, userID, issuedAt, expiresAt)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// sign produces a compact token for arbitrary issue/expiry instants. Issue
// goes through here; tests use it directly to mint already-expired tokens.
func (tm *TokenManager) sign(subject string, role domain.Role, userID int64, issuedAt, expiresAt time.Time) (string, error) {
	claims := &Claims{
		Role:   role,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Verify parses and checks the token, returning its claims. Failures map to
// the package sentinels: ErrInvalidArgument for empty input, ErrTokenExpired
// when only the expiry check failed, ErrTokenMalformed for everything else
// (bad structure, bad signature, wrong algorithm).
func (tm *TokenManager) Verify(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidArgument)
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		// A tampered token can fail both signature and expiry checks; the
		// signature verdict wins so tampering is never reported as expiry.
		if errors.Is(err, jwt.ErrTokenMalformed) || errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid claims", ErrTokenMalformed)
	}
	return claims, nil
}

// VerifySubject reports whether the token is valid, unexpired and bound to
// the expected subject. It never returns an error: this is the hot-path
// check and the policy there is fail closed.
func (tm *TokenManager) VerifySubject(tokenStr, expectedSubject string) bool {
	if expectedSubject == "" {
		return false
	}
	claims, err := tm.Verify(tokenStr)
	if err != nil {
		return false
	}
	return claims.Subject == expectedSubject
}

// VerifyStatus classifies the outcome of inspecting a presented token.
type VerifyStatus int

const (
	StatusAbsent VerifyStatus = iota
	StatusValid
	StatusExpired
	StatusMalformed
)

func (s VerifyStatus) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusValid:
		return "valid"
	case StatusExpired:
		return "expired"
	case StatusMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Outcome is the explicit result of inspecting a token on the request path.
// Claims is non-nil exactly when Status is StatusValid.
type Outcome struct {
	Status VerifyStatus
	Claims *Claims
}

// Inspect folds every verification failure into an Outcome value so callers
// branch on status instead of catching errors.
func (tm *TokenManager) Inspect(tokenStr string) Outcome {
	if tokenStr == "" {
		return Outcome{Status: StatusAbsent}
	}
	claims, err := tm.Verify(tokenStr)
	switch {
	case err == nil:
		return Outcome{Status: StatusValid, Claims: claims}
	case errors.Is(err, ErrTokenExpired):
		return Outcome{Status: StatusExpired}
	case errors.Is(err, ErrInvalidArgument):
		return Outcome{Status: StatusAbsent}
	default:
		return Outcome{Status: StatusMalformed}
	}
}
