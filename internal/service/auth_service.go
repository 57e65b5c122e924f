package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/quiz-platform/internal/auth"
	"github.com/spec-kit/quiz-platform/internal/config"
	"github.com/spec-kit/quiz-platform/internal/domain"
	"github.com/spec-kit/quiz-platform/internal/events"
	"github.com/spec-kit/quiz-platform/internal/repository"
	"github.com/spec-kit/quiz-platform/internal/session"
	apperrors "github.com/spec-kit/quiz-platform/pkg/util"
)

// AuthService coordinates registration, login and password flows.
//
// Logout destroys the server-side session and clears the cookie path only;
// bearer tokens issued earlier stay valid until their expiry. There is no
// revocation store, a deliberate property of the single-secret design.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	sessions   session.Registry
	tokenMgr   *auth.TokenManager
	lockouts   *auth.LockoutTracker
	comparator auth.Comparator
	dispatcher events.Dispatcher
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Sessions          session.Registry
	Dispatcher        events.Dispatcher
	// Comparator defaults to bcrypt when nil.
	Comparator auth.Comparator
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	comparator := deps.Comparator
	if comparator == nil {
		comparator = auth.BcryptComparator{}
	}
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		sessions:   deps.Sessions,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
		lockouts:   auth.NewLockoutTracker(deps.UserRepo, cfg.Auth.LockoutThreshold, cfg.Auth.LockoutDuration()),
		comparator: comparator,
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// Register creates a PARTICIPANT account. The password must pass the policy
// evaluator; every violation is reported at once.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	evaluation := auth.EvaluatePassword(password)
	if !evaluation.Valid {
		return nil, apperrors.NewValidationError("password does not meet policy", map[string]any{
			"errors":        evaluation.Errors,
			"strengthScore": evaluation.StrengthScore,
			"strengthLevel": evaluation.StrengthLevel,
		})
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflict("username already taken", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleParticipant,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserRegistered, username, events.UserRegisteredPayload{Role: user.Role, Email: email})
	return user, nil
}

// LoginResult carries everything a successful login produces.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
	Session   *session.Session
}

// Login runs the two-step authentication protocol: the lockout gate first,
// and only on OK the credential comparison. A locked account is rejected
// before any password work, so the response cannot leak whether the
// submitted password would have matched.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.publish(ctx, events.EventLoginFailed, username, events.LoginFailedPayload{Reason: "unknown user"})
			return nil, apperrors.NewCredentialsRejected()
		}
		return nil, err
	}

	if err := s.lockouts.CheckGate(ctx, user.ID); err != nil {
		if errors.Is(err, auth.ErrAccountLocked) {
			s.publish(ctx, events.EventLoginFailed, username, events.LoginFailedPayload{Reason: "account locked"})
			return nil, apperrors.NewAccountLocked("account temporarily locked due to repeated failed logins")
		}
		return nil, err
	}

	if err := s.comparator.Compare(user.PasswordHash, password); err != nil {
		locked, recErr := s.lockouts.RecordFailure(ctx, user.ID)
		if recErr != nil {
			return nil, recErr
		}
		if locked {
			s.publish(ctx, events.EventAccountLocked, username, events.AccountLockedPayload{
				LockTime: time.Now(),
				Email:    user.Email,
			})
		}
		s.publish(ctx, events.EventLoginFailed, username, events.LoginFailedPayload{Reason: "bad credentials"})
		return nil, apperrors.NewCredentialsRejected()
	}

	if err := s.lockouts.RecordSuccess(ctx, user.ID); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokenMgr.Issue(user.Username, user.Role, user.ID)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Register(ctx, user.Username)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventLoginSucceeded, username, nil)
	s.publish(ctx, events.EventSessionRegistered, username, events.SessionPayload{SessionID: sess.ID})

	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt, Session: sess}, nil
}

// Logout revokes the interactive session. Outstanding bearer tokens are
// unaffected.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, sessionID)
}

// Sessions lists the caller's active sessions, oldest first.
func (s *AuthService) Sessions(ctx context.Context, username string) ([]session.Session, error) {
	return s.sessions.Active(ctx, username)
}

// RevokeSession removes one of the caller's own sessions.
func (s *AuthService) RevokeSession(ctx context.Context, username, sessionID string) error {
	active, err := s.sessions.Active(ctx, username)
	if err != nil {
		return err
	}
	for _, sess := range active {
		if sess.ID == sessionID {
			if err := s.sessions.Revoke(ctx, sessionID); err != nil {
				return err
			}
			s.publish(ctx, events.EventSessionEvicted, username, events.SessionPayload{SessionID: sessionID})
			return nil
		}
	}
	return apperrors.NewNotFound("session", nil)
}

// ChangePassword verifies the current password before updating to the new
// hash; the new password is re-evaluated against the policy.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.comparator.Compare(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewCredentialsRejected()
	}

	evaluation := auth.EvaluatePassword(newPassword)
	if !evaluation.Valid {
		return apperrors.NewValidationError("password does not meet policy", map[string]any{
			"errors": evaluation.Errors,
		})
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	s.publish(ctx, events.EventPasswordChanged, user.Username, nil)
	return nil
}

// RequestPasswordReset persists a reset token for the account email.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates the password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		return err
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("reset token expired or used", nil)
	}

	evaluation := auth.EvaluatePassword(newPassword)
	if !evaluation.Valid {
		return apperrors.NewValidationError("password does not meet policy", map[string]any{
			"errors": evaluation.Errors,
		})
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, token.UserID, hash); err != nil {
		return err
	}
	return s.resets.MarkUsed(ctx, token.ID)
}

// LockedAccounts lists accounts currently in the LOCKED state.
func (s *AuthService) LockedAccounts(ctx context.Context) ([]domain.User, error) {
	return s.users.ListLocked(ctx)
}

// Unlock manually clears a lock ahead of its window; an admin operation.
func (s *AuthService) Unlock(ctx context.Context, userID int64, unlockedBy string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.ClearLockout(ctx, userID); err != nil {
		return err
	}
	s.publish(ctx, events.EventAccountUnlocked, user.Username, events.AccountUnlockedPayload{UnlockedBy: unlockedBy})
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, username string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Username:  username,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
