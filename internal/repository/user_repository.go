package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/quiz-platform/internal/auth"
	"github.com/spec-kit/quiz-platform/internal/domain"
)

// UserRepository defines persistence access for platform accounts, including
// the lockout accounting write-paths consumed by auth.LockoutTracker.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// auth.LockoutStore
	ReadLockout(ctx context.Context, userID int64) (auth.LockoutState, error)
	RecordFailure(ctx context.Context, userID int64, threshold int, lockTime time.Time) (auth.LockoutState, error)
	ClearLockout(ctx context.Context, userID int64) error

	UnlockExpired(ctx context.Context, before time.Time) (int64, error)
	ListLocked(ctx context.Context) ([]domain.User, error)

	// auth.PrincipalResolver
	ResolvePrincipal(ctx context.Context, subject string) (*domain.Principal, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, email, password_hash, role, failed_attempts, locked, lock_time)
        VALUES ($1, $2, $3, $4, 0, FALSE, NULL)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET username=$1, email=$2, password_hash=$3, role=$4, updated_at=NOW()
        WHERE id=$5`

	cmd, err := r.pool.Exec(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const userColumns = `id, username, email, password_hash, role, failed_attempts, locked, lock_time, created_at, updated_at`

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.FailedAttempts,
		&user.Locked,
		&user.LockTime,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const query = `UPDATE users SET password_hash=$1, updated_at=NOW() WHERE id=$2`

	cmd, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) ReadLockout(ctx context.Context, userID int64) (auth.LockoutState, error) {
	const query = `SELECT failed_attempts, locked, lock_time FROM users WHERE id=$1`

	var state auth.LockoutState
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&state.FailedAttempts,
		&state.Locked,
		&state.LockTime,
	); err != nil {
		return auth.LockoutState{}, err
	}
	return state, nil
}

// RecordFailure applies count+1 and the possible lock transition in a single
// UPDATE so concurrent failed attempts for the same account serialize on the
// row and never lose an increment.
func (r *userRepository) RecordFailure(ctx context.Context, userID int64, threshold int, lockTime time.Time) (auth.LockoutState, error) {
	const query = `
        UPDATE users
        SET failed_attempts = failed_attempts + 1,
            locked = (failed_attempts + 1 >= $2),
            lock_time = CASE WHEN failed_attempts + 1 >= $2 THEN $3 ELSE lock_time END,
            updated_at = NOW()
        WHERE id = $1
        RETURNING failed_attempts, locked, lock_time`

	var state auth.LockoutState
	if err := r.pool.QueryRow(ctx, query, userID, threshold, lockTime).Scan(
		&state.FailedAttempts,
		&state.Locked,
		&state.LockTime,
	); err != nil {
		return auth.LockoutState{}, err
	}
	return state, nil
}

func (r *userRepository) ClearLockout(ctx context.Context, userID int64) error {
	const query = `
        UPDATE users
        SET failed_attempts = 0, locked = FALSE, lock_time = NULL, updated_at = NOW()
        WHERE id = $1`

	cmd, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UnlockExpired clears every lock whose window elapsed before the given
// instant. Used by the background sweep; the per-request gate never assumes
// this has run.
func (r *userRepository) UnlockExpired(ctx context.Context, before time.Time) (int64, error) {
	const query = `
        UPDATE users
        SET failed_attempts = 0, locked = FALSE, lock_time = NULL, updated_at = NOW()
        WHERE locked AND lock_time <= $1`

	cmd, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *userRepository) ListLocked(ctx context.Context) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE locked ORDER BY lock_time`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.PasswordHash,
			&user.Role,
			&user.FailedAttempts,
			&user.Locked,
			&user.LockTime,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// ResolvePrincipal maps a token or session subject to a request principal.
// An unknown subject is (nil, nil), not an error: the gate treats it as
// "proceed unauthenticated".
func (r *userRepository) ResolvePrincipal(ctx context.Context, subject string) (*domain.Principal, error) {
	const query = `SELECT id, username, role FROM users WHERE username=$1`

	var principal domain.Principal
	if err := r.pool.QueryRow(ctx, query, subject).Scan(
		&principal.UserID,
		&principal.Subject,
		&principal.Role,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &principal, nil
}
