package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kopilka-app/kopilka/internal/models"
	"github.com/kopilka-app/kopilka/internal/server/storage"
)

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, failed_login_attempts, locked_until,
		                   last_login, login_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FailedLoginAttempts,
		user.LockedUntil,
		user.LastLogin,
		user.LoginCount,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves user by normalized email
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, failed_login_attempts, locked_until,
		       last_login, login_count, created_at, updated_at
		FROM users
		WHERE email = ?
	`

	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, failed_login_attempts, locked_until,
		       last_login, login_count, created_at, updated_at
		FROM users
		WHERE id = ?
	`

	return s.scanUser(s.db.QueryRowContext(ctx, query, userID))
}

// RecordSuccessfulLogin сбрасывает состояние блокировки и фиксирует вход.
// Один UPDATE: сброс счетчика, снятие locked_until, last_login и login_count
// меняются неразделимо
func (s *Storage) RecordSuccessfulLogin(ctx context.Context, userID string, now time.Time) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0,
		    locked_until = NULL,
		    last_login = ?,
		    login_count = login_count + 1,
		    updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, now, now, userID)
	if err != nil {
		return fmt.Errorf("failed to record successful login: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// RecordFailedLogin инкрементирует счетчик неудач и при достижении порога
// выставляет блокировку — в одном statement'е. Чтение текущего значения
// с последующей записью здесь недопустимо: конкурентные попытки теряли бы
// инкременты и переход в блокировку становился бы недетерминированным
func (s *Storage) RecordFailedLogin(ctx context.Context, userID string, threshold int, lockedUntil time.Time) (int, *time.Time, error) {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE
		        WHEN failed_login_attempts + 1 >= ? THEN ?
		        ELSE locked_until
		    END,
		    updated_at = ?
		WHERE id = ?
		RETURNING failed_login_attempts, locked_until
	`

	var attempts int
	var locked sql.NullTime

	err := s.db.QueryRowContext(ctx, query, threshold, lockedUntil, lockedUntil, userID).
		Scan(&attempts, &locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, storage.ErrUserNotFound
		}
		return 0, nil, fmt.Errorf("failed to record failed login: %w", err)
	}

	if locked.Valid {
		t := locked.Time
		return attempts, &t, nil
	}

	return attempts, nil, nil
}

func (s *Storage) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var lockedUntil, lastLogin sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FailedLoginAttempts,
		&lockedUntil,
		&lastLogin,
		&user.LoginCount,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if lockedUntil.Valid {
		user.LockedUntil = &lockedUntil.Time
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}

	return user, nil
}
