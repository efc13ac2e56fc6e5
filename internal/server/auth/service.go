// Package auth реализует регистрацию и вход с защитой от перебора:
// блокировка аккаунта по счетчику неудач и неотличимость ответов
// для несуществующего email и неверного пароля.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/kopilka-app/kopilka/internal/apperror"
	"github.com/kopilka-app/kopilka/internal/crypto"
	"github.com/kopilka-app/kopilka/internal/models"
	"github.com/kopilka-app/kopilka/internal/server/security"
	"github.com/kopilka-app/kopilka/internal/server/storage"
	"github.com/kopilka-app/kopilka/internal/server/token"
	"github.com/kopilka-app/kopilka/internal/validation"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgUserExists         = "User with this email already exists"
)

// Session — результат успешной аутентификации
type Session struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// Service is the authentication service
type Service struct {
	storage  storage.UserStorage
	tokens   *token.Service
	recorder *security.Recorder
	log      *slog.Logger

	threshold int
	lockout   time.Duration

	// подменяются в тестах
	now      func() time.Time
	delayMin time.Duration
	delayMax time.Duration
}

// New creates the authentication service
func New(userStorage storage.UserStorage, tokens *token.Service, recorder *security.Recorder, log *slog.Logger, threshold int, lockout time.Duration) *Service {
	return &Service{
		storage:   userStorage,
		tokens:    tokens,
		recorder:  recorder,
		log:       log,
		threshold: threshold,
		lockout:   lockout,
		now:       time.Now,
		delayMin:  100 * time.Millisecond,
		delayMax:  200 * time.Millisecond,
	}
}

// Register validates credentials, creates the user and opens a session
func (s *Service) Register(ctx context.Context, meta security.Meta, email, password string) (*Session, error) {
	email = validation.NormalizeEmail(email)

	if err := validation.ValidateEmail(email); err != nil {
		s.recorder.Record(ctx, security.EventRegisterFailure, meta, email, "", "invalid email")
		return nil, apperror.New(apperror.KindValidation, err.Error(), err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		s.recorder.Record(ctx, security.EventRegisterFailure, meta, email, "", "weak password")
		return nil, apperror.New(apperror.KindValidation, err.Error(), err)
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			s.recorder.Record(ctx, security.EventRegisterFailure, meta, email, "", "duplicate email")
			return nil, apperror.New(apperror.KindDuplicate, msgUserExists, err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	tokenString, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, security.EventRegisterSuccess, meta, email, user.ID, "")

	return &Session{User: user, Token: tokenString, ExpiresAt: expiresAt}, nil
}

// Login authenticates the user and opens a session.
// Несуществующий email и неверный пароль дают одинаковый ответ
// и сопоставимую задержку
func (s *Service) Login(ctx context.Context, meta security.Meta, email, password string) (*Session, error) {
	email = validation.NormalizeEmail(email)
	now := s.now().UTC()

	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.recorder.Record(ctx, security.EventLoginFailure, meta, email, "", "unknown email")
			return nil, s.rejectCredentials(ctx)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	// заблокированный аккаунт отвечает сразу: хешер не вызывается,
	// счетчик не трогается, блокировка не продлевается
	if user.IsLocked(now) {
		s.recorder.Record(ctx, security.EventAccountLocked, meta, email, user.ID, "login attempt while locked")
		return nil, s.lockedError(user.LockRemaining(now))
	}

	if !crypto.VerifyPassword(password, user.PasswordHash) {
		attempts, lockedUntil, err := s.storage.RecordFailedLogin(ctx, user.ID, s.threshold, now.Add(s.lockout))
		if err != nil {
			return nil, fmt.Errorf("failed to record failed login: %w", err)
		}

		if lockedUntil != nil {
			s.recorder.Record(ctx, security.EventAccountLocked, meta, email, user.ID,
				fmt.Sprintf("locked after %d failed attempts", attempts))
			return nil, s.lockedError(lockedUntil.Sub(now))
		}

		s.recorder.Record(ctx, security.EventLoginFailure, meta, email, user.ID,
			fmt.Sprintf("invalid password, attempt %d", attempts))
		return nil, s.rejectCredentials(ctx)
	}

	if err := s.storage.RecordSuccessfulLogin(ctx, user.ID, now); err != nil {
		s.log.ErrorContext(ctx, "failed to record successful login", "error", err, "user_id", user.ID)
		return nil, fmt.Errorf("failed to record successful login: %w", err)
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLogin = &now
	user.LoginCount++

	tokenString, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, security.EventLoginSuccess, meta, email, user.ID, "")

	return &Session{User: user, Token: tokenString, ExpiresAt: expiresAt}, nil
}

// GetUser returns the user for an authenticated session
func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apperror.New(apperror.KindNotFound, "User not found", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// rejectCredentials выдерживает случайную паузу и возвращает единый
// отказ. Пауза размывает разницу во времени между веткой "email не
// найден" (bcrypt не вызывался) и веткой "пароль не подошел"
func (s *Service) rejectCredentials(ctx context.Context) error {
	reject := apperror.New(apperror.KindInvalidCredentials, msgInvalidCredentials, nil)

	span := s.delayMax - s.delayMin
	delay := s.delayMin
	if span > 0 {
		delay += rand.N(span)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return reject
	case <-ctx.Done():
		// клиент уже ушел, ждать нечего
		return reject
	}
}

func (s *Service) lockedError(remaining time.Duration) error {
	minutes := int(math.Ceil(remaining.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return apperror.New(apperror.KindAccountLocked,
		fmt.Sprintf("Account is temporarily locked due to too many failed login attempts. Try again in %d minutes", minutes),
		nil)
}
