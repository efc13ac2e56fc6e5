package storage

import (
	"context"
	"time"

	"github.com/kopilka-app/kopilka/internal/models"
)

// UserStorage defines interface for user data persistence.
// Мутации счетчиков входа обязаны быть атомарными на уровне хранилища:
// конкурентные неудачные попытки не должны терять инкременты
type UserStorage interface {
	// CreateUser creates a new user in the storage.
	// Email пользователя должен быть уже нормализован (trim + lowercase).
	// Returns ErrUserAlreadyExists if the email is taken
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves user by normalized email
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// RecordSuccessfulLogin атомарно сбрасывает failed_login_attempts в 0,
	// снимает locked_until, выставляет last_login=now и инкрементирует login_count
	RecordSuccessfulLogin(ctx context.Context, userID string, now time.Time) error

	// RecordFailedLogin атомарно инкрементирует failed_login_attempts;
	// если новое значение достигло threshold, в той же операции выставляет
	// locked_until=lockedUntil. Возвращает новое число попыток и момент,
	// до которого аккаунт заблокирован (nil, если блокировки нет)
	RecordFailedLogin(ctx context.Context, userID string, threshold int, lockedUntil time.Time) (int, *time.Time, error)
}
