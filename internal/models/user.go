package models

import "time"

// User представляет учетную запись в системе
// Поля блокировки и хеш пароля наружу не отдаются (json:"-")
type User struct {
	ID                  string     `json:"id"`        // UUID пользователя
	Email               string     `json:"email"`     // нормализованный email (trim + lowercase)
	PasswordHash        string     `json:"-"`         // bcrypt хеш пароля
	FailedLoginAttempts int        `json:"-"`         // подряд идущие неудачные попытки входа
	LockedUntil         *time.Time `json:"-"`         // до какого момента аккаунт заблокирован
	LastLogin           *time.Time `json:"lastLogin"` // время последнего успешного входа
	LoginCount          int        `json:"loginCount"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// IsLocked возвращает true, если аккаунт заблокирован на момент now.
// Блокировка "ленивая": отдельной операции разблокировки нет,
// истекшая метка времени просто перестает действовать.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// LockRemaining возвращает оставшееся время блокировки на момент now.
// Возвращает 0, если аккаунт не заблокирован или блокировка истекла.
func (u *User) LockRemaining(now time.Time) time.Duration {
	if u.LockedUntil == nil {
		return 0
	}
	remaining := u.LockedUntil.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
