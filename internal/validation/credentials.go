package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// EmailPattern определяет допустимый формат email
// Сознательно упрощенный: точная проверка происходит при доставке письма,
// здесь отсекаем только очевидный мусор
var EmailPattern = regexp.MustCompile(`^[\w.+-]+@[\w-]+(\.[\w-]+)+$`)

const (
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 8
	// MaxEmailLen максимальная длина email
	MaxEmailLen = 254
)

// NormalizeEmail приводит email к каноническому виду: trim + lowercase.
// Все сравнения идентичности в системе идут по нормализованному значению.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail проверяет, что email соответствует требованиям
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	if len(email) > MaxEmailLen {
		return fmt.Errorf("email must not exceed %d characters", MaxEmailLen)
	}

	if !EmailPattern.MatchString(email) {
		return fmt.Errorf("please provide a valid email address")
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю:
// не короче 8 символов, минимум одна строчная и одна заглавная буква и цифра
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}

	var hasLower, hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}

	if !hasLower || !hasUpper || !hasDigit {
		return fmt.Errorf("password must contain at least one uppercase letter, one lowercase letter, and one number")
	}

	return nil
}
