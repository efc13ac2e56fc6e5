package crypto

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost — стоимость bcrypt для хеширования паролей.
// 12 вместо дефолтных 10: дороже для offline перебора
const PasswordHashCost = 12

// HashPassword хеширует пароль через bcrypt с солью.
// Каждый вызов дает разный digest для одного и того же пароля (свежая соль).
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword проверяет пароль против сохраненного хеша.
// Сравнение внутри bcrypt выполняется за константное время.
// Некорректный формат хеша дает false, а не ошибку: вызывающий код
// всегда идет по единому пути "invalid credentials".
func VerifyPassword(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
