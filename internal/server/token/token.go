// Package token выпускает и проверяет подписанные сессионные токены.
// Сервис stateless: валидность определяется только подписью и сроком,
// никакого серверного хранилища токенов нет.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kopilka-app/kopilka/internal/apperror"
)

// MinSecretLen — минимальная длина секрета подписи
const MinSecretLen = 32

const issuer = "kopilka"

// Claims представляет содержимое сессионного токена
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Service подписывает и проверяет сессионные токены (HS256)
type Service struct {
	now    func() time.Time
	secret []byte
	ttl    time.Duration
}

// New создает сервис токенов.
// Отказывается стартовать с коротким секретом
func New(secret string, ttl time.Duration) (*Service, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("signing secret must be at least %d bytes, got %d", MinSecretLen, len(secret))
	}

	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL возвращает время жизни выпускаемых токенов
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue выпускает подписанный токен для пользователя
func (s *Service) Issue(userID, email string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID,
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Verify проверяет подпись и срок действия токена.
// Истекший токен отличим от искаженного: клиенту полезно знать,
// что сессия именно протухла
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsedToken, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		// принимаем только HMAC: подсунутый RS256 с публичным ключом не пройдет
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.New(apperror.KindTokenExpired, "Token expired", err)
		}
		return nil, apperror.New(apperror.KindInvalidToken, "Invalid token", err)
	}

	if !parsedToken.Valid {
		return nil, apperror.New(apperror.KindInvalidToken, "Invalid token", nil)
	}

	return claims, nil
}
