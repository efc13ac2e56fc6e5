// Package config загружает конфигурацию сервера из переменных окружения
// с опциональным оверлеем из .env файла.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Режимы работы приложения
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// MinJWTSecretLen — минимальная длина секрета подписи токенов.
// С коротким секретом сервер не стартует
const MinJWTSecretLen = 32

// Config содержит настройки сервера
type Config struct {
	Env              string        // development или production
	ListenAddr       string        // адрес HTTP сервера
	DatabasePath     string        // путь к SQLite базе (":memory:" для тестов)
	AuditLogPath     string        // путь к bbolt файлу журнала безопасности
	JWTSecret        string        // секрет подписи сессионных токенов
	TokenTTL         time.Duration // время жизни сессионного токена
	CookieSecure     bool          // флаг Secure у сессионной cookie
	CookieSameSite   string        // strict, lax или none
	MaxBodyBytes     int64         // максимальный размер тела запроса
	RateLimitMax     int           // лимит общего API трафика на IP за окно
	RateLimitWindow  time.Duration // окно общего лимита
	AuthRateMax      int           // лимит auth-запросов на IP за окно
	AuthRateWindow   time.Duration // окно auth-лимита
	LockoutThreshold int           // неудачных попыток до блокировки аккаунта
	LockoutDuration  time.Duration // длительность блокировки
}

// Load читает конфигурацию из окружения.
// .env подхватывается, если присутствует; отсутствие файла не ошибка.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:              getEnv("APP_ENV", EnvDevelopment),
		ListenAddr:       getEnv("LISTEN_ADDR", ":4000"),
		DatabasePath:     getEnv("DATABASE_PATH", "kopilka.db"),
		AuditLogPath:     getEnv("AUDIT_LOG_PATH", "kopilka_audit.db"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		TokenTTL:         getDuration("TOKEN_TTL", 7*24*time.Hour),
		CookieSecure:     getBool("COOKIE_SECURE", false),
		CookieSameSite:   getEnv("COOKIE_SAME_SITE", "lax"),
		MaxBodyBytes:     getInt64("MAX_BODY_BYTES", 10<<20),
		RateLimitMax:     getInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow:  getDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		AuthRateMax:      getInt("AUTH_RATE_LIMIT_MAX", 5),
		AuthRateWindow:   getDuration("AUTH_RATE_LIMIT_WINDOW", 15*time.Minute),
		LockoutThreshold: getInt("LOCKOUT_THRESHOLD", 5),
		LockoutDuration:  getDuration("LOCKOUT_DURATION", 30*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < MinJWTSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d characters long", MinJWTSecretLen)
	}
	switch c.CookieSameSite {
	case "strict", "lax", "none":
	default:
		return fmt.Errorf("COOKIE_SAME_SITE must be strict, lax or none, got %q", c.CookieSameSite)
	}
	if c.LockoutThreshold < 1 {
		return fmt.Errorf("LOCKOUT_THRESHOLD must be positive")
	}
	return nil
}

// IsDevelopment возвращает true в режиме разработки.
// В этом режиме внутренние детали ошибок попадают в ответы API
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
