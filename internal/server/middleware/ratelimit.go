package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/kopilka-app/kopilka/internal/server/handlers"
	"github.com/kopilka-app/kopilka/internal/server/security"
	"github.com/kopilka-app/kopilka/pkg/api"
)

const msgRateLimited = "Too many requests, please try again later"

// RateLimiter ограничивает частоту запросов по ключу (обычно IP)
// в фиксированном окне
type RateLimiter struct {
	buckets  map[string]*bucket
	logger   *slog.Logger
	cleanupC chan struct{}
	rate     int
	window   time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

// bucket представляет счетчик для конкретного ключа
type bucket struct {
	windowStart time.Time
	count       int
	mu          sync.Mutex
}

// NewRateLimiter создает новый rate limiter
// rate - максимальное количество запросов в окне
// window - временное окно (например, 15 минут)
func NewRateLimiter(rate int, window time.Duration, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		window:   window,
		logger:   logger,
		now:      time.Now,
		cleanupC: make(chan struct{}),
	}

	// Запускаем периодическую очистку старых buckets
	go rl.cleanupLoop()

	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupOldBuckets()
		case <-rl.cleanupC:
			return
		}
	}
}

// cleanupOldBuckets удаляет buckets, которые не использовались дольше window
func (rl *RateLimiter) cleanupOldBuckets() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		b.mu.Lock()
		if now.Sub(b.windowStart) > rl.window*2 {
			delete(rl.buckets, key)
		}
		b.mu.Unlock()
	}
}

// Stop останавливает cleanup goroutine
func (rl *RateLimiter) Stop() {
	close(rl.cleanupC)
}

func (rl *RateLimiter) bucketFor(key string) *bucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{windowStart: rl.now()}
		rl.buckets[key] = b
	}
	return b
}

// Allow проверяет, разрешен ли запрос для данного ключа.
// Счетчик и проверка лимита выполняются под одним мьютексом bucket'а
func (rl *RateLimiter) Allow(key string) bool {
	b := rl.bucketFor(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := rl.now()
	if now.Sub(b.windowStart) >= rl.window {
		b.windowStart = now
		b.count = 0
	}

	if b.count >= rl.rate {
		return false
	}

	b.count++
	return true
}

// Forgive возвращает одну потраченную попытку.
// Успешные auth запросы не должны приближать блокировку легитимного
// клиента за одним NAT с атакующим
func (rl *RateLimiter) Forgive(key string) {
	b := rl.bucketFor(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count > 0 {
		b.count--
	}
}

// RateLimitMiddleware создает middleware для ограничения частоты запросов.
// Отклоненный запрос не доходит до обработчика
func RateLimitMiddleware(limiter *RateLimiter, recorder *security.Recorder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := handlers.ClientIP(r)

			if !limiter.Allow(key) {
				recorder.Record(r.Context(), security.EventRateLimitExceeded,
					security.Meta{SourceIP: key, Path: r.URL.Path}, "", "", "")
				handlers.SendError(logger, w, http.StatusTooManyRequests, msgRateLimited, api.CodeRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuthRateLimitMiddleware создает более жесткий limiter для auth эндпоинтов.
// Успешные ответы (< 400) возвращают попытку обратно, неудачные всегда
// остаются потраченными
func AuthRateLimitMiddleware(limiter *RateLimiter, recorder *security.Recorder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := handlers.ClientIP(r)

			if !limiter.Allow(key) {
				recorder.Record(r.Context(), security.EventRateLimitExceeded,
					security.Meta{SourceIP: key, Path: r.URL.Path}, "", "", "auth")
				handlers.SendError(logger, w, http.StatusTooManyRequests, msgRateLimited, api.CodeRateLimited)
				return
			}

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			if wrapped.statusCode < http.StatusBadRequest {
				limiter.Forgive(key)
			}
		})
	}
}
