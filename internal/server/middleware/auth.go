package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kopilka-app/kopilka/internal/apperror"
	"github.com/kopilka-app/kopilka/internal/server/handlers"
	"github.com/kopilka-app/kopilka/internal/server/token"
)

// AuthMiddleware создает middleware для проверки сессионного токена.
// Токен читается из HttpOnly cookie, заголовки не используются
func AuthMiddleware(logger *slog.Logger, tokens *token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(handlers.SessionCookieName)
			if err != nil || cookie.Value == "" {
				logger.Warn("Missing session cookie", "path", r.URL.Path)
				handlers.SendError(logger, w, http.StatusUnauthorized, "Authentication required", "")
				return
			}

			claims, err := tokens.Verify(cookie.Value)
			if err != nil {
				logger.Warn("Invalid session token", "error", err, "path", r.URL.Path)
				handlers.SendError(logger, w, http.StatusUnauthorized, apperror.MessageOf(err), "")
				return
			}

			// Добавляем данные из токена в контекст
			ctx := context.WithValue(r.Context(), handlers.UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, handlers.EmailKey, claims.Email)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
