package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kopilka-app/kopilka/internal/apperror"
	"github.com/kopilka-app/kopilka/pkg/api"
)

// contextKey тип для ключей контекста
type contextKey string

const (
	// UserIDKey ключ для хранения user_id в контексте
	UserIDKey contextKey = "user_id"
	// EmailKey ключ для хранения email в контексте
	EmailKey contextKey = "email"
)

// ClientIP извлекает IP адрес клиента из запроса.
// Проверяет заголовки X-Forwarded-For и X-Real-IP для прокси
func ClientIP(r *http.Request) string {
	// X-Forwarded-For: берем первый IP из списка (реальный клиент)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}

// SendJSON отправляет JSON ответ в едином конверте
func SendJSON(logger *slog.Logger, w http.ResponseWriter, statusCode int, resp api.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// SendError отправляет JSON ответ с ошибкой
func SendError(logger *slog.Logger, w http.ResponseWriter, statusCode int, message, errorCode string) {
	SendJSON(logger, w, statusCode, api.Response{
		Success:   false,
		Message:   message,
		ErrorCode: errorCode,
	})
}

// SendAppError отображает ошибку приложения на HTTP ответ.
// Внутренние детали попадают в поле error только в development режиме
func SendAppError(logger *slog.Logger, w http.ResponseWriter, err error, development bool) {
	status := http.StatusInternalServerError
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		status = appErr.HTTPStatus()
	}

	resp := api.Response{
		Success:   false,
		Message:   apperror.MessageOf(err),
		ErrorCode: errorCodeFor(apperror.KindOf(err)),
	}

	if development && appErr != nil && appErr.Err != nil {
		resp.Error = appErr.Err.Error()
	}
	if development && appErr == nil && err != nil {
		resp.Error = err.Error()
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.Any("error", err))
	}

	SendJSON(logger, w, status, resp)
}

func errorCodeFor(kind apperror.Kind) string {
	switch kind {
	case apperror.KindAccountLocked:
		return api.CodeAccountLocked
	case apperror.KindRateLimited:
		return api.CodeRateLimited
	case apperror.KindValidation:
		return api.CodeInvalidRequest
	default:
		return ""
	}
}
