// Package apperror определяет типизированные ошибки приложения
// и их отображение на HTTP статусы на границе handler'ов.
package apperror

import (
	"errors"
	"net/http"
)

// Kind классифицирует ошибку приложения
type Kind int

const (
	// KindInternal — неожиданная внутренняя ошибка (500)
	KindInternal Kind = iota
	// KindValidation — некорректный или подозрительный ввод (400)
	KindValidation
	// KindDuplicate — конфликт идентичности, например занятый email (409)
	KindDuplicate
	// KindInvalidCredentials — неизвестный email или неверный пароль (401).
	// Единый вид для обоих случаев: анти-enumeration, не упрощение
	KindInvalidCredentials
	// KindAccountLocked — аккаунт временно заблокирован (401)
	KindAccountLocked
	// KindInvalidToken — подпись токена не сошлась или токен искажен (401)
	KindInvalidToken
	// KindTokenExpired — токен валиден, но истек (401)
	KindTokenExpired
	// KindNotFound — ресурс не найден (404)
	KindNotFound
	// KindRateLimited — превышен лимит запросов (429)
	KindRateLimited
)

// Error — ошибка приложения с классификацией и публичным сообщением.
// Message безопасно отдавать клиенту; Err — внутренняя причина для логов.
type Error struct {
	Err     error
	Message string
	Kind    Kind
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New создает ошибку приложения
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// HTTPStatus возвращает HTTP статус для данного вида ошибки
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindDuplicate:
		return http.StatusConflict
	case KindInvalidCredentials, KindAccountLocked, KindInvalidToken, KindTokenExpired:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// KindOf возвращает Kind ошибки; не-apperror ошибки считаются внутренними
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf возвращает публичное сообщение ошибки.
// Для не-apperror ошибок отдается generic текст: внутренние детали
// не должны утекать клиенту
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}
