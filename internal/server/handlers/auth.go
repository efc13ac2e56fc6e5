package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kopilka-app/kopilka/internal/server/auth"
	"github.com/kopilka-app/kopilka/internal/server/security"
	"github.com/kopilka-app/kopilka/pkg/api"
)

// SessionCookieName — имя cookie с сессионным токеном
const SessionCookieName = "token"

// CookieConfig определяет атрибуты сессионной cookie
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
}

// AuthHandler обрабатывает запросы регистрации и входа
type AuthHandler struct {
	logger      *slog.Logger
	auth        *auth.Service
	cookie      CookieConfig
	development bool
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, authService *auth.Service, cookie CookieConfig, development bool) *AuthHandler {
	return &AuthHandler{
		logger:      logger,
		auth:        authService,
		cookie:      cookie,
		development: development,
	}
}

// Register обрабатывает POST /api/v1/auth/register
// Регистрация нового пользователя
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode register request", slog.Any("error", err))
		SendError(h.logger, w, http.StatusBadRequest, "Invalid request body", api.CodeInvalidRequest)
		return
	}

	session, err := h.auth.Register(ctx, requestMeta(r), req.Email, req.Password)
	if err != nil {
		SendAppError(h.logger, w, err, h.development)
		return
	}

	h.setSessionCookie(w, session.Token, session.ExpiresAt)

	SendJSON(h.logger, w, http.StatusCreated, api.Response{
		Success: true,
		Message: "User registered successfully",
		Data:    session.User,
	})
}

// Login обрабатывает POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		SendError(h.logger, w, http.StatusBadRequest, "Invalid request body", api.CodeInvalidRequest)
		return
	}

	session, err := h.auth.Login(ctx, requestMeta(r), req.Email, req.Password)
	if err != nil {
		SendAppError(h.logger, w, err, h.development)
		return
	}

	h.setSessionCookie(w, session.Token, session.ExpiresAt)

	SendJSON(h.logger, w, http.StatusOK, api.Response{
		Success: true,
		Message: "Login successful",
		Data:    session.User,
	})
}

// Me обрабатывает GET /api/v1/auth/me
// Возвращает текущего пользователя по сессии
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok || userID == "" {
		SendError(h.logger, w, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	user, err := h.auth.GetUser(ctx, userID)
	if err != nil {
		SendAppError(h.logger, w, err, h.development)
		return
	}

	SendJSON(h.logger, w, http.StatusOK, api.Response{
		Success: true,
		Message: "OK",
		Data:    user,
	})
}

// Logout обрабатывает POST /api/v1/auth/logout
// Сессия stateless, выход — это удаление cookie у клиента
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})

	SendJSON(h.logger, w, http.StatusOK, api.Response{
		Success: true,
		Message: "Logged out successfully",
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	})
}

func requestMeta(r *http.Request) security.Meta {
	return security.Meta{
		SourceIP: ClientIP(r),
		Path:     r.URL.Path,
	}
}
