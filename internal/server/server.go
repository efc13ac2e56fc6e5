// Package server собирает HTTP приложение: маршруты, middleware
// и жизненный цикл http.Server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kopilka-app/kopilka/internal/config"
	"github.com/kopilka-app/kopilka/internal/server/auth"
	"github.com/kopilka-app/kopilka/internal/server/handlers"
	"github.com/kopilka-app/kopilka/internal/server/middleware"
	"github.com/kopilka-app/kopilka/internal/server/security"
	"github.com/kopilka-app/kopilka/internal/server/storage"
	"github.com/kopilka-app/kopilka/internal/server/token"
)

// Storage объединяет хранилища, нужные серверу
type Storage interface {
	storage.UserStorage
	storage.ExpenseStorage
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	logger      *slog.Logger
	generalRate *middleware.RateLimiter
	authRate    *middleware.RateLimiter
}

// New собирает сервер: сервисы, handlers, маршруты и цепочку middleware
func New(cfg *config.Config, logger *slog.Logger, store Storage, audit security.AuditSink, version string) (*Server, error) {
	tokens, err := token.New(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	recorder := security.NewRecorder(logger, audit)
	authService := auth.New(store, tokens, recorder, logger, cfg.LockoutThreshold, cfg.LockoutDuration)

	cookie := handlers.CookieConfig{
		Secure:   cfg.CookieSecure,
		SameSite: parseSameSite(cfg.CookieSameSite),
	}

	authHandler := handlers.NewAuthHandler(logger, authService, cookie, cfg.IsDevelopment())
	expenseHandler := handlers.NewExpenseHandler(logger, store, cfg.IsDevelopment())
	healthHandler := handlers.NewHealthHandler(logger, version)

	generalRate := middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow, logger)
	authRate := middleware.NewRateLimiter(cfg.AuthRateMax, cfg.AuthRateWindow, logger)

	requireAuth := middleware.AuthMiddleware(logger, tokens)
	authLimit := middleware.AuthRateLimitMiddleware(authRate, recorder, logger)

	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("POST /api/v1/auth/register", authLimit(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/v1/auth/login", authLimit(http.HandlerFunc(authHandler.Login)))

	// Protected routes
	mux.Handle("GET /api/v1/auth/me", requireAuth(http.HandlerFunc(authHandler.Me)))
	mux.Handle("POST /api/v1/auth/logout", requireAuth(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("POST /api/v1/expenses", requireAuth(http.HandlerFunc(expenseHandler.Create)))
	mux.Handle("GET /api/v1/expenses", requireAuth(http.HandlerFunc(expenseHandler.List)))
	mux.Handle("GET /api/v1/expenses/summary", requireAuth(http.HandlerFunc(expenseHandler.Summary)))
	mux.Handle("GET /api/v1/expenses/{id}", requireAuth(http.HandlerFunc(expenseHandler.Get)))
	mux.Handle("PUT /api/v1/expenses/{id}", requireAuth(http.HandlerFunc(expenseHandler.Update)))
	mux.Handle("DELETE /api/v1/expenses/{id}", requireAuth(http.HandlerFunc(expenseHandler.Delete)))

	// Цепочка middleware: recovery снаружи, затем логирование,
	// общий rate limit и сигнатурный фильтр до router'а
	var handler http.Handler = mux
	handler = middleware.SanitizeMiddleware(recorder, logger, cfg.MaxBodyBytes)(handler)
	handler = middleware.RateLimitMiddleware(generalRate, recorder, logger)(handler)
	handler = middleware.LoggingWithSkip(logger, []string{"/health"})(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger:      logger,
		generalRate: generalRate,
		authRate:    authRate,
	}, nil
}

// Handler возвращает корневой handler (используется в httptest)
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run запускает сервер и блокируется до отмены контекста,
// затем выполняет graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	errC := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
	}()

	select {
	case err := <-errC:
		s.stopLimiters()
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	s.stopLimiters()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}

	return nil
}

func (s *Server) stopLimiters() {
	s.generalRate.Stop()
	s.authRate.Stop()
}

func parseSameSite(mode string) http.SameSite {
	switch mode {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
