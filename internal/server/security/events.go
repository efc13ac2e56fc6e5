package security

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Security event types
const (
	EventRegisterSuccess   = "REGISTER_SUCCESS"
	EventRegisterFailure   = "REGISTER_FAILURE"
	EventLoginSuccess      = "LOGIN_SUCCESS"
	EventLoginFailure      = "LOGIN_FAILURE"
	EventAccountLocked     = "ACCOUNT_LOCKED"
	EventRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	EventSuspiciousRequest = "SUSPICIOUS_REQUEST"
)

// Event is a single security-relevant occurrence
type Event struct {
	Type     string    `json:"type"`
	Time     time.Time `json:"time"`
	Email    string    `json:"email,omitempty"` // уже замаскирован
	UserID   string    `json:"user_id,omitempty"`
	SourceIP string    `json:"source_ip,omitempty"`
	Path     string    `json:"path,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

// Meta carries request attribution for security events
type Meta struct {
	SourceIP string
	Path     string
}

// AuditSink persists security events
type AuditSink interface {
	Append(ctx context.Context, event Event) error
}

// Recorder emits security events to the structured log and,
// when a sink is configured, to the persistent audit store
type Recorder struct {
	log  *slog.Logger
	sink AuditSink
	now  func() time.Time
}

// NewRecorder creates a security event recorder.
// sink may be nil, events are then log-only
func NewRecorder(log *slog.Logger, sink AuditSink) *Recorder {
	return &Recorder{
		log:  log,
		sink: sink,
		now:  time.Now,
	}
}

// Record emits the event. Ошибка записи в audit store не должна
// ронять запрос, она только логируется
func (r *Recorder) Record(ctx context.Context, eventType string, meta Meta, email, userID, detail string) {
	event := Event{
		Type:     eventType,
		Time:     r.now().UTC(),
		Email:    MaskEmail(email),
		UserID:   userID,
		SourceIP: meta.SourceIP,
		Path:     meta.Path,
		Detail:   detail,
	}

	level := slog.LevelInfo
	switch eventType {
	case EventLoginFailure, EventRegisterFailure:
		level = slog.LevelWarn
	case EventAccountLocked, EventRateLimitExceeded, EventSuspiciousRequest:
		level = slog.LevelWarn
	}

	r.log.LogAttrs(ctx, level, "security event",
		slog.String("event", event.Type),
		slog.String("email", event.Email),
		slog.String("user_id", event.UserID),
		slog.String("source_ip", event.SourceIP),
		slog.String("path", event.Path),
		slog.String("detail", event.Detail),
	)

	if r.sink != nil {
		if err := r.sink.Append(ctx, event); err != nil {
			r.log.Error("failed to append audit event", "error", err)
		}
	}
}

// MaskEmail оставляет первые три символа локальной части,
// остальное скрывается
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	local := email
	if i := strings.IndexByte(email, '@'); i >= 0 {
		local = email[:i]
	}

	if len(local) > 3 {
		local = local[:3]
	}

	return local + "***"
}
