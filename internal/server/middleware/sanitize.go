package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/kopilka-app/kopilka/internal/server/handlers"
	"github.com/kopilka-app/kopilka/internal/server/security"
	"github.com/kopilka-app/kopilka/pkg/api"
)

// patternFamily — именованная группа сигнатур одного класса атак
type patternFamily struct {
	name     string
	patterns []*regexp.Regexp
}

var injectionFamilies = []patternFamily{
	{
		name: "sql",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|EXEC|EXECUTE)\s+.*\bFROM\b`),
			regexp.MustCompile(`(?i)\b(UNION|OR|AND)\s+\d+\s*=\s*\d+`),
			regexp.MustCompile(`(?i);\s*(DROP|DELETE|UPDATE|INSERT|CREATE|ALTER)`),
		},
	},
	{
		name: "xss",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
			regexp.MustCompile(`(?i)javascript:\s*[^'"]`),
			regexp.MustCompile(`(?i)\bon\w+\s*=\s*['"]`),
			regexp.MustCompile(`(?i)<iframe[^>]*>`),
			regexp.MustCompile(`(?i)<object[^>]*>`),
			regexp.MustCompile(`(?i)<embed[^>]*>`),
		},
	},
	{
		name: "nosql",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\$where\s*[:=]`),
			regexp.MustCompile(`(?i)\$\s*(ne|gt|lt|gte|lte|regex|exists|in|nin|or|and|not|nor)\s*[:=]`),
		},
	},
	{
		name: "command",
		patterns: []*regexp.Regexp{
			regexp.MustCompile("[;&|`]\\s*\\w+\\s*\\("),
			regexp.MustCompile(`\$\s*\(\s*\w+`),
			regexp.MustCompile("`\\s*\\w+\\s*`"),
		},
	},
}

// Поля, которым разрешены спецсимволы: у них своя валидация дальше
var allowedFields = map[string]bool{
	"email":       true,
	"description": true,
	"name":        true,
}

// violation описывает сработавшую сигнатуру
type violation struct {
	field  string
	family string
}

// SanitizeMiddleware создает middleware, отклоняющий запросы
// с сигнатурами инъекций в JSON теле. Клиент получает generic 400
// без указания, какое правило сработало
func SanitizeMiddleware(recorder *security.Recorder, logger *slog.Logger, maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mutating := r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch

			if mutating {
				contentType := r.Header.Get("Content-Type")
				if !strings.Contains(contentType, "application/json") {
					handlers.SendError(logger, w, http.StatusBadRequest,
						"Content-Type must be application/json", api.CodeInvalidRequest)
					return
				}
			}

			if r.Body == nil || r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
			if err != nil {
				var maxErr *http.MaxBytesError
				if errors.As(err, &maxErr) {
					handlers.SendError(logger, w, http.StatusRequestEntityTooLarge,
						"Request payload too large", api.CodeInvalidRequest)
					return
				}
				handlers.SendError(logger, w, http.StatusBadRequest,
					"Invalid request body", api.CodeInvalidRequest)
				return
			}

			if mutating && len(body) > 0 {
				var payload interface{}
				if err := json.Unmarshal(body, &payload); err != nil {
					handlers.SendError(logger, w, http.StatusBadRequest,
						"Invalid request body", api.CodeInvalidRequest)
					return
				}

				if v := inspectValue("", payload); v != nil {
					recorder.Record(r.Context(), security.EventSuspiciousRequest,
						security.Meta{SourceIP: handlers.ClientIP(r), Path: r.URL.Path},
						"", "", fmt.Sprintf("field=%s family=%s", v.field, v.family))
					handlers.SendError(logger, w, http.StatusBadRequest,
						"Invalid request format", api.CodeInvalidRequest)
					return
				}
			}

			// тело прочитано, восстанавливаем его для обработчиков
			r.Body = io.NopCloser(bytes.NewReader(body))

			next.ServeHTTP(w, r)
		})
	}
}

// inspectValue рекурсивно обходит декодированный JSON.
// Ключи, начинающиеся с $, отклоняются сразу: в легитимных данных
// приложения таких ключей не бывает
func inspectValue(field string, value interface{}) *violation {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, nested := range v {
			if strings.HasPrefix(key, "$") {
				return &violation{field: key, family: "nosql"}
			}
			if found := inspectValue(key, nested); found != nil {
				return found
			}
		}
	case []interface{}:
		for _, item := range v {
			if found := inspectValue(field, item); found != nil {
				return found
			}
		}
	case string:
		if allowedFields[strings.ToLower(field)] {
			return nil
		}
		for _, family := range injectionFamilies {
			for _, pattern := range family.patterns {
				if pattern.MatchString(v) {
					return &violation{field: field, family: family.name}
				}
			}
		}
	}

	return nil
}
