package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
)

const (
	maxLoggedBody = 1 << 20

	chatOutcomeHeader = "X-Chat-Outcome"
	filteredValue     = "[FILTERED]"
)

// sensitiveFields are matched as substrings of lower-cased JSON keys and header names.
var sensitiveFields = []string{
	"password",
	"token",
	"secret",
	"authorization",
	"api_key",
	"cookie",
}

// quietPaths are served without request logging.
var quietPaths = map[string]bool{
	"/metrics":       true,
	"/api/v1/ping":   true,
	"/api/v1/health": true,
}

type routeClass int

const (
	routeDefault routeClass = iota
	routeAuth
	routeAdmin
	routeChat
)

func classify(path string) routeClass {
	switch {
	case strings.HasPrefix(path, "/api/v1/chat/"):
		return routeChat
	case strings.HasPrefix(path, "/api/v1/admin/"):
		return routeAdmin
	case strings.HasPrefix(path, "/api/v1/auth/"):
		return routeAuth
	default:
		return routeDefault
	}
}

func isQuiet(path string) bool {
	return quietPaths[path] || strings.HasPrefix(path, "/swagger/")
}

// LoggingMiddleware logs one line per request and one per response.
// Chat conversations are summarized (model and message count) and chat answers are never
// logged, only their size and X-Chat-Outcome. Other bodies are logged with secrets masked.
func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isQuiet(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			class := classify(r.URL.Path)
			reqID := middleware.GetReqID(r.Context())

			attrs := []any{
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", filterSensitiveHeaders(r.Header),
			}
			if body := peekBody(r); len(body) > 0 {
				if class == routeChat {
					attrs = append(attrs, summarizeChatBody(body)...)
				} else {
					attrs = append(attrs, "body", filterSensitiveBody(body))
				}
			}
			logger.Info("incoming request", attrs...)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			var captured bytes.Buffer
			if class != routeChat {
				ww.Tee(&captured)
			}

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			out := []any{
				"request_id", reqID,
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", ww.BytesWritten(),
			}
			if class == routeChat {
				if outcome := ww.Header().Get(chatOutcomeHeader); outcome != "" {
					out = append(out, "chat_outcome", outcome)
				}
			} else if captured.Len() > 0 {
				out = append(out, "body", filterSensitiveBody(captured.Bytes()))
			}

			logger.Log(r.Context(), levelFor(status), "response", out...)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// peekBody reads up to maxLoggedBody bytes and puts them back in front of the rest of the body.
func peekBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(head), r.Body))
	return head
}

func summarizeChatBody(body []byte) []any {
	var req struct {
		Model    string            `json:"model"`
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return []any{"body", "[unparsed chat request]"}
	}
	return []any{"model", req.Model, "messages", len(req.Messages)}
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

func filterSensitiveHeaders(headers http.Header) map[string]string {
	filtered := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			filtered[name] = filteredValue
			continue
		}
		filtered[name] = strings.Join(values, ", ")
	}
	return filtered
}

func filterSensitiveBody(body []byte) string {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		if isSensitive(string(body)) {
			return "[FILTERED - Contains sensitive data]"
		}
		return string(body)
	}

	filtered, err := json.Marshal(filterSensitiveJSON(data))
	if err != nil {
		return "[ERROR - Failed to marshal filtered JSON]"
	}
	return string(filtered)
}

func filterSensitiveJSON(data any) any {
	switch v := data.(type) {
	case map[string]any:
		filtered := make(map[string]any, len(v))
		for key, value := range v {
			if isSensitive(key) {
				filtered[key] = filteredValue
				continue
			}
			filtered[key] = filterSensitiveJSON(value)
		}
		return filtered
	case []any:
		filtered := make([]any, len(v))
		for i, item := range v {
			filtered[i] = filterSensitiveJSON(item)
		}
		return filtered
	default:
		return v
	}
}
