// requestlog.go — логирование HTTP-запросов со сквозным request id.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// requestIDHeader — заголовок сквозного идентификатора запроса.
const requestIDHeader = "X-Request-Id"

// ctxKeyRequestID — ключ request id в контексте запроса.
type ctxKeyRequestID struct{}

// RequestID возвращает идентификатор запроса из контекста.
// Пустая строка — запрос пришёл мимо RequestLogger.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return id
}

// RequestLogger возвращает middleware логирования запросов.
// Идентификатор берётся из X-Request-Id или генерируется, эхом
// возвращается клиенту и сопровождает запрос через контекст.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			ctx := context.WithValue(r.Context(), ctxKeyRequestID{}, requestID)
			wrapped := newMetricsResponseWriter(w)

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			logger.Info("HTTP запрос",
				slog.String("request_id", requestID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
			)
		})
	}
}
