// metrics.go — Prometheus HTTP метрики File Relay.
// Регистрирует метрики: fr_http_requests_total, fr_http_request_duration_seconds.
// Бизнес-метрики (fr_uploads_total, fr_downloads_total и др.) регистрируются
// здесь же и обновляются из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fr_http_requests_total",
			Help: "Общее количество HTTP-запросов к File Relay",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fr_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к File Relay в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// UploadsTotal — количество загрузок по результату.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fr_uploads_total",
			Help: "Количество загрузок файлов",
		},
		[]string{"result"},
	)

	// UploadBytesTotal — суммарный объём принятых байт.
	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fr_upload_bytes_total",
			Help: "Суммарный объём принятых байт",
		},
	)

	// DownloadsTotal — количество отдач файлов по результату.
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fr_downloads_total",
			Help: "Количество отдач файлов",
		},
		[]string{"result"},
	)

	// BackendOperationsTotal — операции блоб-бэкенда по результату.
	BackendOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fr_backend_operations_total",
			Help: "Количество операций блоб-бэкенда",
		},
		[]string{"backend", "operation", "result"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (идентификаторы файлов заменяются на {identifier})
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет идентификаторы файлов в пути на {identifier}
// для предотвращения взрывного роста кардинальности метрик.
// /J-a1b2c3d40000.png → /{identifier}, /api/info/J-... → /api/info/{identifier}
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/health", "/api/upload", "/api/supported-types", "/api/openapi.json":
		return path
	}

	if strings.HasPrefix(path, "/api/info/") {
		return "/api/info/{identifier}"
	}

	// Один сегмент в корне — отдача файла по идентификатору.
	if len(path) > 1 && strings.Count(path, "/") == 1 {
		return "/{identifier}"
	}
	return path
}
