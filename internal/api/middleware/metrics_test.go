package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestNormalizePath проверяет нормализацию путей для лейблов метрик.
func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/metrics", "/metrics"},
		{"/health/live", "/health/live"},
		{"/health/ready", "/health/ready"},
		{"/api/health", "/api/health"},
		{"/api/upload", "/api/upload"},
		{"/api/supported-types", "/api/supported-types"},
		{"/api/openapi.json", "/api/openapi.json"},
		{"/api/info/J-a1b2c3d40000.png", "/api/info/{identifier}"},
		{"/J-a1b2c3d40000.png", "/{identifier}"},
		{"/что-угодно-в-корне", "/{identifier}"},
		{"/", "/"},
		{"/api/unknown/nested", "/api/unknown/nested"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q): ожидалось %q, получено %q", tt.path, tt.want, got)
			}
		})
	}
}

// TestMetricsResponseWriter проверяет перехват статус-кода и Unwrap.
func TestMetricsResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := newMetricsResponseWriter(rec)

	if wrapped.statusCode != http.StatusOK {
		t.Errorf("статус по умолчанию: ожидалось 200, получено %d", wrapped.statusCode)
	}

	wrapped.WriteHeader(http.StatusPartialContent)
	if wrapped.statusCode != http.StatusPartialContent {
		t.Errorf("ожидалось 206, получено %d", wrapped.statusCode)
	}
	if rec.Code != http.StatusPartialContent {
		t.Errorf("статус не дошёл до нижележащего writer: %d", rec.Code)
	}

	if wrapped.Unwrap() != rec {
		t.Error("Unwrap должен возвращать исходный ResponseWriter")
	}
}
