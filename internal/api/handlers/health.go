// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"net/http"
	"time"

	"github.com/bigkaa/filerelay/internal/config"
)

// serviceName — имя сервиса в ответах health endpoints.
const serviceName = "file-relay"

// statusFail — строковая константа для статуса "fail" в health checks.
const statusFail = "fail"

// DependencyHealth — интерфейс опроса состояния зависимостей.
// Реализуется сервисом мониторинга; nil — мониторинг не включён.
type DependencyHealth interface {
	Health() map[string]bool
}

// HealthHandler реализует health endpoints: /api/health, /health/live,
// /health/ready.
type HealthHandler struct {
	version string
	backend string
	deps    DependencyHealth
}

// NewHealthHandler создаёт обработчик health endpoints.
// deps — сервис мониторинга зависимостей (nil для локальных бэкендов).
func NewHealthHandler(backend string, deps DependencyHealth) *HealthHandler {
	return &HealthHandler{
		version: config.Version,
		backend: backend,
		deps:    deps,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Зависимости не проверяются.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   serviceName,
	})
}

// APIHealth обрабатывает GET /api/health.
// Лёгкая проверка живости для внешних клиентов, без опроса бэкенда.
func (h *HealthHandler) APIHealth(w http.ResponseWriter, r *http.Request) {
	h.HealthLive(w, r)
}

// HealthReady обрабатывает GET /health/ready.
// Готовность определяется состоянием мониторинга зависимостей: отказ
// критичной зависимости переводит ответ в 503.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	overallStatus := "ok"
	httpStatus := http.StatusOK

	checks := map[string]any{}

	if h.deps == nil {
		// Локальный бэкенд: внешних зависимостей нет
		checks["backend"] = map[string]any{
			"status":  "ok",
			"message": "Мониторинг не настроен, бэкенд локальный",
		}
	} else {
		backendCheck := map[string]any{"status": "ok"}
		for dep, ok := range h.deps.Health() {
			if !ok {
				overallStatus = statusFail
				httpStatus = http.StatusServiceUnavailable
				backendCheck["status"] = statusFail
				backendCheck["message"] = "Зависимость недоступна: " + dep
				break
			}
		}
		checks["backend"] = backendCheck
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   serviceName,
		"backend":   h.backend,
		"checks":    checks,
	})
}
