// handler.go — сборка доменных обработчиков и маршрутизация File Relay.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/filerelay/internal/api/errors"
)

// Handler собирает доменные обработчики в один объект маршрутизации.
type Handler struct {
	files   *FilesHandler
	system  *SystemHandler
	health  *HealthHandler
	metrics http.Handler
}

// NewHandler создаёт единый handler для всех endpoints.
func NewHandler(
	files *FilesHandler,
	system *SystemHandler,
	health *HealthHandler,
	metrics http.Handler,
) *Handler {
	return &Handler{
		files:   files,
		system:  system,
		health:  health,
		metrics: metrics,
	}
}

// RegisterRoutes вешает маршруты сервиса на router.
// Статические префиксы /api, /health и /metrics разбираются раньше
// маршрута идентификатора, поэтому не затеняются им.
func (h *Handler) RegisterRoutes(r chi.Router) {
	// --- File Operations ---
	r.Post("/api/upload", h.files.UploadFile)
	r.Get("/api/info/{identifier}", h.files.GetFileInfo)
	r.Get("/{identifier}", h.files.DownloadFile)
	r.Head("/{identifier}", h.files.DownloadFile)

	// --- System ---
	r.Get("/api/supported-types", h.system.SupportedTypes)
	r.Get("/api/openapi.json", h.system.OpenAPISpec)

	// --- Health ---
	r.Get("/api/health", h.health.APIHealth)
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)

	// --- Metrics ---
	r.Method(http.MethodGet, "/metrics", h.metrics)

	// Ответы вне маршрутов тоже в формате {error, details}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.NotFound(w, "Ресурс не найден")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.WriteError(w, http.StatusMethodNotAllowed, apierrors.CodeValidationError,
			"Метод не поддерживается")
	})
}
