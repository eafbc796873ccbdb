// system.go — системные endpoints File Relay: таблица поддерживаемых
// типов и OpenAPI контракт.
package handlers

import (
	"net/http"

	"github.com/bigkaa/filerelay/internal/domain/filetype"
)

// SystemHandler — обработчик системных endpoints.
type SystemHandler struct {
	// specJSON — OpenAPI контракт сервиса в JSON, готовый к отдаче
	specJSON []byte
}

// NewSystemHandler создаёт обработчик системных endpoints.
func NewSystemHandler(specJSON []byte) *SystemHandler {
	return &SystemHandler{specJSON: specJSON}
}

// supportedTypesResponse — тело ответа GET /api/supported-types.
type supportedTypesResponse struct {
	Categories []filetype.Category `json:"categories"`
}

// SupportedTypes обрабатывает GET /api/supported-types.
// Таблица информационная: загрузка не ограничивается перечисленными
// типами, нераспознанные файлы принимаются как octet-stream.
func (h *SystemHandler) SupportedTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, supportedTypesResponse{
		Categories: filetype.Categories(),
	})
}

// OpenAPISpec обрабатывает GET /api/openapi.json.
func (h *SystemHandler) OpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.specJSON)
}
