// Пакет errors — конструкторы стандартных ошибок в формате File Relay.
// Единый формат: {"error": "<машинный код>", "details": "<описание>"}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // TODO: переименовать пакет errors, конфликт со stdlib

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Коды ошибок, определённые в OpenAPI контракте.
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeInvalidIdentifier   = "INVALID_IDENTIFIER"
	CodeEmptyPayload        = "EMPTY_PAYLOAD"
	CodeFileTooLarge        = "FILE_TOO_LARGE"
	CodeNotFound            = "NOT_FOUND"
	CodeUnavailable         = "UNAVAILABLE"
	CodeRequestTimeout      = "REQUEST_TIMEOUT"
	CodeRangeNotSatisfiable = "RANGE_NOT_SATISFIABLE"
	CodeBackendError        = "BACKEND_ERROR"
	CodeInternalError       = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// WriteError записывает ответ ошибки в стандартном формате File Relay.
// statusCode — HTTP статус-код, code — машиночитаемый код, details — описание.
// Текст внутренних ошибок сюда не попадает: details пишется для клиента.
func WriteError(w http.ResponseWriter, statusCode int, code, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:   code,
		Details: details,
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, details string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, details)
}

// InvalidIdentifier — 404 идентификатор не прошёл валидацию формата.
// Статус совпадает с NotFound: формат ответа не раскрывает, существует
// ли объект.
func InvalidIdentifier(w http.ResponseWriter, details string) {
	WriteError(w, http.StatusNotFound, CodeInvalidIdentifier, details)
}

// EmptyPayload — 400 пустое содержимое загрузки.
func EmptyPayload(w http.ResponseWriter, details string) {
	WriteError(w, http.StatusBadRequest, CodeEmptyPayload, details)
}

// FileTooLarge — 413 файл превышает лимит.
func FileTooLarge(w http.ResponseWriter, details string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, details)
}

// NotFound — 404 объект отсутствует в хранилище.
func NotFound(w http.ResponseWriter, details string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, details)
}

// Unavailable — 503 бэкенд недоступен, попытки исчерпаны.
func Unavailable(w http.ResponseWriter, details string) {
	WriteError(w, http.StatusServiceUnavailable, CodeUnavailable, details)
}

// RequestTimeout — 408 дедлайн обращения к бэкенду истёк.
func RequestTimeout(w http.ResponseWriter, details string) {
	WriteError(w, http.StatusRequestTimeout, CodeRequestTimeout, details)
}

// RangeNotSatisfiable — 416 корректный по форме, но невыполнимый диапазон.
// Ответ несёт Content-Range: bytes */<size> и не несёт тела: граница
// проверяется жёстко, без подгонки диапазона под размер объекта.
func RangeNotSatisfiable(w http.ResponseWriter, size int64) {
	w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
	w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
}

// BackendError — 500 неожиданный сбой бэкенда.
func BackendError(w http.ResponseWriter, details string) {
	WriteError(w, http.StatusInternalServerError, CodeBackendError, details)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, details string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, details)
}
