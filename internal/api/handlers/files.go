// files.go — HTTP handlers файловых операций File Relay.
// Загрузка, отдача по идентификатору, метаданные файла.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/filerelay/internal/api/errors"
	"github.com/bigkaa/filerelay/internal/service"
)

// multipartMemory — буфер разбора multipart-формы в памяти, остальное
// уходит во временные файлы.
const multipartMemory = 32 << 20

// multipartOverhead — запас сверх потолка файла на границы и заголовки
// multipart при ограничении тела запроса.
const multipartOverhead = 64 << 10

// FilesHandler — обработчик файловых endpoints.
type FilesHandler struct {
	uploadSvc   *service.UploadService
	downloadSvc *service.DownloadService
}

// NewFilesHandler создаёт обработчик файловых endpoints.
func NewFilesHandler(uploadSvc *service.UploadService, downloadSvc *service.DownloadService) *FilesHandler {
	return &FilesHandler{
		uploadSvc:   uploadSvc,
		downloadSvc: downloadSvc,
	}
}

// uploadResponse — тело успешного ответа загрузки.
// filename — выданный идентификатор: оригинальное имя файла нигде
// не сохраняется.
type uploadResponse struct {
	Success   bool   `json:"success"`
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	Size      int64  `json:"size"`
	Type      string `json:"type"`
	Extension string `json:"extension"`
	Detected  bool   `json:"detected"`
}

// infoResponse — тело ответа GET /api/info/{identifier}.
type infoResponse struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	Type      string `json:"type"`
	Extension string `json:"extension"`
	URL       string `json:"url"`
	SHA       string `json:"sha,omitempty"`
}

// UploadFile обрабатывает POST /api/upload.
// Multipart form, поле file — ровно один файл на запрос.
func (h *FilesHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	// Тело запроса ограничивается потолком файла с запасом на
	// оформление multipart
	limit := h.uploadSvc.Ceiling()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.FileTooLarge(w, fmt.Sprintf("Тело запроса превышает лимит %d байт", limit))
			return
		}
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка разбора multipart: %s", err.Error()))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		apierrors.InternalError(w, "Ошибка чтения файла из запроса")
		return
	}

	result, uerr := h.uploadSvc.Upload(r.Context(), service.UploadParams{
		Data:             data,
		OriginalFilename: header.Filename,
	})
	if uerr != nil {
		apierrors.WriteError(w, uerr.StatusCode, uerr.Code, uerr.Message)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:   true,
		Filename:  result.Identifier,
		URL:       result.URL,
		Size:      result.Size,
		Type:      result.MIME,
		Extension: result.Extension,
		Detected:  result.Detected,
	})
}

// DownloadFile обрабатывает GET и HEAD /{identifier}.
// Статусы и заголовки, включая Range-семантику, выставляет сервис.
func (h *FilesHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "identifier")
	if derr := h.downloadSvc.Serve(w, r, id); derr != nil {
		apierrors.WriteError(w, derr.StatusCode, derr.Code, derr.Message)
	}
}

// GetFileInfo обрабатывает GET /api/info/{identifier}.
func (h *FilesHandler) GetFileInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "identifier")
	info, derr := h.downloadSvc.Info(r.Context(), id)
	if derr != nil {
		apierrors.WriteError(w, derr.StatusCode, derr.Code, derr.Message)
		return
	}

	writeJSON(w, http.StatusOK, infoResponse{
		Filename:  info.Identifier,
		Size:      info.Size,
		Type:      info.MIME,
		Extension: info.Extension,
		URL:       info.URL,
		SHA:       info.Fingerprint,
	})
}

// writeJSON — вспомогательная функция для записи JSON-ответа.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
