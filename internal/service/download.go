// download.go — стратегия получения файла из блоб-бэкенда.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apierrors "github.com/bigkaa/filerelay/internal/api/errors"
	"github.com/bigkaa/filerelay/internal/api/middleware"
	"github.com/bigkaa/filerelay/internal/config"
	"github.com/bigkaa/filerelay/internal/domain/filetype"
	"github.com/bigkaa/filerelay/internal/domain/ident"
	"github.com/bigkaa/filerelay/internal/storage/blobstore"
)

// DownloadService — сервис получения файлов из бэкенда.
type DownloadService struct {
	cfg    *config.Config
	store  blobstore.Store
	logger *slog.Logger
}

// NewDownloadService создаёт сервис получения файлов.
func NewDownloadService(cfg *config.Config, store blobstore.Store, logger *slog.Logger) *DownloadService {
	return &DownloadService{
		cfg:    cfg,
		store:  store,
		logger: logger.With(slog.String("component", "download_service")),
	}
}

// DownloadError — ошибка получения файла с HTTP-кодом.
type DownloadError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FileInfo — метаданные файла для ответа /api/info и заголовков отдачи.
// MIME-тип выводится из расширения идентификатора, поэтому может
// отличаться от типа, определённого при загрузке по сигнатуре.
type FileInfo struct {
	Identifier  string
	Size        int64
	MIME        string
	Extension   string
	Fingerprint string
	URL         string
}

// Info возвращает метаданные файла без чтения тела.
//
// Поток:
//  1. Проверить идентификатор. Некорректный → 404 без обращения
//     к бэкенду: валидатор — единственная защита от выхода за files/.
//  2. Stat с повторами на транзиентных ошибках. Отсутствие объекта
//     не повторяется и возвращается немедленно.
func (s *DownloadService) Info(ctx context.Context, id string) (*FileInfo, *DownloadError) {
	if !ident.Valid(id) {
		return nil, invalidIdentifier(id)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.BackendTimeout)
	defer cancel()

	info, derr := s.stat(ctx, id)
	if derr != nil {
		return nil, derr
	}
	return s.fileInfo(id, info), nil
}

// Fetch возвращает содержимое и метаданные файла.
//
// Поток:
//  1. Проверить идентификатор. Некорректный → 404 без обращения к бэкенду.
//  2. Проверить существование (stat). Отсутствие → 404 до чтения тела.
//  3. Прочитать тело с повторами на транзиентных ошибках.
func (s *DownloadService) Fetch(ctx context.Context, id string) ([]byte, *FileInfo, *DownloadError) {
	// 1. Валидация
	if !ident.Valid(id) {
		middleware.DownloadsTotal.WithLabelValues("error").Inc()
		return nil, nil, invalidIdentifier(id)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.BackendTimeout)
	defer cancel()

	// 2. Сначала существование: отсутствие выясняется без чтения тела
	if _, derr := s.stat(ctx, id); derr != nil {
		middleware.DownloadsTotal.WithLabelValues("error").Inc()
		return nil, nil, derr
	}

	// 3. Чтение тела
	key := ident.StorageKey(id)
	var obj blobstore.Object
	err := backendPolicy(s.cfg, s.store.Kind(), "get", s.logger).Do(ctx, func(ctx context.Context) error {
		var getErr error
		obj, getErr = s.store.Get(ctx, key)
		return getErr
	})
	if err != nil {
		middleware.DownloadsTotal.WithLabelValues("error").Inc()
		middleware.BackendOperationsTotal.WithLabelValues(s.store.Kind(), "get", "error").Inc()
		s.logger.Error("Ошибка чтения из бэкенда",
			slog.String("identifier", id),
			slog.String("backend", s.store.Kind()),
			slog.String("error", err.Error()),
		)
		return nil, nil, fetchError(err, id)
	}
	middleware.BackendOperationsTotal.WithLabelValues(s.store.Kind(), "get", "success").Inc()
	middleware.DownloadsTotal.WithLabelValues("success").Inc()

	s.logger.Debug("Файл получен из бэкенда",
		slog.String("identifier", id),
		slog.Int64("size", obj.Info.Size),
	)

	return obj.Data, s.fileInfo(id, obj.Info), nil
}

// stat проверяет существование объекта с повторами.
func (s *DownloadService) stat(ctx context.Context, id string) (blobstore.ObjectInfo, *DownloadError) {
	key := ident.StorageKey(id)
	var info blobstore.ObjectInfo
	err := backendPolicy(s.cfg, s.store.Kind(), "stat", s.logger).Do(ctx, func(ctx context.Context) error {
		var statErr error
		info, statErr = s.store.Stat(ctx, key)
		return statErr
	})
	if err != nil {
		middleware.BackendOperationsTotal.WithLabelValues(s.store.Kind(), "stat", "error").Inc()
		if !errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Error("Ошибка проверки существования",
				slog.String("identifier", id),
				slog.String("backend", s.store.Kind()),
				slog.String("error", err.Error()),
			)
		}
		return blobstore.ObjectInfo{}, fetchError(err, id)
	}
	middleware.BackendOperationsTotal.WithLabelValues(s.store.Kind(), "stat", "success").Inc()
	return info, nil
}

// fileInfo собирает метаданные ответа из идентификатора и данных бэкенда.
func (s *DownloadService) fileInfo(id string, info blobstore.ObjectInfo) *FileInfo {
	ext := ident.Ext(id)
	return &FileInfo{
		Identifier:  id,
		Size:        info.Size,
		MIME:        filetype.MIMEForExt(ext),
		Extension:   ext,
		Fingerprint: info.Fingerprint,
		URL:         publicURL(s.cfg, id),
	}
}

// invalidIdentifier — ошибка для некорректного идентификатора.
// Статус 404 совпадает с NOT_FOUND, чтобы ответ не раскрывал,
// существует ли объект.
func invalidIdentifier(id string) *DownloadError {
	return &DownloadError{
		StatusCode: 404,
		Code:       apierrors.CodeInvalidIdentifier,
		Message:    fmt.Sprintf("Некорректный идентификатор файла: %s", id),
	}
}

// fetchError переводит ошибку бэкенда в ошибку получения файла.
func fetchError(err error, id string) *DownloadError {
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
		return &DownloadError{
			StatusCode: 404,
			Code:       apierrors.CodeNotFound,
			Message:    fmt.Sprintf("Файл %s не найден", id),
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &DownloadError{
			StatusCode: 408,
			Code:       apierrors.CodeRequestTimeout,
			Message:    "Бэкенд не ответил за отведённое время",
		}
	case blobstore.IsTransient(err):
		return &DownloadError{
			StatusCode: 503,
			Code:       apierrors.CodeUnavailable,
			Message:    "Хранилище временно недоступно, попробуйте позже",
		}
	default:
		return &DownloadError{
			StatusCode: 500,
			Code:       apierrors.CodeBackendError,
			Message:    "Ошибка обращения к хранилищу",
		}
	}
}
