// Пакет service — бизнес-логика File Relay.
// upload.go — пайплайн загрузки: валидация, детекция типа, генерация
// идентификатора, запись в блоб-бэкенд с повторами.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apierrors "github.com/bigkaa/filerelay/internal/api/errors"
	"github.com/bigkaa/filerelay/internal/api/middleware"
	"github.com/bigkaa/filerelay/internal/config"
	"github.com/bigkaa/filerelay/internal/domain/filetype"
	"github.com/bigkaa/filerelay/internal/domain/ident"
	"github.com/bigkaa/filerelay/internal/retry"
	"github.com/bigkaa/filerelay/internal/storage/blobstore"
)

// UploadParams — параметры загрузки файла.
type UploadParams struct {
	// Data — содержимое файла целиком
	Data []byte
	// OriginalFilename — имя файла из multipart-формы
	OriginalFilename string
}

// UploadResult — результат загрузки файла.
type UploadResult struct {
	// Identifier — выданный идентификатор, он же имя объекта в бэкенде
	Identifier string
	// URL — публичная ссылка на скачивание
	URL string
	// Size — размер файла в байтах
	Size int64
	// MIME — определённый MIME-тип
	MIME string
	// Extension — расширение из идентификатора
	Extension string
	// Detected — true, если тип определён по сигнатуре или имени файла,
	// false при откате на application/octet-stream
	Detected bool
}

// UploadError — ошибка загрузки с HTTP-кодом.
type UploadError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UploadService — сервис загрузки файлов.
type UploadService struct {
	cfg    *config.Config
	store  blobstore.Store
	logger *slog.Logger
}

// NewUploadService создаёт сервис загрузки файлов.
func NewUploadService(cfg *config.Config, store blobstore.Store, logger *slog.Logger) *UploadService {
	return &UploadService{
		cfg:    cfg,
		store:  store,
		logger: logger.With(slog.String("component", "upload_service")),
	}
}

// Ceiling возвращает действующий потолок размера файла: минимум из
// FR_MAX_FILE_SIZE и лимита самого бэкенда.
func (s *UploadService) Ceiling() int64 {
	limit := s.cfg.MaxFileSize
	if caps := s.store.Capabilities(); caps.MaxObjectSize > 0 && caps.MaxObjectSize < limit {
		limit = caps.MaxObjectSize
	}
	return limit
}

// Upload выполняет пайплайн загрузки файла.
//
// Поток:
//  1. Отклонить пустой буфер.
//  2. Отклонить буфер сверх потолка размера до обращения к бэкенду.
//  3. Определить тип содержимого: сигнатура, затем имя файла, затем
//     статическая таблица. Неудача не фатальна.
//  4. Сгенерировать идентификатор из финального содержимого буфера.
//  5. Записать объект в бэкенд с повторами на транзиентных ошибках.
//  6. Вернуть идентификатор и публичную ссылку.
func (s *UploadService) Upload(ctx context.Context, params UploadParams) (*UploadResult, *UploadError) {
	size := int64(len(params.Data))

	// 1. Пустой буфер
	if size == 0 {
		middleware.UploadsTotal.WithLabelValues("error").Inc()
		return nil, &UploadError{
			StatusCode: 400,
			Code:       apierrors.CodeEmptyPayload,
			Message:    "Загружен пустой файл",
		}
	}

	// 2. Потолок размера, до каких-либо сетевых вызовов
	if limit := s.Ceiling(); size > limit {
		middleware.UploadsTotal.WithLabelValues("error").Inc()
		return nil, &UploadError{
			StatusCode: 413,
			Code:       apierrors.CodeFileTooLarge,
			Message:    fmt.Sprintf("Размер файла %d байт превышает лимит %d байт", size, limit),
		}
	}

	// 3. Детекция типа
	det := filetype.Detect(params.Data, params.OriginalFilename)

	// 4. Идентификатор считается от финального содержимого буфера
	id := ident.Generate(params.Data, det.Ext, params.OriginalFilename)
	key := ident.StorageKey(id)

	// 5. Запись с повторами
	ctx, cancel := context.WithTimeout(ctx, s.cfg.BackendTimeout)
	defer cancel()

	start := time.Now()
	var info blobstore.ObjectInfo
	err := backendPolicy(s.cfg, s.store.Kind(), "put", s.logger).Do(ctx, func(ctx context.Context) error {
		var putErr error
		info, putErr = s.store.Put(ctx, key, params.Data)
		return putErr
	})
	if err != nil {
		middleware.UploadsTotal.WithLabelValues("error").Inc()
		middleware.BackendOperationsTotal.WithLabelValues(s.store.Kind(), "put", "error").Inc()
		s.logger.Error("Ошибка записи в бэкенд",
			slog.String("identifier", id),
			slog.String("backend", s.store.Kind()),
			slog.String("error", err.Error()),
		)
		return nil, putError(err, s.Ceiling())
	}
	middleware.BackendOperationsTotal.WithLabelValues(s.store.Kind(), "put", "success").Inc()

	// 6. Успех
	middleware.UploadsTotal.WithLabelValues("success").Inc()
	middleware.UploadBytesTotal.Add(float64(size))

	s.logger.Info("Файл загружен",
		slog.String("identifier", id),
		slog.String("filename", params.OriginalFilename),
		slog.Int64("size", size),
		slog.String("mime", det.MIME),
		slog.String("fingerprint", info.Fingerprint),
		slog.Duration("took", time.Since(start)),
	)

	return &UploadResult{
		Identifier: id,
		URL:        publicURL(s.cfg, id),
		Size:       size,
		MIME:       det.MIME,
		Extension:  ident.Ext(id),
		Detected:   det.Sure,
	}, nil
}

// putError переводит ошибку записи в бэкенд в ошибку загрузки.
func putError(err error, limit int64) *UploadError {
	switch {
	case errors.Is(err, blobstore.ErrTooLarge):
		return &UploadError{
			StatusCode: 413,
			Code:       apierrors.CodeFileTooLarge,
			Message:    fmt.Sprintf("Размер файла превышает лимит бэкенда %d байт", limit),
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &UploadError{
			StatusCode: 408,
			Code:       apierrors.CodeRequestTimeout,
			Message:    "Бэкенд не ответил за отведённое время",
		}
	case blobstore.IsTransient(err):
		return &UploadError{
			StatusCode: 503,
			Code:       apierrors.CodeUnavailable,
			Message:    "Хранилище временно недоступно, попробуйте позже",
		}
	default:
		return &UploadError{
			StatusCode: 500,
			Code:       apierrors.CodeBackendError,
			Message:    "Ошибка записи в хранилище",
		}
	}
}

// publicURL строит публичную ссылку на файл.
func publicURL(cfg *config.Config, id string) string {
	return cfg.PublicBaseURL + "/" + id
}

// backendPolicy собирает политику повторов для одной операции бэкенда.
// Политика общая для загрузки и скачивания: повторяются только
// транзиентные ошибки, пауза растёт экспоненциально с джиттером.
func backendPolicy(cfg *config.Config, backend, op string, logger *slog.Logger) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		Retryable:   blobstore.IsTransient,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			middleware.BackendOperationsTotal.WithLabelValues(backend, op, "retry").Inc()
			logger.Warn("Повтор операции бэкенда",
				slog.String("backend", backend),
				slog.String("operation", op),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", err.Error()),
			)
		},
	}
}
