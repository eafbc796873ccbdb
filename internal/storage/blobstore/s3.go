// s3.go — бэкенд S3-совместимого объектного хранилища.
//
// В отличие от эталонного бэкенда, inline-канала у S3 нет: GetObject
// отдаёт тело напрямую, поэтому MaxInlineSize равен нулю. Ревизионный
// токен для put тоже не нужен — PutObject сам по себе create-or-replace.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// s3MaxObjectSize — потолок одиночного PutObject (5 GiB).
const s3MaxObjectSize = 5 << 30

// s3API — подмножество клиента S3, используемое адаптером.
// Выделено в интерфейс ради тестов; *s3.Client удовлетворяет ему напрямую.
type s3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config — конфигурация бэкенда S3.
type S3Config struct {
	// Bucket — имя бакета-хранилища.
	Bucket string
	// Region — регион провайдера.
	Region string
	// Endpoint — переопределение эндпоинта для S3-совместимых
	// хранилищ (MinIO, Ceph RGW). Пусто — эндпоинт AWS.
	Endpoint string
	// UsePathStyle — path-style адресация бакета (требуется MinIO).
	UsePathStyle bool

	// MaxObjectSize — переопределение потолка размера объекта.
	MaxObjectSize int64
}

// S3Store — адаптер S3-совместимого хранилища.
type S3Store struct {
	api    s3API
	bucket string
	caps   Capabilities
	logger *slog.Logger
}

var _ Store = (*S3Store)(nil)

// NewS3Store создаёт адаптер поверх готового клиента. Тесты подставляют
// сюда фальшивый s3API.
func NewS3Store(api s3API, cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: не задано имя бакета")
	}
	caps := Capabilities{MaxObjectSize: cfg.MaxObjectSize}
	if caps.MaxObjectSize <= 0 {
		caps.MaxObjectSize = s3MaxObjectSize
	}
	return &S3Store{
		api:    api,
		bucket: cfg.Bucket,
		caps:   caps,
		logger: logger.With(slog.String("component", "s3_store")),
	}, nil
}

// NewS3StoreFromConfig загружает конфигурацию AWS SDK (переменные
// окружения, профиль, IAM-роль) и создаёт адаптер поверх реального клиента.
func NewS3StoreFromConfig(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Store, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: загрузка конфигурации AWS SDK: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3Store(client, cfg, logger)
}

// Stat возвращает метаданные через HeadObject, не передавая тело.
func (s *S3Store) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	out, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ObjectInfo{}, s.wrapErr("stat", err)
	}
	return ObjectInfo{
		Size:        aws.ToInt64(out.ContentLength),
		Fingerprint: etagFingerprint(out.ETag),
	}, nil
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Stat(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (s *S3Store) Get(ctx context.Context, key string) (Object, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Object{}, s.wrapErr("get", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return Object{}, &BackendError{Backend: "s3", Op: "get", Err: fmt.Errorf("чтение тела объекта: %w", err)}
	}
	return Object{
		Data: data,
		Info: ObjectInfo{Size: int64(len(data)), Fingerprint: etagFingerprint(out.ETag)},
	}, nil
}

// Put сохраняет объект create-or-replace. Потолок размера проверяется
// до сетевого вызова.
func (s *S3Store) Put(ctx context.Context, key string, data []byte) (ObjectInfo, error) {
	if int64(len(data)) > s.caps.MaxObjectSize {
		return ObjectInfo{}, ErrTooLarge
	}

	out, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return ObjectInfo{}, s.wrapErr("put", err)
	}

	s.logger.Debug("Объект записан",
		slog.String("key", key),
		slog.Int("size", len(data)),
	)

	return ObjectInfo{
		Size:        int64(len(data)),
		Fingerprint: etagFingerprint(out.ETag),
	}, nil
}

func (s *S3Store) Capabilities() Capabilities {
	return s.caps
}

func (s *S3Store) Kind() string {
	return "s3"
}

// wrapErr переводит ошибки SDK в доменную классификацию: коды
// NotFound (HeadObject) и NoSuchKey (GetObject) — в ErrNotFound,
// остальные — в *BackendError с HTTP-статусом ответа и признаком
// троттлинга.
func (s *S3Store) wrapErr(op string, err error) error {
	var apiErr smithy.APIError
	hasCode := errors.As(err, &apiErr)
	if hasCode {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return ErrNotFound
		}
	}

	be := &BackendError{Backend: "s3", Op: op, Err: err}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		be.StatusCode = respErr.HTTPStatusCode()
	}
	if hasCode {
		switch apiErr.ErrorCode() {
		case "SlowDown", "Throttling", "ThrottlingException", "RequestLimitExceeded":
			be.Throttled = true
		}
	}
	return be
}

// etagFingerprint снимает кавычки, которыми S3 обрамляет ETag.
func etagFingerprint(etag *string) string {
	return strings.Trim(aws.ToString(etag), `"`)
}
