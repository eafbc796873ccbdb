// Пакет config — загрузка и валидация конфигурации File Relay
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации File Relay.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Публичная база URL, из которой собираются ссылки на файлы
	// (например, "https://files.example.com")
	PublicBaseURL string
	// Бэкенд блоб-хранилища (github, s3, disk, memory)
	Backend string
	// Максимальный размер файла в байтах
	MaxFileSize int64
	// Порог inline-передачи в байтах: объекты крупнее скачиваются
	// из бэкенда прямым путём
	InlineThreshold int64
	// Размер чанка потоковой отдачи в байтах
	ChunkSize int64
	// Максимальное число попыток обращения к бэкенду
	RetryAttempts int
	// Первая пауза экспоненциального backoff
	RetryBaseDelay time.Duration
	// Потолок паузы backoff
	RetryMaxDelay time.Duration
	// Дедлайн одного обращения к бэкенду
	BackendTimeout time.Duration

	// База REST API git-хостинга (бэкенд github)
	GitHubAPIURL string
	// Репозиторий-хранилище (бэкенд github)
	GitHubOwner  string
	GitHubRepo   string
	GitHubBranch string
	// Статический токен (взаимоисключим с GitHub App)
	GitHubToken string
	// Параметры GitHub App
	GitHubAppID             int64
	GitHubAppKeyFile        string
	GitHubAppInstallationID int64

	// Параметры бэкенда s3
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3UsePathStyle bool

	// Корень хранения бэкенда disk
	DataDir string

	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Таймаут graceful shutdown
	ShutdownTimeout time.Duration

	// Путь к TLS сертификату и ключу (опционально, задаются вместе)
	TLSCert string
	TLSKey  string

	// Разрешённые CORS-источники
	CORSOrigins []string

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Мониторинг доступности бэкенда через topologymetrics
	DephealthEnabled bool
	// Интервал проверки доступности бэкенда
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Имя зависимости (бэкенда) в метриках topologymetrics
	DephealthDepName string
	// Имя владельца пода для метки name в topologymetrics (DEPHEALTH_NAME)
	DephealthName string
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// FR_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("FR_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("FR_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("FR_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// FR_PUBLIC_BASE_URL — обязательный, база публичных ссылок
	base, err := getEnvRequired("FR_PUBLIC_BASE_URL")
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("FR_PUBLIC_BASE_URL: значение %q должно начинаться с http:// или https://", base)
	}
	cfg.PublicBaseURL = strings.TrimSuffix(base, "/")

	// FR_BACKEND — бэкенд блоб-хранилища (по умолчанию "github")
	cfg.Backend = getEnvDefault("FR_BACKEND", "github")
	validBackends := map[string]bool{"github": true, "s3": true, "disk": true, "memory": true}
	if !validBackends[cfg.Backend] {
		return nil, fmt.Errorf("FR_BACKEND: недопустимое значение %q, допустимые: github, s3, disk, memory", cfg.Backend)
	}

	// FR_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 100 MiB)
	cfg.MaxFileSize, err = getEnvInt64("FR_MAX_FILE_SIZE", 104857600)
	if err != nil {
		return nil, fmt.Errorf("FR_MAX_FILE_SIZE: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("FR_MAX_FILE_SIZE: значение должно быть положительным")
	}

	// FR_INLINE_THRESHOLD — порог inline-передачи (по умолчанию 1 MiB);
	// 0 — inline-канала нет
	cfg.InlineThreshold, err = getEnvInt64("FR_INLINE_THRESHOLD", 1048576)
	if err != nil {
		return nil, fmt.Errorf("FR_INLINE_THRESHOLD: %w", err)
	}
	if cfg.InlineThreshold < 0 {
		return nil, fmt.Errorf("FR_INLINE_THRESHOLD: значение не может быть отрицательным")
	}

	// FR_CHUNK_SIZE — размер чанка потоковой отдачи (по умолчанию 1 MiB)
	cfg.ChunkSize, err = getEnvInt64("FR_CHUNK_SIZE", 1048576)
	if err != nil {
		return nil, fmt.Errorf("FR_CHUNK_SIZE: %w", err)
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("FR_CHUNK_SIZE: значение должно быть положительным")
	}

	// FR_RETRY_ATTEMPTS — число попыток обращения к бэкенду (по умолчанию 3)
	cfg.RetryAttempts, err = getEnvInt("FR_RETRY_ATTEMPTS", 3)
	if err != nil {
		return nil, fmt.Errorf("FR_RETRY_ATTEMPTS: %w", err)
	}
	if cfg.RetryAttempts < 1 {
		return nil, fmt.Errorf("FR_RETRY_ATTEMPTS: значение должно быть не меньше 1")
	}

	// FR_RETRY_BASE_DELAY — первая пауза backoff (по умолчанию 500ms)
	cfg.RetryBaseDelay, err = getEnvDuration("FR_RETRY_BASE_DELAY", 500*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("FR_RETRY_BASE_DELAY: %w", err)
	}

	// FR_RETRY_MAX_DELAY — потолок паузы backoff (по умолчанию 5s)
	cfg.RetryMaxDelay, err = getEnvDuration("FR_RETRY_MAX_DELAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FR_RETRY_MAX_DELAY: %w", err)
	}
	if cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		return nil, fmt.Errorf("FR_RETRY_MAX_DELAY: значение %s меньше FR_RETRY_BASE_DELAY (%s)",
			cfg.RetryMaxDelay, cfg.RetryBaseDelay)
	}

	// FR_BACKEND_TIMEOUT — дедлайн обращения к бэкенду (по умолчанию 5m)
	cfg.BackendTimeout, err = getEnvDuration("FR_BACKEND_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FR_BACKEND_TIMEOUT: %w", err)
	}

	// Параметры активного бэкенда
	switch cfg.Backend {
	case "github":
		if err := loadGitHub(cfg); err != nil {
			return nil, err
		}
	case "s3":
		cfg.S3Bucket, err = getEnvRequired("FR_S3_BUCKET")
		if err != nil {
			return nil, err
		}
		cfg.S3Region = getEnvDefault("FR_S3_REGION", "")
		cfg.S3Endpoint = getEnvDefault("FR_S3_ENDPOINT", "")
		cfg.S3UsePathStyle, err = getEnvBool("FR_S3_USE_PATH_STYLE", cfg.S3Endpoint != "")
		if err != nil {
			return nil, fmt.Errorf("FR_S3_USE_PATH_STYLE: %w", err)
		}
	case "disk":
		cfg.DataDir, err = getEnvRequired("FR_DATA_DIR")
		if err != nil {
			return nil, err
		}
	}

	// FR_HTTP_READ_TIMEOUT — таймаут чтения запроса (по умолчанию 30s)
	cfg.HTTPReadTimeout, err = getEnvDuration("FR_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FR_HTTP_READ_TIMEOUT: %w", err)
	}

	// FR_HTTP_WRITE_TIMEOUT — таймаут записи ответа (по умолчанию 10m,
	// с запасом на отдачу крупных файлов)
	cfg.HTTPWriteTimeout, err = getEnvDuration("FR_HTTP_WRITE_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FR_HTTP_WRITE_TIMEOUT: %w", err)
	}

	// FR_HTTP_IDLE_TIMEOUT — таймаут keep-alive (по умолчанию 120s)
	cfg.HTTPIdleTimeout, err = getEnvDuration("FR_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FR_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// FR_SHUTDOWN_TIMEOUT — бюджет graceful shutdown (по умолчанию 30s)
	cfg.ShutdownTimeout, err = getEnvDuration("FR_SHUTDOWN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FR_SHUTDOWN_TIMEOUT: %w", err)
	}

	// FR_TLS_CERT / FR_TLS_KEY — опциональный TLS, задаются вместе
	cfg.TLSCert = getEnvDefault("FR_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("FR_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("FR_TLS_CERT и FR_TLS_KEY задаются только вместе")
	}

	// FR_CORS_ORIGINS — разрешённые источники через запятую (по умолчанию "*")
	for _, origin := range strings.Split(getEnvDefault("FR_CORS_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	// FR_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("FR_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("FR_LOG_LEVEL: %w", err)
	}

	// FR_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("FR_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FR_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// FR_DEPHEALTH_ENABLED — мониторинг доступности бэкенда
	// (по умолчанию включён для сетевых бэкендов github и s3)
	remoteBackend := cfg.Backend == "github" || cfg.Backend == "s3"
	cfg.DephealthEnabled, err = getEnvBool("FR_DEPHEALTH_ENABLED", remoteBackend)
	if err != nil {
		return nil, fmt.Errorf("FR_DEPHEALTH_ENABLED: %w", err)
	}
	if cfg.DephealthEnabled && !remoteBackend {
		return nil, fmt.Errorf("FR_DEPHEALTH_ENABLED: мониторинг доступен только для сетевых бэкендов (github, s3)")
	}

	// FR_DEPHEALTH_CHECK_INTERVAL — интервал проверки бэкенда (по умолчанию 30s)
	cfg.DephealthCheckInterval, err = getEnvDuration("FR_DEPHEALTH_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FR_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// FR_DEPHEALTH_GROUP — имя группы в метриках topologymetrics (по умолчанию "file-relay")
	cfg.DephealthGroup = getEnvDefault("FR_DEPHEALTH_GROUP", "file-relay")

	// FR_DEPHEALTH_DEP_NAME — имя зависимости в метриках (по умолчанию имя бэкенда)
	cfg.DephealthDepName = getEnvDefault("FR_DEPHEALTH_DEP_NAME", cfg.Backend)

	// DEPHEALTH_NAME — имя владельца пода для метки name в topologymetrics (без префикса модуля)
	cfg.DephealthName = getEnvDefault("DEPHEALTH_NAME", "")

	return cfg, nil
}

// loadGitHub читает параметры бэкенда github. Требуется ровно один
// режим аутентификации: статический токен или GitHub App.
func loadGitHub(cfg *Config) error {
	var err error

	// FR_GITHUB_API_URL — база REST API (по умолчанию https://api.github.com)
	cfg.GitHubAPIURL = getEnvDefault("FR_GITHUB_API_URL", "https://api.github.com")

	// FR_GITHUB_OWNER / FR_GITHUB_REPO — обязательные
	cfg.GitHubOwner, err = getEnvRequired("FR_GITHUB_OWNER")
	if err != nil {
		return err
	}
	cfg.GitHubRepo, err = getEnvRequired("FR_GITHUB_REPO")
	if err != nil {
		return err
	}

	// FR_GITHUB_BRANCH — ветка репозитория-хранилища (по умолчанию main)
	cfg.GitHubBranch = getEnvDefault("FR_GITHUB_BRANCH", "main")

	// FR_GITHUB_TOKEN — статический токен
	cfg.GitHubToken = getEnvDefault("FR_GITHUB_TOKEN", "")

	// FR_GITHUB_APP_* — аутентификация GitHub App
	cfg.GitHubAppID, err = getEnvInt64("FR_GITHUB_APP_ID", 0)
	if err != nil {
		return fmt.Errorf("FR_GITHUB_APP_ID: %w", err)
	}
	cfg.GitHubAppKeyFile = getEnvDefault("FR_GITHUB_APP_PRIVATE_KEY_FILE", "")
	cfg.GitHubAppInstallationID, err = getEnvInt64("FR_GITHUB_APP_INSTALLATION_ID", 0)
	if err != nil {
		return fmt.Errorf("FR_GITHUB_APP_INSTALLATION_ID: %w", err)
	}

	hasToken := cfg.GitHubToken != ""
	hasApp := cfg.GitHubAppID != 0 || cfg.GitHubAppKeyFile != "" || cfg.GitHubAppInstallationID != 0
	if hasToken == hasApp {
		return fmt.Errorf("требуется ровно один режим аутентификации: FR_GITHUB_TOKEN или FR_GITHUB_APP_*")
	}
	if hasApp && (cfg.GitHubAppID == 0 || cfg.GitHubAppKeyFile == "" || cfg.GitHubAppInstallationID == 0) {
		return fmt.Errorf("для GitHub App обязательны FR_GITHUB_APP_ID, FR_GITHUB_APP_PRIVATE_KEY_FILE и FR_GITHUB_APP_INSTALLATION_ID")
	}
	return nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 5m, 1h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
