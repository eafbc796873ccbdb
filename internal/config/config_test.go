package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

// setEnvVars устанавливает переменные окружения для теста и возвращает
// функцию очистки. Всегда вызывать defer cleanup().
func setEnvVars(t *testing.T, vars map[string]string) func() {
	t.Helper()

	// Сохраняем оригинальные значения
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for k := range vars {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
	}

	// Устанавливаем новые
	for k, v := range vars {
		os.Setenv(k, v)
	}

	return func() {
		for k := range vars {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// clearAllFREnvVars очищает все переменные окружения FR_* для чистого теста.
func clearAllFREnvVars(t *testing.T) func() {
	t.Helper()
	keys := []string{
		"FR_PORT", "FR_PUBLIC_BASE_URL", "FR_BACKEND",
		"FR_MAX_FILE_SIZE", "FR_INLINE_THRESHOLD", "FR_CHUNK_SIZE",
		"FR_RETRY_ATTEMPTS", "FR_RETRY_BASE_DELAY", "FR_RETRY_MAX_DELAY",
		"FR_BACKEND_TIMEOUT",
		"FR_GITHUB_API_URL", "FR_GITHUB_OWNER", "FR_GITHUB_REPO",
		"FR_GITHUB_BRANCH", "FR_GITHUB_TOKEN",
		"FR_GITHUB_APP_ID", "FR_GITHUB_APP_PRIVATE_KEY_FILE",
		"FR_GITHUB_APP_INSTALLATION_ID",
		"FR_S3_BUCKET", "FR_S3_REGION", "FR_S3_ENDPOINT", "FR_S3_USE_PATH_STYLE",
		"FR_DATA_DIR",
		"FR_HTTP_READ_TIMEOUT", "FR_HTTP_WRITE_TIMEOUT", "FR_HTTP_IDLE_TIMEOUT",
		"FR_SHUTDOWN_TIMEOUT",
		"FR_TLS_CERT", "FR_TLS_KEY", "FR_CORS_ORIGINS",
		"FR_LOG_LEVEL", "FR_LOG_FORMAT",
		"FR_DEPHEALTH_ENABLED", "FR_DEPHEALTH_CHECK_INTERVAL",
		"FR_DEPHEALTH_GROUP", "FR_DEPHEALTH_DEP_NAME", "DEPHEALTH_NAME",
	}
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
		os.Unsetenv(k)
	}
	return func() {
		for _, k := range keys {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// requiredEnvVars возвращает минимальный набор обязательных переменных.
// Бэкенд по умолчанию github, поэтому набор включает его параметры.
func requiredEnvVars() map[string]string {
	return map[string]string{
		"FR_PUBLIC_BASE_URL": "https://files.example.com",
		"FR_GITHUB_OWNER":    "acme",
		"FR_GITHUB_REPO":     "file-storage",
		"FR_GITHUB_TOKEN":    "ghp_test_token",
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	cleanup := clearAllFREnvVars(t)
	defer cleanup()

	cleanupVars := setEnvVars(t, requiredEnvVars())
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	// Проверяем значения по умолчанию
	if cfg.Port != 8080 {
		t.Errorf("Port: ожидалось 8080, получено %d", cfg.Port)
	}
	if cfg.PublicBaseURL != "https://files.example.com" {
		t.Errorf("PublicBaseURL: ожидалось 'https://files.example.com', получено %q", cfg.PublicBaseURL)
	}
	if cfg.Backend != "github" {
		t.Errorf("Backend: ожидалось 'github', получено %q", cfg.Backend)
	}
	if cfg.MaxFileSize != 104857600 {
		t.Errorf("MaxFileSize: ожидалось 104857600, получено %d", cfg.MaxFileSize)
	}
	if cfg.InlineThreshold != 1048576 {
		t.Errorf("InlineThreshold: ожидалось 1048576, получено %d", cfg.InlineThreshold)
	}
	if cfg.ChunkSize != 1048576 {
		t.Errorf("ChunkSize: ожидалось 1048576, получено %d", cfg.ChunkSize)
	}
	if cfg.RetryAttempts != 3 {
		t.Errorf("RetryAttempts: ожидалось 3, получено %d", cfg.RetryAttempts)
	}
	if cfg.RetryBaseDelay != 500*time.Millisecond {
		t.Errorf("RetryBaseDelay: ожидалось 500ms, получено %v", cfg.RetryBaseDelay)
	}
	if cfg.RetryMaxDelay != 5*time.Second {
		t.Errorf("RetryMaxDelay: ожидалось 5s, получено %v", cfg.RetryMaxDelay)
	}
	if cfg.BackendTimeout != 5*time.Minute {
		t.Errorf("BackendTimeout: ожидалось 5m, получено %v", cfg.BackendTimeout)
	}
	if cfg.GitHubAPIURL != "https://api.github.com" {
		t.Errorf("GitHubAPIURL: ожидалось 'https://api.github.com', получено %q", cfg.GitHubAPIURL)
	}
	if cfg.GitHubBranch != "main" {
		t.Errorf("GitHubBranch: ожидалось 'main', получено %q", cfg.GitHubBranch)
	}
	if cfg.HTTPReadTimeout != 30*time.Second {
		t.Errorf("HTTPReadTimeout: ожидалось 30s, получено %v", cfg.HTTPReadTimeout)
	}
	if cfg.HTTPWriteTimeout != 10*time.Minute {
		t.Errorf("HTTPWriteTimeout: ожидалось 10m, получено %v", cfg.HTTPWriteTimeout)
	}
	if cfg.HTTPIdleTimeout != 120*time.Second {
		t.Errorf("HTTPIdleTimeout: ожидалось 120s, получено %v", cfg.HTTPIdleTimeout)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout: ожидалось 30s, получено %v", cfg.ShutdownTimeout)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins: ожидалось ['*'], получено %v", cfg.CORSOrigins)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: ожидалось INFO, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: ожидалось 'json', получено %q", cfg.LogFormat)
	}
	if !cfg.DephealthEnabled {
		t.Error("DephealthEnabled: ожидалось true для сетевого бэкенда")
	}
	if cfg.DephealthCheckInterval != 30*time.Second {
		t.Errorf("DephealthCheckInterval: ожидалось 30s, получено %v", cfg.DephealthCheckInterval)
	}
	if cfg.DephealthGroup != "file-relay" {
		t.Errorf("DephealthGroup: ожидалось 'file-relay', получено %q", cfg.DephealthGroup)
	}
	if cfg.DephealthDepName != "github" {
		t.Errorf("DephealthDepName: ожидалось 'github', получено %q", cfg.DephealthDepName)
	}
}

func TestLoad_AllCustomValues(t *testing.T) {
	cleanup := clearAllFREnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["FR_PORT"] = "9090"
	vars["FR_MAX_FILE_SIZE"] = "52428800"
	vars["FR_INLINE_THRESHOLD"] = "262144"
	vars["FR_CHUNK_SIZE"] = "524288"
	vars["FR_RETRY_ATTEMPTS"] = "5"
	vars["FR_RETRY_BASE_DELAY"] = "250ms"
	vars["FR_RETRY_MAX_DELAY"] = "10s"
	vars["FR_BACKEND_TIMEOUT"] = "2m"
	vars["FR_GITHUB_API_URL"] = "https://git.internal.example.com/api/v3"
	vars["FR_GITHUB_BRANCH"] = "storage"
	vars["FR_HTTP_READ_TIMEOUT"] = "20s"
	vars["FR_HTTP_WRITE_TIMEOUT"] = "5m"
	vars["FR_HTTP_IDLE_TIMEOUT"] = "90s"
	vars["FR_SHUTDOWN_TIMEOUT"] = "15s"
	vars["FR_TLS_CERT"] = "/tmp/tls.crt"
	vars["FR_TLS_KEY"] = "/tmp/tls.key"
	vars["FR_CORS_ORIGINS"] = "https://app.example.com, https://admin.example.com"
	vars["FR_LOG_LEVEL"] = "debug"
	vars["FR_LOG_FORMAT"] = "text"
	vars["FR_DEPHEALTH_CHECK_INTERVAL"] = "10s"
	vars["FR_DEPHEALTH_GROUP"] = "relay-group"
	vars["FR_DEPHEALTH_DEP_NAME"] = "git-storage"
	vars["DEPHEALTH_NAME"] = "file-relay-pod-01"

	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port: ожидалось 9090, получено %d", cfg.Port)
	}
	if cfg.MaxFileSize != 52428800 {
		t.Errorf("MaxFileSize: ожидалось 52428800, получено %d", cfg.MaxFileSize)
	}
	if cfg.InlineThreshold != 262144 {
		t.Errorf("InlineThreshold: ожидалось 262144, получено %d", cfg.InlineThreshold)
	}
	if cfg.ChunkSize != 524288 {
		t.Errorf("ChunkSize: ожидалось 524288, получено %d", cfg.ChunkSize)
	}
	if cfg.RetryAttempts != 5 {
		t.Errorf("RetryAttempts: ожидалось 5, получено %d", cfg.RetryAttempts)
	}
	if cfg.RetryBaseDelay != 250*time.Millisecond {
		t.Errorf("RetryBaseDelay: ожидалось 250ms, получено %v", cfg.RetryBaseDelay)
	}
	if cfg.RetryMaxDelay != 10*time.Second {
		t.Errorf("RetryMaxDelay: ожидалось 10s, получено %v", cfg.RetryMaxDelay)
	}
	if cfg.BackendTimeout != 2*time.Minute {
		t.Errorf("BackendTimeout: ожидалось 2m, получено %v", cfg.BackendTimeout)
	}
	if cfg.GitHubAPIURL != "https://git.internal.example.com/api/v3" {
		t.Errorf("GitHubAPIURL: получено %q", cfg.GitHubAPIURL)
	}
	if cfg.GitHubBranch != "storage" {
		t.Errorf("GitHubBranch: ожидалось 'storage', получено %q", cfg.GitHubBranch)
	}
	if cfg.HTTPReadTimeout != 20*time.Second {
		t.Errorf("HTTPReadTimeout: ожидалось 20s, получено %v", cfg.HTTPReadTimeout)
	}
	if cfg.HTTPWriteTimeout != 5*time.Minute {
		t.Errorf("HTTPWriteTimeout: ожидалось 5m, получено %v", cfg.HTTPWriteTimeout)
	}
	if cfg.HTTPIdleTimeout != 90*time.Second {
		t.Errorf("HTTPIdleTimeout: ожидалось 90s, получено %v", cfg.HTTPIdleTimeout)
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Errorf("ShutdownTimeout: ожидалось 15s, получено %v", cfg.ShutdownTimeout)
	}
	if cfg.TLSCert != "/tmp/tls.crt" || cfg.TLSKey != "/tmp/tls.key" {
		t.Errorf("TLS: получено cert=%q key=%q", cfg.TLSCert, cfg.TLSKey)
	}
	if len(cfg.CORSOrigins) != 2 ||
		cfg.CORSOrigins[0] != "https://app.example.com" ||
		cfg.CORSOrigins[1] != "https://admin.example.com" {
		t.Errorf("CORSOrigins: получено %v", cfg.CORSOrigins)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel: ожидалось DEBUG, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat: ожидалось 'text', получено %q", cfg.LogFormat)
	}
	if cfg.DephealthCheckInterval != 10*time.Second {
		t.Errorf("DephealthCheckInterval: ожидалось 10s, получено %v", cfg.DephealthCheckInterval)
	}
	if cfg.DephealthGroup != "relay-group" {
		t.Errorf("DephealthGroup: ожидалось 'relay-group', получено %q", cfg.DephealthGroup)
	}
	if cfg.DephealthDepName != "git-storage" {
		t.Errorf("DephealthDepName: ожидалось 'git-storage', получено %q", cfg.DephealthDepName)
	}
	if cfg.DephealthName != "file-relay-pod-01" {
		t.Errorf("DephealthName: ожидалось 'file-relay-pod-01', получено %q", cfg.DephealthName)
	}
}

func TestLoad_MissingPublicBaseURL(t *testing.T) {
	cleanup := clearAllFREnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	delete(vars, "FR_PUBLIC_BASE_URL")
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	_, err := Load()
	if err == nil {
		t.Error("ожидалась ошибка при отсутствии FR_PUBLIC_BASE_URL")
	}
}

func TestLoad_PublicBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{"без схемы", "files.example.com", "", true},
		{"чужая схема", "ftp://files.example.com", "", true},
		{"хвостовой слэш обрезается", "https://files.example.com/", "https://files.example.com", false},
		{"http допустим", "http://localhost:8080", "http://localhost:8080", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := clearAllFREnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			vars["FR_PUBLIC_BASE_URL"] = tt.value
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Errorf("ожидалась ошибка для FR_PUBLIC_BASE_URL=%q", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if cfg.PublicBaseURL != tt.want {
				t.Errorf("PublicBaseURL: ожидалось %q, получено %q", tt.want, cfg.PublicBaseURL)
			}
		})
	}
}

func TestLoad_InvalidBackend(t *testing.T) {
	cleanup := clearAllFREnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["FR_BACKEND"] = "redis"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	_, err := Load()
	if err == nil {
		t.Error("ожидалась ошибка для невалидного FR_BACKEND")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"ноль", "0"},
		{"выше диапазона", "70000"},
		{"не число", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := clearAllFREnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			vars["FR_PORT"] = tt.value
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			_, err := Load()
			if err == nil {
				t.Errorf("ожидалась ошибка для FR_PORT=%s", tt.value)
			}
		})
	}
}

func TestLoad_InvalidSizes(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"нулевой максимум файла", "FR_MAX_FILE_SIZE", "0"},
		{"отрицательный максимум файла", "FR_MAX_FILE_SIZE", "-1"},
		{"максимум файла не число", "FR_MAX_FILE_SIZE", "big"},
		{"отрицательный inline-порог", "FR_INLINE_THRESHOLD", "-1"},
		{"нулевой чанк", "FR_CHUNK_SIZE", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := clearAllFREnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			vars[tt.key] = tt.value
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			_, err := Load()
			if err == nil {
				t.Errorf("ожидалась ошибка для %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_ZeroInlineThreshold(t *testing.T) {
	cleanup := clearAllFREnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["FR_INLINE_THRESHOLD"] = "0"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if cfg.InlineThreshold != 0 {
		t.Errorf("InlineThreshold: ожидалось 0, получено %d", cfg.InlineThreshold)
	}
}

func TestLoad_RetryValidation(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"ноль попыток", map[string]string{"FR_RETRY_ATTEMPTS": "0"}},
		{"потолок меньше базы", map[string]string{
			"FR_RETRY_BASE_DELAY": "2s",
			"FR_RETRY_MAX_DELAY":  "1s",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := clearAllFREnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			for k, v := range tt.vars {
				vars[k] = v
			}
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			if _, err := Load(); err == nil {
				t.Error("ожидалась ошибка валидации retry-параметров")
			}
		})
	}
}

func TestLoad_GitHubAuth(t *testing.T) {
	appVars := map[string]string{
		"FR_GITHUB_APP_ID":               "12345",
		"FR_GITHUB_APP_PRIVATE_KEY_FILE": "/tmp/app.pem",
		"FR_GITHUB_APP_INSTALLATION_ID":  "67890",
	}

	tests := []struct {
		name    string
		mutate  func(vars map[string]string)
		wantErr bool
	}{
		{"только токен", func(_ map[string]string) {}, false},
		{"без аутентификации", func(vars map[string]string) {
			delete(vars, "FR_GITHUB_TOKEN")
		}, true},
		{"токен и App одновременно", func(vars map[string]string) {
			for k, v := range appVars {
				vars[k] = v
			}
		}, true},
		{"полный GitHub App", func(vars map[string]string) {
			delete(vars, "FR_GITHUB_TOKEN")
			for k, v := range appVars {
				vars[k] = v
			}
		}, false},
		{"неполный GitHub App", func(vars map[string]string) {
			delete(vars, "FR_GITHUB_TOKEN")
			vars["FR_GITHUB_APP_ID"] = "12345"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := clearAllFREnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			tt.mutate(vars)
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Error("ожидалась ошибка аутентификации github")
				}
				return
			}
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if cfg.Backend != "github" {
				t.Errorf("Backend: ожидалось 'github', получено %q", cfg.Backend)
			}
		})
	}
}

func TestLoad_MissingGitHubRepo(t *testing.T) {
	for _, missing := range []string{"FR_GITHUB_OWNER", "FR_GITHUB_REPO"} {
		t.Run(missing, func(t *testing.T) {
			cleanup := clearAllFREnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			delete(vars, missing)
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			if _, err := Load(); err == nil {
				t.Errorf("ожидалась ошибка при отсутствии %s", missing)
			}
		})
	}
}

func TestLoad_S3Backend(t *testing.T) {
	t.Run("без bucket", func(t *testing.T) {
		cleanup := clearAllFREnvVars(t)
		defer cleanup()

		cleanupVars := setEnvVars(t, map[string]string{
			"FR_PUBLIC_BASE_URL": "https://files.example.com",
			"FR_BACKEND":         "s3",
		})
		defer cleanupVars()

		if _, err := Load(); err == nil {
			t.Error("ожидалась ошибка при отсутствии FR_S3_BUCKET")
		}
	})

	t.Run("path style по умолчанию без endpoint", func(t *testing.T) {
		cleanup := clearAllFREnvVars(t)
		defer cleanup()

		cleanupVars := setEnvVars(t, map[string]string{
			"FR_PUBLIC_BASE_URL": "https://files.example.com",
			"FR_BACKEND":         "s3",
			"FR_S3_BUCKET":       "relay-files",
			"FR_S3_REGION":       "eu-central-1",
		})
		defer cleanupVars()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
		if cfg.S3UsePathStyle {
			t.Error("S3UsePathStyle: ожидалось false без endpoint")
		}
		if cfg.S3Bucket != "relay-files" || cfg.S3Region != "eu-central-1" {
			t.Errorf("S3: получено bucket=%q region=%q", cfg.S3Bucket, cfg.S3Region)
		}
	})

	t.Run("path style по умолчанию с endpoint", func(t *testing.T) {
		cleanup := clearAllFREnvVars(t)
		defer cleanup()

		cleanupVars := setEnvVars(t, map[string]string{
			"FR_PUBLIC_BASE_URL": "https://files.example.com",
			"FR_BACKEND":         "s3",
			"FR_S3_BUCKET":       "relay-files",
			"FR_S3_ENDPOINT":     "https://minio.internal:9000",
		})
		defer cleanupVars()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
		if !cfg.S3UsePathStyle {
			t.Error("S3UsePathStyle: ожидалось true при заданном endpoint")
		}
	})

	t.Run("path style явно выключен", func(t *testing.T) {
		cleanup := clearAllFREnvVars(t)
		defer cleanup()

		cleanupVars := setEnvVars(t, map[string]string{
			"FR_PUBLIC_BASE_URL":   "https://files.example.com",
			"FR_BACKEND":           "s3",
			"FR_S3_BUCKET":         "relay-files",
			"FR_S3_ENDPOINT":       "https://minio.internal:9000",
			"FR_S3_USE_PATH_STYLE": "false",
		})
		defer cleanupVars()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
		if cfg.S3UsePathStyle {
			t.Error("S3UsePathStyle: ожидалось false при явном выключении")
		}
	})
}

func TestLoad_DiskBackend(t *testing.T) {
	t.Run("без каталога", func(t *testing.T) {
		cleanup := clearAllFREnvVars(t)
		defer cleanup()

		cleanupVars := setEnvVars(t, map[string]string{
			"FR_PUBLIC_BASE_URL": "https://files.example.com",
			"FR_BACKEND":         "disk",
		})
		defer cleanupVars()

		if _, err := Load(); err == nil {
			t.Error("ожидалась ошибка при отсутствии FR_DATA_DIR")
		}
	})

	t.Run("мониторинг выключен по умолчанию", func(t *testing.T) {
		cleanup := clearAllFREnvVars(t)
		defer cleanup()

		cleanupVars := setEnvVars(t, map[string]string{
			"FR_PUBLIC_BASE_URL": "https://files.example.com",
			"FR_BACKEND":         "disk",
			"FR_DATA_DIR":        "/tmp/relay-data",
		})
		defer cleanupVars()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
		if cfg.DephealthEnabled {
			t.Error("DephealthEnabled: ожидалось false для локального бэкенда")
		}
	})

	t.Run("мониторинг для локального бэкенда запрещён", func(t *testing.T) {
		cleanup := clearAllFREnvVars(t)
		defer cleanup()

		cleanupVars := setEnvVars(t, map[string]string{
			"FR_PUBLIC_BASE_URL":   "https://files.example.com",
			"FR_BACKEND":           "disk",
			"FR_DATA_DIR":          "/tmp/relay-data",
			"FR_DEPHEALTH_ENABLED": "true",
		})
		defer cleanupVars()

		if _, err := Load(); err == nil {
			t.Error("ожидалась ошибка: мониторинг несовместим с локальным бэкендом")
		}
	})
}

func TestLoad_MemoryBackend(t *testing.T) {
	cleanup := clearAllFREnvVars(t)
	defer cleanup()

	cleanupVars := setEnvVars(t, map[string]string{
		"FR_PUBLIC_BASE_URL": "https://files.example.com",
		"FR_BACKEND":         "memory",
	})
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if cfg.Backend != "memory" {
		t.Errorf("Backend: ожидалось 'memory', получено %q", cfg.Backend)
	}
	if cfg.DephealthEnabled {
		t.Error("DephealthEnabled: ожидалось false для бэкенда memory")
	}
}

func TestLoad_TLSPair(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr bool
	}{
		{"только сертификат", map[string]string{"FR_TLS_CERT": "/tmp/tls.crt"}, true},
		{"только ключ", map[string]string{"FR_TLS_KEY": "/tmp/tls.key"}, true},
		{"пара целиком", map[string]string{
			"FR_TLS_CERT": "/tmp/tls.crt",
			"FR_TLS_KEY":  "/tmp/tls.key",
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := clearAllFREnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			for k, v := range tt.vars {
				vars[k] = v
			}
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			_, err := Load()
			if tt.wantErr && err == nil {
				t.Error("ожидалась ошибка: TLS сертификат и ключ задаются вместе")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("неожиданная ошибка: %v", err)
			}
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	cleanup := clearAllFREnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["FR_BACKEND_TIMEOUT"] = "10 minutes"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	if _, err := Load(); err == nil {
		t.Error("ожидалась ошибка для невалидной длительности")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	cleanup := clearAllFREnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["FR_LOG_LEVEL"] = "verbose"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	if _, err := Load(); err == nil {
		t.Error("ожидалась ошибка для невалидного FR_LOG_LEVEL")
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	cleanup := clearAllFREnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["FR_LOG_FORMAT"] = "xml"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	if _, err := Load(); err == nil {
		t.Error("ожидалась ошибка для невалидного FR_LOG_FORMAT")
	}
}

func TestLoad_ValidLogLevels(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cleanup := clearAllFREnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			vars["FR_LOG_LEVEL"] = tt.value
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			cfg, err := Load()
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if cfg.LogLevel != tt.want {
				t.Errorf("LogLevel: ожидалось %v, получено %v", tt.want, cfg.LogLevel)
			}
		})
	}
}

func TestLoad_CORSOrigins(t *testing.T) {
	cleanup := clearAllFREnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["FR_CORS_ORIGINS"] = " https://a.example.com ,, https://b.example.com "
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.CORSOrigins) != len(want) {
		t.Fatalf("CORSOrigins: ожидалось %d источников, получено %d", len(want), len(cfg.CORSOrigins))
	}
	for i, origin := range want {
		if cfg.CORSOrigins[i] != origin {
			t.Errorf("CORSOrigins[%d]: ожидалось %q, получено %q", i, origin, cfg.CORSOrigins[i])
		}
	}
}

func TestSetupLogger(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		t.Run(format, func(t *testing.T) {
			cfg := &Config{LogLevel: slog.LevelInfo, LogFormat: format}
			logger := SetupLogger(cfg)
			if logger == nil {
				t.Fatal("ожидался ненулевой логгер")
			}
		})
	}
}

func TestLoad_ErrorMessageNamesVariable(t *testing.T) {
	cleanup := clearAllFREnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["FR_RETRY_ATTEMPTS"] = "none"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	_, err := Load()
	if err == nil {
		t.Fatal("ожидалась ошибка для FR_RETRY_ATTEMPTS=none")
	}
	if !strings.Contains(err.Error(), "FR_RETRY_ATTEMPTS") {
		t.Errorf("ошибка не называет переменную: %v", err)
	}
}
