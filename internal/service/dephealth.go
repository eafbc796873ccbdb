// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// File Relay мониторит единственную зависимость: блоб-бэкенд
// (GitHub API либо S3 endpoint, HTTP GET, critical). Для локальных
// бэкендов (disk, memory) мониторинг не включается.
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
//
// Используется встроенный HTTP checker из dephealth SDK.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks" // Регистрация фабрик checker-ов (HTTP и др.)
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bigkaa/filerelay/internal/config"
)

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// BackendCheckURL возвращает URL для HTTP-проверки доступности бэкенда.
// Пустая строка означает, что бэкенд локальный и проверять нечего.
func BackendCheckURL(cfg *config.Config) string {
	switch cfg.Backend {
	case "github":
		return cfg.GitHubAPIURL
	case "s3":
		if cfg.S3Endpoint != "" {
			return cfg.S3Endpoint
		}
		if cfg.S3Region != "" {
			return "https://s3." + cfg.S3Region + ".amazonaws.com"
		}
		return "https://s3.amazonaws.com"
	default:
		return ""
	}
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
//
// Параметры:
//   - name — имя вершины графа текущего приложения (DEPHEALTH_NAME)
//   - group — имя группы в метриках (FR_DEPHEALTH_GROUP)
//   - depName — имя зависимости (FR_DEPHEALTH_DEP_NAME)
//   - checkURL — URL бэкенда для проверки (см. BackendCheckURL)
//   - checkInterval — интервал проверки (FR_DEPHEALTH_CHECK_INTERVAL)
func NewDephealthService(
	name string,
	group string,
	depName string,
	checkURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
) (*DephealthService, error) {
	return newDephealthService(name, group, depName, checkURL, checkInterval, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	name string,
	group string,
	depName string,
	checkURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(name, group, depName, checkURL, checkInterval, logger, dephealth.WithRegisterer(registerer))
}

// newDephealthService — внутренний конструктор.
func newDephealthService(
	name string,
	group string,
	depName string,
	checkURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	// Встроенный HTTP checker с per-dependency интервалом
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.HTTP(depName,
			dephealth.FromURL(checkURL),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(true),
		),
	}
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(
		name,
		group,
		opts...,
	)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
