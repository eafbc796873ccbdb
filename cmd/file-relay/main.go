// Точка входа File Relay — сервиса обмена файлами поверх блоб-хранилища.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/filerelay/internal/api/contract"
	"github.com/bigkaa/filerelay/internal/api/handlers"
	"github.com/bigkaa/filerelay/internal/config"
	"github.com/bigkaa/filerelay/internal/server"
	"github.com/bigkaa/filerelay/internal/service"
	"github.com/bigkaa/filerelay/internal/storage/blobstore"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("File Relay запускается",
		slog.String("version", config.Version),
		slog.String("backend", cfg.Backend),
		slog.Int("port", cfg.Port),
		slog.String("public_base_url", cfg.PublicBaseURL),
	)

	// --- Инициализация компонентов ---

	ctx := context.Background()

	// 1. Блоб-хранилище
	store, err := blobstore.NewStoreFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка инициализации блоб-хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Блоб-хранилище готово", slog.String("backend", store.Kind()))

	// 2. OpenAPI контракт: ошибка валидации останавливает запуск
	specJSON, err := contract.JSON()
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Сервисы
	uploadSvc := service.NewUploadService(cfg, store, logger)
	downloadSvc := service.NewDownloadService(cfg, store, logger)

	// 4. Мониторинг доступности бэкенда через topologymetrics
	var deps handlers.DependencyHealth
	var dephealthSvc *service.DephealthService
	if cfg.DephealthEnabled {
		checkURL := service.BackendCheckURL(cfg)
		dephealthSvc, err = service.NewDephealthService(
			dephealthName(cfg),
			cfg.DephealthGroup,
			cfg.DephealthDepName,
			checkURL,
			cfg.DephealthCheckInterval,
			logger,
		)
		if err != nil {
			logger.Warn("Мониторинг зависимостей недоступен, запуск без него",
				slog.String("error", err.Error()),
			)
			dephealthSvc = nil
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска мониторинга зависимостей",
				slog.String("error", startErr.Error()),
			)
			dephealthSvc = nil
		} else {
			deps = dephealthSvc
			logger.Info("Мониторинг бэкенда запущен",
				slog.String("check_url", checkURL),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 5. Handlers
	handler := handlers.NewHandler(
		handlers.NewFilesHandler(uploadSvc, downloadSvc),
		handlers.NewSystemHandler(specJSON),
		handlers.NewHealthHandler(cfg.Backend, deps),
		promhttp.Handler(),
	)

	// 6. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, handler)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("File Relay остановлен")
}

// dephealthName определяет значение метки name для topologymetrics:
// DEPHEALTH_NAME из окружения, иначе имя владельца пода из hostname.
func dephealthName(cfg *config.Config) string {
	if cfg.DephealthName != "" {
		return cfg.DephealthName
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "file-relay"
	}
	return parseOwnerName(hostname)
}
