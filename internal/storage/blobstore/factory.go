// factory.go — создание бэкенда, выбранного конфигурацией.
package blobstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bigkaa/filerelay/internal/config"
)

// NewStoreFromConfig создаёт бэкенд по FR_BACKEND. Потолок размера
// сетевых провайдеров остаётся их собственным; общий лимит сервиса
// (FR_MAX_FILE_SIZE) применяется выше, в сервисе загрузки.
func NewStoreFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	logger.Info("Инициализация блоб-бэкенда", slog.String("backend", cfg.Backend))

	switch cfg.Backend {
	case "github":
		gh := GitHubConfig{
			APIBaseURL:        cfg.GitHubAPIURL,
			Owner:             cfg.GitHubOwner,
			Repo:              cfg.GitHubRepo,
			Branch:            cfg.GitHubBranch,
			Token:             cfg.GitHubToken,
			AppID:             cfg.GitHubAppID,
			AppInstallationID: cfg.GitHubAppInstallationID,
			HTTPClient:        &http.Client{Timeout: cfg.BackendTimeout},
			MaxInlineSize:     cfg.InlineThreshold,
		}
		if cfg.GitHubAppKeyFile != "" {
			key, err := os.ReadFile(cfg.GitHubAppKeyFile)
			if err != nil {
				return nil, fmt.Errorf("чтение приватного ключа GitHub App: %w", err)
			}
			gh.AppPrivateKey = key
		}
		return NewGitHubStore(gh, logger)

	case "s3":
		return NewS3StoreFromConfig(ctx, S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			UsePathStyle: cfg.S3UsePathStyle,
		}, logger)

	case "disk":
		return NewDiskStore(cfg.DataDir, Capabilities{MaxObjectSize: cfg.MaxFileSize})

	case "memory":
		return NewMemoryStore(Capabilities{MaxObjectSize: cfg.MaxFileSize}), nil

	default:
		return nil, fmt.Errorf("неизвестный бэкенд %q", cfg.Backend)
	}
}
