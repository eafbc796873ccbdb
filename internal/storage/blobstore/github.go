// github.go — эталонный бэкенд: contents API git-хостинга как
// key/value блоб-хранилище.
//
// Особенности провайдера, скрываемые адаптером:
//   - put требует ревизионный токен (blob SHA) существующего объекта,
//     поэтому перед записью выполняется stat; его «не найдено» —
//     нормальный поток управления (создание нового объекта);
//   - JSON-ответ contents инлайнит base64-содержимое мелких объектов,
//     крупные приходят с пустым content — их тело скачивается вторым
//     запросом с media type raw;
//   - превышение лимита запросов может приходить статусом 403
//     с текстом про rate limit, а не 429.
package blobstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// acceptJSON — media type метаданных contents API.
	acceptJSON = "application/vnd.github+json"
	// acceptRaw — media type прямого скачивания тела объекта.
	acceptRaw = "application/vnd.github.raw"
	// apiVersion — версия REST API.
	apiVersion = "2022-11-28"
	// userAgent — обязательный User-Agent запросов к API.
	userAgent = "file-relay"

	// defaultMaxObjectSize — потолок размера объекта contents API (100 MiB).
	defaultMaxObjectSize = 100 << 20
	// defaultMaxInlineSize — порог inline-передачи contents API (1 MiB).
	defaultMaxInlineSize = 1 << 20
)

// GitHubConfig — конфигурация эталонного бэкенда. Значение строится
// один раз при старте процесса и передаётся в конструктор явно.
type GitHubConfig struct {
	// APIBaseURL — база REST API (по умолчанию https://api.github.com).
	APIBaseURL string
	// Owner, Repo, Branch — репозиторий-хранилище.
	Owner  string
	Repo   string
	Branch string

	// Token — статический токен. Взаимоисключим с GitHub App.
	Token string
	// AppID, AppPrivateKey, AppInstallationID — аутентификация GitHub App.
	AppID             int64
	AppPrivateKey     []byte
	AppInstallationID int64

	// HTTPClient — переопределение клиента (тесты). nil — клиент
	// с таймаутом по умолчанию.
	HTTPClient *http.Client

	// MaxObjectSize, MaxInlineSize — переопределение лимитов провайдера.
	MaxObjectSize int64
	MaxInlineSize int64
}

// GitHubStore — адаптер contents API.
type GitHubStore struct {
	baseURL string
	owner   string
	repo    string
	branch  string
	auth    authProvider
	hc      *http.Client
	caps    Capabilities
	logger  *slog.Logger
}

var _ Store = (*GitHubStore)(nil)

// NewGitHubStore проверяет конфигурацию и создаёт адаптер.
// Требуется ровно один режим аутентификации: токен или GitHub App.
func NewGitHubStore(cfg GitHubConfig, logger *slog.Logger) (*GitHubStore, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github: не заданы owner/repo репозитория-хранилища")
	}

	hasToken := cfg.Token != ""
	hasApp := cfg.AppID != 0 || len(cfg.AppPrivateKey) > 0 || cfg.AppInstallationID != 0
	if hasToken == hasApp {
		return nil, fmt.Errorf("github: требуется ровно один режим аутентификации — токен или GitHub App")
	}
	if hasApp && (cfg.AppID == 0 || len(cfg.AppPrivateKey) == 0 || cfg.AppInstallationID == 0) {
		return nil, fmt.Errorf("github: для GitHub App нужны app id, приватный ключ и installation id")
	}

	baseURL := strings.TrimSuffix(cfg.APIBaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	branch := cfg.Branch
	if branch == "" {
		branch = "main"
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Minute}
	}

	var auth authProvider
	if hasToken {
		auth = &staticTokenAuth{value: cfg.Token}
	} else {
		appAuth, err := newAppAuth(cfg.AppID, cfg.AppInstallationID, cfg.AppPrivateKey, baseURL, hc)
		if err != nil {
			return nil, err
		}
		auth = appAuth
	}

	caps := Capabilities{
		MaxObjectSize: cfg.MaxObjectSize,
		MaxInlineSize: cfg.MaxInlineSize,
	}
	if caps.MaxObjectSize <= 0 {
		caps.MaxObjectSize = defaultMaxObjectSize
	}
	if caps.MaxInlineSize <= 0 {
		caps.MaxInlineSize = defaultMaxInlineSize
	}

	return &GitHubStore{
		baseURL: baseURL,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		branch:  branch,
		auth:    auth,
		hc:      hc,
		caps:    caps,
		logger:  logger.With(slog.String("component", "github_store")),
	}, nil
}

// contentsEntry — файл в JSON-ответе contents API.
type contentsEntry struct {
	Type        string `json:"type"`
	Size        int64  `json:"size"`
	SHA         string `json:"sha"`
	Encoding    string `json:"encoding"`
	Content     string `json:"content"`
	DownloadURL string `json:"download_url"`
}

// putPayload — тело PUT contents API.
type putPayload struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

// putResult — ответ PUT contents API.
type putResult struct {
	Content contentsEntry `json:"content"`
}

// Stat возвращает метаданные объекта. Это JSON-вызов contents API:
// он отдаёт размер и ревизионный SHA; инлайн-содержимое мелких объектов,
// которое провайдер кладёт в тот же ответ, здесь игнорируется. Путь
// прямого скачивания Stat не использует никогда.
func (s *GitHubStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	entry, err := s.fetchEntry(ctx, key)
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		Size:        entry.Size,
		Fingerprint: entry.SHA,
		Locator:     entry.DownloadURL,
	}, nil
}

func (s *GitHubStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Stat(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Get возвращает тело объекта. Мелкие объекты декодируются из инлайн
// base64 JSON-ответа; крупные (больше порога или без инлайн-содержимого)
// скачиваются вторым запросом с media type raw.
func (s *GitHubStore) Get(ctx context.Context, key string) (Object, error) {
	entry, err := s.fetchEntry(ctx, key)
	if err != nil {
		return Object{}, err
	}

	info := ObjectInfo{Size: entry.Size, Fingerprint: entry.SHA, Locator: entry.DownloadURL}

	if entry.Size <= s.caps.MaxInlineSize && entry.Encoding == "base64" && entry.Content != "" {
		// Провайдер переносит base64 построчно
		data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(entry.Content, "\n", ""))
		if err != nil {
			return Object{}, &BackendError{Backend: "github", Op: "get", Err: fmt.Errorf("декодирование inline-содержимого: %w", err)}
		}
		info.Size = int64(len(data))
		return Object{Data: data, Info: info}, nil
	}

	data, err := s.fetchRaw(ctx, key)
	if err != nil {
		return Object{}, err
	}
	info.Size = int64(len(data))
	return Object{Data: data, Info: info}, nil
}

// Put сохраняет объект create-or-replace. Потолок размера проверяется
// до любого сетевого вызова; затем stat разрешает ревизионный токен:
// его отсутствие означает создание, наличие — замену по SHA.
func (s *GitHubStore) Put(ctx context.Context, key string, data []byte) (ObjectInfo, error) {
	if int64(len(data)) > s.caps.MaxObjectSize {
		return ObjectInfo{}, ErrTooLarge
	}

	prevSHA := ""
	switch info, err := s.Stat(ctx, key); {
	case err == nil:
		prevSHA = info.Fingerprint
	case errors.Is(err, ErrNotFound):
		// создание нового объекта
	default:
		return ObjectInfo{}, err
	}

	payload := putPayload{
		Message: "file-relay: upload " + key,
		Content: base64.StdEncoding.EncodeToString(data),
		Branch:  s.branch,
		SHA:     prevSHA,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return ObjectInfo{}, &BackendError{Backend: "github", Op: "put", Err: err}
	}

	req, err := s.newRequest(ctx, http.MethodPut, s.contentsURL(key), bytes.NewReader(body), acceptJSON)
	if err != nil {
		return ObjectInfo{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.hc.Do(req)
	if err != nil {
		return ObjectInfo{}, &BackendError{Backend: "github", Op: "put", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return ObjectInfo{}, s.apiError("put", resp)
	}

	var result putResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ObjectInfo{}, &BackendError{Backend: "github", Op: "put", Err: fmt.Errorf("разбор ответа put: %w", err)}
	}

	s.logger.Debug("Объект записан",
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.String("sha", result.Content.SHA),
		slog.Bool("replaced", prevSHA != ""),
	)

	return ObjectInfo{
		Size:        int64(len(data)),
		Fingerprint: result.Content.SHA,
		Locator:     result.Content.DownloadURL,
	}, nil
}

func (s *GitHubStore) Capabilities() Capabilities {
	return s.caps
}

func (s *GitHubStore) Kind() string {
	return "github"
}

// fetchEntry выполняет JSON-вызов contents API для ключа.
func (s *GitHubStore) fetchEntry(ctx context.Context, key string) (*contentsEntry, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.contentsURL(key)+"?ref="+s.branch, nil, acceptJSON)
	if err != nil {
		return nil, err
	}

	resp, err := s.hc.Do(req)
	if err != nil {
		return nil, &BackendError{Backend: "github", Op: "stat", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, s.apiError("stat", resp)
	}

	var entry contentsEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return nil, &BackendError{Backend: "github", Op: "stat", Err: fmt.Errorf("разбор ответа contents: %w", err)}
	}
	if entry.Type != "" && entry.Type != "file" {
		return nil, &BackendError{Backend: "github", Op: "stat", Err: fmt.Errorf("ключ %s указывает не на файл: %s", key, entry.Type)}
	}
	return &entry, nil
}

// fetchRaw скачивает тело объекта прямым путём (media type raw).
func (s *GitHubStore) fetchRaw(ctx context.Context, key string) ([]byte, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.contentsURL(key)+"?ref="+s.branch, nil, acceptRaw)
	if err != nil {
		return nil, err
	}

	resp, err := s.hc.Do(req)
	if err != nil {
		return nil, &BackendError{Backend: "github", Op: "get", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, s.apiError("get", resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.caps.MaxObjectSize+1))
	if err != nil {
		return nil, &BackendError{Backend: "github", Op: "get", Err: fmt.Errorf("чтение тела объекта: %w", err)}
	}
	return data, nil
}

// newRequest собирает запрос к API с аутентификацией и обязательными
// заголовками.
func (s *GitHubStore) newRequest(ctx context.Context, method, url string, body io.Reader, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &BackendError{Backend: "github", Op: "request", Err: err}
	}

	token, err := s.auth.token(ctx)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

// contentsURL — адрес contents API для ключа. Ключ files/<идентификатор>
// прошёл валидацию формата и безопасен как сегменты пути.
func (s *GitHubStore) contentsURL(key string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", s.baseURL, s.owner, s.repo, key)
}

// apiError разбирает неуспешный ответ API в BackendError.
// Текст ошибки провайдера сохраняется для логов, наружу он не утекает.
func (s *GitHubStore) apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	message := strings.TrimSpace(string(body))
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		message = payload.Message
	}

	lower := strings.ToLower(message)
	throttled := resp.StatusCode == http.StatusForbidden &&
		(strings.Contains(lower, "rate limit") || strings.Contains(lower, "abuse"))

	return &BackendError{
		Backend:    "github",
		Op:         op,
		StatusCode: resp.StatusCode,
		Throttled:  throttled,
		Err:        errors.New(message),
	}
}
