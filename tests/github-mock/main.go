// GitHub Mock Server — минималистичный сервис для тестовой среды File Relay.
// Имитирует contents API GitHub: отдаёт и принимает объекты по
// GET/PUT /repos/{owner}/{repo}/contents/{path}, обменивает JWT приложения
// на installation token по POST /app/installations/{id}/access_tokens.
// Объекты живут в памяти, SHA считается как git blob SHA настоящего GitHub.
package main

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// --- Конфигурация ---

// config хранит конфигурацию сервиса из env-переменных.
type config struct {
	Port           string // MOCK_PORT — порт HTTP-сервера (default: 8080)
	TLSCert        string // MOCK_TLS_CERT — путь к TLS сертификату (пусто — HTTP)
	TLSKey         string // MOCK_TLS_KEY — путь к TLS приватному ключу (пусто — HTTP)
	Token          string // MOCK_TOKEN — принимаемый статический токен (default: ghp_mock)
	InlineLimit    int64  // MOCK_INLINE_LIMIT — порог inline-содержимого в байтах (default: 1 MiB)
	RateLimitEvery int    // MOCK_RATE_LIMIT_EVERY — каждый N-й запрос к contents отвечает 403 rate limit (0 — выключено)
}

// loadConfig загружает конфигурацию из переменных окружения.
func loadConfig() config {
	cfg := config{
		Port:        envOrDefault("MOCK_PORT", "8080"),
		TLSCert:     os.Getenv("MOCK_TLS_CERT"),
		TLSKey:      os.Getenv("MOCK_TLS_KEY"),
		Token:       envOrDefault("MOCK_TOKEN", "ghp_mock"),
		InlineLimit: 1 << 20,
	}

	if v := os.Getenv("MOCK_INLINE_LIMIT"); v != "" {
		if limit, err := strconv.ParseInt(v, 10, 64); err == nil && limit > 0 {
			cfg.InlineLimit = limit
		}
	}
	if v := os.Getenv("MOCK_RATE_LIMIT_EVERY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitEvery = n
		}
	}

	return cfg
}

// envOrDefault возвращает значение env-переменной или default.
func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// --- Хранилище ---

// blobEntry — объект в памяти mock-репозитория.
type blobEntry struct {
	data []byte
	sha  string
}

// gitBlobSHA считает SHA объекта так же, как git: sha1("blob <len>\0<data>").
func gitBlobSHA(data []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(data))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// wrapBase64 кодирует содержимое в base64 с переводами строк каждые
// 60 символов — так отдаёт contents API настоящего GitHub.
func wrapBase64(data []byte) string {
	enc := base64.StdEncoding.EncodeToString(data)
	var b strings.Builder
	for len(enc) > 60 {
		b.WriteString(enc[:60])
		b.WriteString("\n")
		enc = enc[60:]
	}
	b.WriteString(enc)
	b.WriteString("\n")
	return b.String()
}

// --- Wire-типы contents API ---

// contentsEntry — файл в JSON-ответе contents API.
type contentsEntry struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Path        string `json:"path"`
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
	SHA     string `json:"sha"`
}

// --- Handlers ---

// server объединяет состояние сервиса: объекты, выданные токены, счётчики.
type server struct {
	cfg    config
	logger *slog.Logger

	mu           sync.Mutex
	objects      map[string]*blobEntry
	issuedTokens map[string]bool
	tokenSeq     int
	requests     int
}

// authorized проверяет bearer-токен запроса: статический из конфигурации
// либо installation token, выданный этим же mock-ом.
func (s *server) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return token == s.cfg.Token || s.issuedTokens[token]
}

// rateLimited имитирует троттлинг: каждый N-й запрос к contents
// отклоняется статусом 403 с текстом про rate limit, как у GitHub.
func (s *server) rateLimited() bool {
	if s.cfg.RateLimitEvery <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	return s.requests%s.cfg.RateLimitEvery == 0
}

// entryJSON собирает JSON-представление объекта. Содержимое мелких
// объектов инлайнится в base64, крупные приходят с encoding none.
func (s *server) entryJSON(r *http.Request, owner, repo, path string, e *blobEntry) contentsEntry {
	name := path
	if i := strings.LastIndexByte(path, '/'); i != -1 {
		name = path[i+1:]
	}
	entry := contentsEntry{
		Type:        "file",
		Name:        name,
		Path:        path,
		Size:        int64(len(e.data)),
		SHA:         e.sha,
		Encoding:    "none",
		DownloadURL: fmt.Sprintf("http://%s/raw/%s/%s/main/%s", r.Host, owner, repo, path),
	}
	if int64(len(e.data)) <= s.cfg.InlineLimit {
		entry.Encoding = "base64"
		entry.Content = wrapBase64(e.data)
	}
	return entry
}

// handleGetContents обрабатывает GET /repos/{owner}/{repo}/contents/{path}.
// Accept application/vnd.github.raw отдаёт тело напрямую, иначе JSON.
func (s *server) handleGetContents(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "Bad credentials")
		return
	}
	if s.rateLimited() {
		writeError(w, http.StatusForbidden, "API rate limit exceeded for installation.")
		return
	}

	owner, repo, path := r.PathValue("owner"), r.PathValue("repo"), r.PathValue("path")

	s.mu.Lock()
	e, ok := s.objects[owner+"/"+repo+"/"+path]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "raw") {
		w.Header().Set("Content-Type", "application/vnd.github.raw")
		w.Header().Set("Content-Length", strconv.Itoa(len(e.data)))
		w.Write(e.data)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.entryJSON(r, owner, repo, path, e))
}

// handlePutContents обрабатывает PUT /repos/{owner}/{repo}/contents/{path}.
// Семантика ревизий как у GitHub: создание требует пустой sha, замена —
// sha текущего объекта. Несовпадение даёт 409, отсутствие при замене — 422.
func (s *server) handlePutContents(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "Bad credentials")
		return
	}
	if s.rateLimited() {
		writeError(w, http.StatusForbidden, "API rate limit exceeded for installation.")
		return
	}

	owner, repo, path := r.PathValue("owner"), r.PathValue("repo"), r.PathValue("path")

	var payload putPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, 256<<20)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Problems parsing JSON: "+err.Error())
		return
	}
	if payload.Message == "" {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request.\n\n\"message\" wasn't supplied.")
		return
	}
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(payload.Content, "\n", ""))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "content is not valid Base64")
		return
	}

	key := owner + "/" + repo + "/" + path

	s.mu.Lock()
	existing, exists := s.objects[key]
	switch {
	case exists && payload.SHA == "":
		s.mu.Unlock()
		writeError(w, http.StatusUnprocessableEntity, "Invalid request.\n\n\"sha\" wasn't supplied.")
		return
	case exists && payload.SHA != existing.sha:
		s.mu.Unlock()
		writeError(w, http.StatusConflict, fmt.Sprintf("%s does not match %s", payload.SHA, existing.sha))
		return
	case !exists && payload.SHA != "":
		s.mu.Unlock()
		writeError(w, http.StatusUnprocessableEntity, "sha supplied for a new file")
		return
	}
	e := &blobEntry{data: data, sha: gitBlobSHA(data)}
	s.objects[key] = e
	s.mu.Unlock()

	status := http.StatusOK
	if !exists {
		status = http.StatusCreated
	}

	s.logger.Info("Объект записан",
		slog.String("path", key),
		slog.Int("size", len(data)),
		slog.String("sha", e.sha),
		slog.Bool("created", !exists),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"content": s.entryJSON(r, owner, repo, path, e),
		"commit":  map[string]any{"message": payload.Message},
	})
}

// handleAccessToken обрабатывает POST /app/installations/{id}/access_tokens.
// JWT приложения проверяется только структурно (подпись mock не проверяет),
// в ответ выдаётся installation token, который принимает authorized.
func (s *server) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		writeError(w, http.StatusUnauthorized, "A JSON web token could not be decoded")
		return
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		writeError(w, http.StatusUnauthorized, "A JSON web token could not be decoded")
		return
	}

	s.mu.Lock()
	s.tokenSeq++
	token := fmt.Sprintf("ghs_mock_%d", s.tokenSeq)
	s.issuedTokens[token] = true
	s.mu.Unlock()

	s.logger.Info("Installation token выдан",
		slog.String("installation_id", r.PathValue("id")),
		slog.String("app_id", claims.Issuer),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"token":      token,
		"expires_at": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	})
}

// handleHealth обрабатывает GET /health — проверка готовности сервиса.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleRoot обрабатывает GET / — проверки доступности API без пути
// (dephealth checker стучится в корень базового URL).
func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"current_user_url":"http://` + r.Host + `/user"}`))
}

// writeError отправляет ошибку клиенту в формате contents API.
func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"message": message,
	})
}

// --- Main ---

func main() {
	// Загрузка конфигурации
	cfg := loadConfig()

	// Настройка логгера (JSON)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Создаём сервер
	srv := &server{
		cfg:          cfg,
		logger:       logger,
		objects:      make(map[string]*blobEntry),
		issuedTokens: make(map[string]bool),
	}

	// Маршруты
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{repo}/contents/{path...}", srv.handleGetContents)
	mux.HandleFunc("PUT /repos/{owner}/{repo}/contents/{path...}", srv.handlePutContents)
	mux.HandleFunc("POST /app/installations/{id}/access_tokens", srv.handleAccessToken)
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.HandleFunc("GET /{$}", srv.handleRoot)

	addr := ":" + cfg.Port

	// Запуск: TLS или HTTP
	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		logger.Info("Запуск GitHub Mock Server (HTTPS)",
			slog.String("addr", addr),
			slog.String("tls_cert", cfg.TLSCert),
		)
		if err := http.ListenAndServeTLS(addr, cfg.TLSCert, cfg.TLSKey, mux); err != nil {
			logger.Error("Ошибка сервера", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		logger.Info("Запуск GitHub Mock Server (HTTP)", slog.String("addr", addr))
		fmt.Fprintf(os.Stderr, "ВНИМАНИЕ: TLS не настроен, работаем по HTTP\n")
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("Ошибка сервера", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
}
