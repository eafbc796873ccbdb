// github_auth.go — аутентификация запросов к contents API.
// Два режима: статический токен (PAT) и GitHub App — RS256 JWT приложения
// обменивается на installation token, который кэшируется и обновляется
// заранее, до истечения срока действия.
package blobstore

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// appJWTLifetime — срок действия JWT приложения (максимум API — 10 минут).
	appJWTLifetime = 10 * time.Minute

	// appJWTBackdate — сдвиг iat в прошлое для устойчивости к расхождению часов.
	appJWTBackdate = time.Minute

	// tokenRotationMargin — за сколько до истечения installation token
	// запрашивается новый.
	tokenRotationMargin = 5 * time.Minute
)

// authProvider — источник bearer-токена для запросов к API.
type authProvider interface {
	token(ctx context.Context) (string, error)
}

// staticTokenAuth — фиксированный токен из конфигурации.
type staticTokenAuth struct {
	value string
}

func (a *staticTokenAuth) token(ctx context.Context) (string, error) {
	return a.value, nil
}

// appAuth — аутентификация GitHub App.
type appAuth struct {
	appID          int64
	installationID int64
	key            *rsa.PrivateKey
	apiBaseURL     string
	hc             *http.Client

	mu     sync.Mutex
	cached string
	expiry time.Time
}

// newAppAuth разбирает приватный ключ приложения из PEM (PKCS#1 или PKCS#8).
func newAppAuth(appID, installationID int64, privateKeyPEM []byte, apiBaseURL string, hc *http.Client) (*appAuth, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("github: разбор приватного ключа приложения: %w", err)
	}
	return &appAuth{
		appID:          appID,
		installationID: installationID,
		key:            key,
		apiBaseURL:     apiBaseURL,
		hc:             hc,
	}, nil
}

// token возвращает закэшированный installation token или обменивает
// свежий JWT приложения на новый.
func (a *appAuth) token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cached != "" && time.Until(a.expiry) > tokenRotationMargin {
		return a.cached, nil
	}

	appJWT, err := a.signAppJWT()
	if err != nil {
		return "", err
	}

	token, expiry, err := a.exchange(ctx, appJWT)
	if err != nil {
		return "", err
	}

	a.cached = token
	a.expiry = expiry
	return token, nil
}

// signAppJWT подписывает короткоживущий RS256 JWT приложения.
// iat сдвинут в прошлое: API отклоняет токены «из будущего» при
// расхождении часов.
func (a *appAuth) signAppJWT() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(a.appID, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-appJWTBackdate)),
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTLifetime)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("github: подпись JWT приложения: %w", err)
	}
	return signed, nil
}

// exchange обменивает JWT приложения на installation token.
func (a *appAuth) exchange(ctx context.Context, appJWT string) (string, time.Time, error) {
	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", a.apiBaseURL, a.installationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("github: формирование запроса токена: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+appJWT)
	req.Header.Set("Accept", acceptJSON)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	resp, err := a.hc.Do(req)
	if err != nil {
		return "", time.Time{}, &BackendError{Backend: "github", Op: "auth", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", time.Time{}, &BackendError{
			Backend:    "github",
			Op:         "auth",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("обмен JWT на installation token: %s", string(body)),
		}
	}

	var payload struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", time.Time{}, &BackendError{Backend: "github", Op: "auth", Err: fmt.Errorf("разбор ответа токена: %w", err)}
	}
	if payload.Token == "" {
		return "", time.Time{}, &BackendError{Backend: "github", Op: "auth", Err: fmt.Errorf("пустой installation token в ответе")}
	}

	return payload.Token, payload.ExpiresAt, nil
}
