// cors.go — CORS для загрузок и скачиваний из браузера.
package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS возвращает middleware с разрешёнными источниками из конфигурации.
// Range и заголовки ответа диапазонов открыты для браузерных плееров.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Range", "X-Request-Id"},
		ExposedHeaders: []string{"Accept-Ranges", "Content-Range", "Content-Disposition", "Content-Length", "X-Request-Id"},
		MaxAge:         300,
	})
}
