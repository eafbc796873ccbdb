// Пакет contract хранит OpenAPI контракт сервиса.
//
// Контракт встроен в бинарник, при загрузке разбирается и валидируется
// библиотекой kin-openapi. Ошибка валидации означает рассинхронизацию
// контракта с кодом и останавливает запуск сервиса.
package contract

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var specYAML []byte

// Load разбирает встроенный контракт и проверяет его корректность.
func Load() (*openapi3.T, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("разбор OpenAPI контракта: %w", err)
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("валидация OpenAPI контракта: %w", err)
	}

	return doc, nil
}

// JSON возвращает валидированный контракт в JSON для отдачи клиентам.
func JSON() ([]byte, error) {
	doc, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("сериализация OpenAPI контракта: %w", err)
	}

	return data, nil
}
