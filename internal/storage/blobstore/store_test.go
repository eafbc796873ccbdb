package blobstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// TestBackendError_Transient проверяет классификацию по статусу.
func TestBackendError_Transient(t *testing.T) {
	tests := []struct {
		name      string
		err       *BackendError
		transient bool
	}{
		{"транспортная ошибка", &BackendError{StatusCode: 0}, true},
		{"троттлинг без статуса 429", &BackendError{StatusCode: 403, Throttled: true}, true},
		{"408", &BackendError{StatusCode: 408}, true},
		{"конфликт ревизий 409", &BackendError{StatusCode: 409}, true},
		{"429", &BackendError{StatusCode: 429}, true},
		{"500", &BackendError{StatusCode: 500}, true},
		{"503", &BackendError{StatusCode: 503}, true},
		{"400", &BackendError{StatusCode: 400}, false},
		{"403", &BackendError{StatusCode: 403}, false},
		{"404", &BackendError{StatusCode: 404}, false},
		{"422", &BackendError{StatusCode: 422}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Transient(); got != tt.transient {
				t.Errorf("ожидалось %v, получено %v", tt.transient, got)
			}
		})
	}
}

// TestIsTransient проверяет предикат повторяемости на ожидаемых исходах
// и обёрнутых ошибках.
func TestIsTransient(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"ErrNotFound", ErrNotFound, false},
		{"ErrTooLarge", ErrTooLarge, false},
		{"отменённый контекст", context.Canceled, false},
		{"истёкший дедлайн", context.DeadlineExceeded, false},
		{"неизвестная ошибка", errors.New("что-то пошло не так"), false},
		{"транзиентная BackendError", &BackendError{StatusCode: 502}, true},
		{"обёрнутая BackendError", fmt.Errorf("обращение к бэкенду: %w", &BackendError{StatusCode: 502}), true},
		{"обёрнутая ErrNotFound", fmt.Errorf("предпроверка: %w", ErrNotFound), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.transient {
				t.Errorf("ожидалось %v, получено %v", tt.transient, got)
			}
		})
	}
}
