// Пакет retry — единая политика повторов для обращений к блоб-бэкенду.
//
// Одна политика используется и пайплайном загрузки, и стратегией
// скачивания: одинаковое число попыток, одинаковый экспоненциальный
// backoff с полным джиттером, один предикат повторяемости. Повторяются
// только транзиентные ошибки бэкенда; NotFound и отказ по потолку
// размера не повторяются никогда.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Policy — параметры повторов.
type Policy struct {
	// MaxAttempts — максимум попыток, включая первую. Значения < 1
	// трактуются как 1 (без повторов).
	MaxAttempts int

	// BaseDelay — задержка перед второй попыткой. Каждая следующая
	// удваивается до MaxDelay.
	BaseDelay time.Duration

	// MaxDelay — потолок задержки. 0 — без потолка.
	MaxDelay time.Duration

	// Retryable решает, имеет ли смысл повторять после ошибки.
	// nil — повторяются все ошибки.
	Retryable func(error) bool

	// OnRetry вызывается перед паузой между попытками (для логирования).
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Do выполняет op до первого успеха или исчерпания попыток.
// Возвращает nil при успехе, иначе последнюю ошибку op. Отмена
// контекста во время паузы прерывает цикл с ctx.Err().
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = op(ctx)
		if err == nil || attempt >= attempts {
			return err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}

		delay := p.delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// delay — экспоненциальный backoff с полным джиттером: базовая задержка
// удваивается на каждую попытку, итог выбирается из [d/2, d).
func (p Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	if d <= 0 {
		d = 100 * time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if half := d / 2; half > 0 {
		d = half + rand.N(half)
	}
	return d
}
