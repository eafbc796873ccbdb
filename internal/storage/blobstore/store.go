// Пакет blobstore — адаптеры удалённых блоб-хранилищ File Relay.
//
// Единый контракт Store скрывает четыре бэкенда: contents API git-хостинга
// (эталонный), S3, локальный диск и in-memory. Бэкенд выбирается фабрикой
// по конфигурации. Адаптеры публикуют свои ограничения через Capabilities,
// чтобы вышележащие слои не зашивали лимиты конкретного провайдера.
//
// Классификация ошибок: ErrNotFound и ErrTooLarge — ожидаемые исходы,
// *BackendError — неуспех бэкенда с признаком транзиентности для политики
// повторов. Отсутствие ключа при предпроверке put — нормальный поток
// управления, не ошибка.
package blobstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound — объект отсутствует в хранилище.
	ErrNotFound = errors.New("объект не найден")

	// ErrTooLarge — объект превышает потолок размера бэкенда.
	// Проверяется до любого сетевого вызова и не повторяется.
	ErrTooLarge = errors.New("объект превышает потолок размера бэкенда")
)

// ObjectInfo — метаданные объекта без его тела.
type ObjectInfo struct {
	// Size — размер объекта в байтах.
	Size int64
	// Fingerprint — отпечаток содержимого, назначенный бэкендом
	// (git blob SHA, ETag, SHA-256). Для replace-семантики put служит
	// ревизионным токеном.
	Fingerprint string
	// Locator — прямая ссылка на скачивание, если бэкенд её публикует.
	Locator string
}

// Object — тело объекта вместе с метаданными.
type Object struct {
	Data []byte
	Info ObjectInfo
}

// Capabilities — ограничения бэкенда.
type Capabilities struct {
	// MaxObjectSize — жёсткий потолок размера объекта в байтах.
	MaxObjectSize int64
	// MaxInlineSize — порог inline-передачи: объекты крупнее должны
	// скачиваться прямым путём, минуя inline-кодирование метаданных.
	// 0 — inline-канала нет, все объекты идут прямым путём.
	MaxInlineSize int64
}

// Store — контракт блоб-бэкенда.
//
// Все операции принимают ключ вида files/<идентификатор>, заранее
// прошедший валидацию формата (ident.Valid). Адаптеры не выполняют
// собственную проверку на traversal сверх этого контракта.
type Store interface {
	// Put сохраняет объект под ключом (create-or-replace). Перед
	// записью адаптер сам разрешает ревизионный токен существующего
	// объекта, если бэкенд того требует. Полезная нагрузка больше
	// MaxObjectSize отклоняется с ErrTooLarge до сетевого ввода-вывода.
	Put(ctx context.Context, key string, data []byte) (ObjectInfo, error)

	// Get возвращает тело объекта. Объекты крупнее MaxInlineSize
	// скачиваются прямым путём внутри адаптера.
	Get(ctx context.Context, key string) (Object, error)

	// Stat возвращает метаданные, не передавая тело объекта.
	Stat(ctx context.Context, key string) (ObjectInfo, error)

	// Exists сообщает о наличии объекта; ErrNotFound сворачивается
	// в (false, nil).
	Exists(ctx context.Context, key string) (bool, error)

	// Capabilities — ограничения бэкенда.
	Capabilities() Capabilities

	// Kind — имя бэкенда для логов и метрик.
	Kind() string
}

// BackendError — неуспешный ответ бэкенда или транспортная ошибка.
type BackendError struct {
	// Backend — имя бэкенда (github, s3, disk).
	Backend string
	// Op — операция (put, get, stat).
	Op string
	// StatusCode — HTTP-статус ответа; 0 для транспортных ошибок.
	StatusCode int
	// Throttled — бэкенд явно сообщил о троттлинге (для провайдеров,
	// отвечающих на превышение лимита не-429 статусом).
	Throttled bool
	// Err — исходная ошибка или текст ответа бэкенда.
	Err error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s: статус %d: %v", e.Backend, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Transient сообщает, имеет ли смысл повторять операцию.
// Транзиентны транспортные сбои (статус 0), таймауты, троттлинг
// и 5xx; конфликт ревизий 409 тоже транзиентен — повтор перечитает
// актуальный токен.
func (e *BackendError) Transient() bool {
	switch {
	case e.Throttled:
		return true
	case e.StatusCode == 0:
		return true
	case e.StatusCode == 408, e.StatusCode == 409, e.StatusCode == 429:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// IsTransient — предикат повторяемости для политики retry.
// NotFound и отказ по потолку размера не повторяются никогда,
// отменённый контекст — тоже.
func IsTransient(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrTooLarge) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Transient()
	}
	return false
}
