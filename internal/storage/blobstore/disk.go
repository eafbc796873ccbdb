// disk.go — бэкенд на локальной файловой системе.
// Для разработки и self-hosted развёртываний без внешнего хранилища.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sidecarSuffix — суффикс файла-спутника с отпечатком содержимого.
// Отпечаток сохраняется при записи, чтобы Stat не перечитывал тело.
const sidecarSuffix = ".sha256"

// DiskStore — блоб-хранилище в каталоге на диске.
// Ключ files/<идентификатор> отображается в путь внутри корня.
type DiskStore struct {
	root string
	caps Capabilities
}

var _ Store = (*DiskStore)(nil)

// NewDiskStore создаёт хранилище в каталоге root, создавая его при
// необходимости.
func NewDiskStore(root string, caps Capabilities) (*DiskStore, error) {
	if root == "" {
		return nil, fmt.Errorf("disk: не задан корневой каталог")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("disk: не удалось создать каталог %s: %w", root, err)
	}
	return &DiskStore{root: root, caps: caps}, nil
}

// Put записывает объект атомарно: temp файл → fsync → rename, затем тем
// же способом файл-спутник с отпечатком. При ошибке temp файлы удаляются.
func (s *DiskStore) Put(ctx context.Context, key string, data []byte) (ObjectInfo, error) {
	if s.caps.MaxObjectSize > 0 && int64(len(data)) > s.caps.MaxObjectSize {
		return ObjectInfo{}, ErrTooLarge
	}

	path, err := s.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return ObjectInfo{}, &BackendError{Backend: "disk", Op: "put", Err: err}
	}

	sum := sha256.Sum256(data)
	fp := hex.EncodeToString(sum[:])

	if err := writeAtomic(path, data); err != nil {
		return ObjectInfo{}, &BackendError{Backend: "disk", Op: "put", Err: err}
	}
	if err := writeAtomic(path+sidecarSuffix, []byte(fp)); err != nil {
		return ObjectInfo{}, &BackendError{Backend: "disk", Op: "put", Err: err}
	}

	return ObjectInfo{Size: int64(len(data)), Fingerprint: fp}, nil
}

func (s *DiskStore) Get(ctx context.Context, key string) (Object, error) {
	path, err := s.path(key)
	if err != nil {
		return Object{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Object{}, ErrNotFound
		}
		return Object{}, &BackendError{Backend: "disk", Op: "get", Err: err}
	}

	info, err := s.Stat(ctx, key)
	if err != nil {
		return Object{}, err
	}
	return Object{Data: data, Info: info}, nil
}

func (s *DiskStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	path, err := s.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ObjectInfo{}, ErrNotFound
		}
		return ObjectInfo{}, &BackendError{Backend: "disk", Op: "stat", Err: err}
	}

	// Отпечаток из файла-спутника; для файлов, записанных мимо
	// хранилища, спутника нет — отпечаток остаётся пустым.
	fp := ""
	if raw, err := os.ReadFile(path + sidecarSuffix); err == nil {
		fp = strings.TrimSpace(string(raw))
	}

	return ObjectInfo{Size: fi.Size(), Fingerprint: fp}, nil
}

func (s *DiskStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Stat(ctx, key)
	if err == nil {
		return true, nil
	}
	if err == ErrNotFound {
		return false, nil
	}
	return false, err
}

func (s *DiskStore) Capabilities() Capabilities {
	return s.caps
}

func (s *DiskStore) Kind() string {
	return "disk"
}

// path отображает ключ в путь внутри корня. Ключи приходят после
// валидации формата идентификатора; проверка здесь — последний рубеж
// на случай вызова мимо валидатора.
func (s *DiskStore) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("disk: недопустимый ключ %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// writeAtomic — temp файл → запись → fsync → атомарный rename.
func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}
