// memory.go — in-memory бэкенд для тестов и эфемерных запусков.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// MemoryStore — потокобезопасное хранилище в памяти.
// Содержимое копируется на входе и выходе, чтобы вызывающие не могли
// изменить сохранённые байты через общий срез.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	caps    Capabilities
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore создаёт пустое in-memory хранилище.
// Нулевые поля caps означают отсутствие соответствующего лимита.
func NewMemoryStore(caps Capabilities) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		caps:    caps,
	}
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte) (ObjectInfo, error) {
	if s.caps.MaxObjectSize > 0 && int64(len(data)) > s.caps.MaxObjectSize {
		return ObjectInfo{}, ErrTooLarge
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.objects[key] = buf
	s.mu.Unlock()

	return ObjectInfo{Size: int64(len(buf)), Fingerprint: fingerprint(buf)}, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (Object, error) {
	s.mu.RLock()
	data, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return Object{}, ErrNotFound
	}

	out := make([]byte, len(data))
	copy(out, data)
	return Object{
		Data: out,
		Info: ObjectInfo{Size: int64(len(out)), Fingerprint: fingerprint(out)},
	}, nil
}

func (s *MemoryStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	s.mu.RLock()
	data, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return ObjectInfo{}, ErrNotFound
	}
	return ObjectInfo{Size: int64(len(data)), Fingerprint: fingerprint(data)}, nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Stat(ctx, key)
	if err == nil {
		return true, nil
	}
	if err == ErrNotFound {
		return false, nil
	}
	return false, err
}

func (s *MemoryStore) Capabilities() Capabilities {
	return s.caps
}

func (s *MemoryStore) Kind() string {
	return "memory"
}

// Len возвращает количество объектов (для тестов).
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// fingerprint — SHA-256 содержимого в hex.
func fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
