package stores

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/liut/campus-assistant/pkg/settings"
)

// ErrNoItem is returned by GetItem for an absent key
var ErrNoItem = errors.New("no item")

// KV is a key/value storage in the manner of the browser's localStorage.
type KV interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Close() error
}

// store kinds
const (
	KindMemory = "memory"
	KindSqlite = "sqlite"
	KindRedis  = "redis"
)

// OpenKV opens the storage named by kind with the current settings
func OpenKV(kind string) (KV, error) {
	switch kind {
	case KindMemory:
		return NewMemoryKV(), nil
	case KindSqlite, "":
		return OpenSqliteKV(settings.Current.SqlitePath)
	case KindRedis:
		rc, err := NewRC(settings.Current.RedisURI)
		if err != nil {
			return nil, err
		}
		return NewRedisKV(rc, settings.Current.HistoryTTL), nil
	}
	return nil, fmt.Errorf("unsupported history store: %q", kind)
}

type memoryKV struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryKV returns a process local storage
func NewMemoryKV() KV {
	return &memoryKV{items: make(map[string]string)}
}

func (s *memoryKV) GetItem(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	if !ok {
		return "", ErrNoItem
	}
	return v, nil
}

func (s *memoryKV) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
	return nil
}

func (s *memoryKV) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

func (s *memoryKV) Close() error { return nil }
