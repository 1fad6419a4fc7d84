package store

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"
)

type memoryItem struct {
	value   []byte
	expires time.Time
}

// MemoryKV is an in-memory KV with TTL support, used in tests and
// single-node development. Expired entries are dropped lazily on access.
type MemoryKV struct {
	mu    sync.Mutex
	items map[string]memoryItem
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: make(map[string]memoryItem)}
}

func (s *MemoryKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.liveLocked(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), it.value...), true, nil
}

func (s *MemoryKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.items[key] = memoryItem{value: append([]byte(nil), value...), expires: exp}
	return nil
}

func (s *MemoryKV) Del(ctx context.Context, keys ...string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.items, key)
	}
	return nil
}

func (s *MemoryKV) CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.liveLocked(key)
	if !ok || !bytes.Equal(it.value, expected) {
		return false, nil
	}
	delete(s.items, key)
	return true, nil
}

func (s *MemoryKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key := range s.items {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if _, ok := s.liveLocked(key); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// liveLocked returns the item for key, evicting it first if expired. Callers
// must hold mu.
func (s *MemoryKV) liveLocked(key string) (memoryItem, bool) {
	it, ok := s.items[key]
	if !ok {
		return memoryItem{}, false
	}
	if !it.expires.IsZero() && time.Now().After(it.expires) {
		delete(s.items, key)
		return memoryItem{}, false
	}
	return it, true
}
