package cache

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	items       map[string]Entry
	mutex       sync.RWMutex
	ttl         time.Duration
	maxEntries  int
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds an in-process audio cache with a background GC loop.
func NewMemory(cfg Config) Store {
	cleanup := cfg.GCInterval
	if cleanup <= 0 {
		cleanup = 5 * time.Minute
	}
	s := &memoryStore{
		items:       make(map[string]Entry),
		ttl:         defaultTTL(cfg.TTL),
		maxEntries:  defaultMaxEntries(cfg.MaxEntries),
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.CleanupExpired(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mutex.RLock()
	entry, ok := s.items[key]
	s.mutex.RUnlock()
	if !ok || entry.expired(time.Now()) {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (s *memoryStore) Put(_ context.Context, key string, entry Entry) error {
	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.ExpiresAt == nil {
		exp := now.Add(s.ttl)
		entry.ExpiresAt = &exp
	}
	s.mutex.Lock()
	if _, exists := s.items[key]; !exists && len(s.items) >= s.maxEntries {
		s.evictLocked(now)
	}
	s.items[key] = entry
	s.mutex.Unlock()
	return nil
}

// evictLocked 先清理过期项，仍满时淘汰最早写入的一项
func (s *memoryStore) evictLocked(now time.Time) {
	for key, entry := range s.items {
		if entry.expired(now) {
			delete(s.items, key)
		}
	}
	if len(s.items) < s.maxEntries {
		return
	}
	var oldestKey string
	var oldest time.Time
	for key, entry := range s.items {
		if oldestKey == "" || entry.CreatedAt.Before(oldest) {
			oldestKey, oldest = key, entry.CreatedAt
		}
	}
	delete(s.items, oldestKey)
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mutex.Lock()
	delete(s.items, key)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) CleanupExpired(_ context.Context) error {
	now := time.Now()
	s.mutex.Lock()
	for key, entry := range s.items {
		if entry.expired(now) {
			delete(s.items, key)
		}
	}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Stats(_ context.Context) (map[string]any, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	var bytes int
	for _, entry := range s.items {
		bytes += len(entry.Audio)
	}
	return map[string]any{
		"type":        DriverMemory,
		"total":       len(s.items),
		"bytes":       bytes,
		"ttl_seconds": int(s.ttl.Seconds()),
		"max_entries": s.maxEntries,
	}, nil
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}
