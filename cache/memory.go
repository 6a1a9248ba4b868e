package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jrsteele09/nrf-quote/internal/errors"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is an in-process Cache. Expired entries are invisible to readers and are
// purged by a janitor goroutine which stops on Close.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	nowTime func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

var _ Cache = (*Memory)(nil)

type MemoryOption func(*Memory)

func WithNowTime(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.nowTime = now
	}
}

// NewMemory creates a memory cache. A positive sweep interval starts the janitor.
func NewMemory(sweepInterval time.Duration, opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		nowTime: time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if sweepInterval > 0 {
		go m.janitor(sweepInterval)
	} else {
		close(m.done)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string, dst any) error {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || m.expired(entry) {
		return errors.Wrapf(errors.ErrNotFound, "[Memory Get] %s", key)
	}
	if err := json.Unmarshal(entry.data, dst); err != nil {
		return errors.Wrapf(err, "[Memory Get] decode %s", key)
	}
	return nil
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "[Memory Set] encode %s", key)
	}
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = m.nowTime().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *Memory) Take(_ context.Context, key string, dst any) error {
	m.mu.Lock()
	entry, ok := m.entries[key]
	delete(m.entries, key)
	m.mu.Unlock()
	if !ok || m.expired(entry) {
		return errors.Wrapf(errors.ErrNotFound, "[Memory Take] %s", key)
	}
	if err := json.Unmarshal(entry.data, dst); err != nil {
		return errors.Wrapf(err, "[Memory Take] decode %s", key)
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included until swept.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the janitor and waits for it to exit.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
	return nil
}

func (m *Memory) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !m.nowTime().Before(entry.expiresAt)
}

func (m *Memory) janitor(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, entry := range m.entries {
		if m.expired(entry) {
			delete(m.entries, key)
		}
	}
}
