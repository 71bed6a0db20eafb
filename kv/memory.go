package kv

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

type memorySet struct {
	members   map[string]struct{}
	expiresAt time.Time
}

// Memory is the process-local Store implementation for development and
// tests. It honors the same atomicity contract as Redis by holding one
// mutex across each operation; TTLs expire lazily on access.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	sets    map[string]*memorySet
	now     func() time.Time
}

// NewMemory creates an empty in-process Store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		sets:    make(map[string]*memorySet),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Test hook only.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) live(e memoryEntry) bool {
	return e.expiresAt.IsZero() || m.now().Before(e.expiresAt)
}

func (m *Memory) get(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !m.live(e) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (m *Memory) GetDel(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.get(key)
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.entries, key)
	return e.value, nil
}

func (m *Memory) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.entries, key)
		delete(m.sets, key)
	}
	return nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.get(key)
	return ok, nil
}

func (m *Memory) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	if e, ok := m.get(key); ok {
		parsed, err := strconv.ParseInt(string(e.value), 10, 64)
		if err == nil {
			count = parsed
		}
	}
	count++

	e := m.entries[key]
	e.value = []byte(strconv.FormatInt(count, 10))
	m.entries[key] = e
	return count, nil
}

func (m *Memory) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.get(key); ok {
		e.expiresAt = m.now().Add(ttl)
		m.entries[key] = e
		return nil
	}
	if s, ok := m.sets[key]; ok {
		s.expiresAt = m.now().Add(ttl)
	}
	return nil
}

func (m *Memory) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if e, ok := m.get(key); ok {
		expiresAt = e.expiresAt
	} else if s, ok := m.sets[key]; ok {
		expiresAt = s.expiresAt
	}

	if expiresAt.IsZero() {
		return 0, nil
	}
	remaining := expiresAt.Sub(m.now())
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

func (m *Memory) SAdd(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sets[key]
	if ok && !s.expiresAt.IsZero() && !m.now().Before(s.expiresAt) {
		delete(m.sets, key)
		ok = false
	}
	if !ok {
		s = &memorySet{members: make(map[string]struct{})}
		m.sets[key] = s
	}
	for _, member := range members {
		s.members[member] = struct{}{}
	}
	return nil
}

func (m *Memory) SRem(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sets[key]
	if !ok {
		return nil
	}
	for _, member := range members {
		delete(s.members, member)
	}
	if len(s.members) == 0 {
		delete(m.sets, key)
	}
	return nil
}

func (m *Memory) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sets[key]
	if !ok {
		return []string{}, nil
	}
	if !s.expiresAt.IsZero() && !m.now().Before(s.expiresAt) {
		delete(m.sets, key)
		return []string{}, nil
	}

	members := make([]string, 0, len(s.members))
	for member := range s.members {
		members = append(members, member)
	}
	return members, nil
}
