package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	session Session
	expires time.Time
}

// MemoryStore keeps sessions in a map. Expired entries are removed lazily
// on access and by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore. ttl <= 0 uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

// Create issues a new session for phone.
func (m *MemoryStore) Create(_ context.Context, phone string) (Session, error) {
	now := m.now()
	s := newSession(phone, now)

	m.mu.Lock()
	m.entries[s.Token] = memoryEntry{session: s, expires: now.Add(m.ttl)}
	m.mu.Unlock()
	return s, nil
}

// Get resolves token and extends its expiry.
func (m *MemoryStore) Get(_ context.Context, token string) (Session, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	if !now.Before(e.expires) {
		delete(m.entries, token)
		return Session{}, ErrNotFound
	}
	e.expires = now.Add(m.ttl)
	m.entries[token] = e
	return e.session, nil
}

// Delete removes token. Unknown tokens are not an error.
func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.entries, token)
	m.mu.Unlock()
	return nil
}

// Sweep drops expired sessions and reports how many were removed.
func (m *MemoryStore) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for tok, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, tok)
			n++
		}
	}
	return n
}

// SweepEvery calls Sweep on every tick until ctx is done.
func (m *MemoryStore) SweepEvery(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep()
		}
	}
}

// Len reports the number of stored sessions, including expired ones not yet
// swept.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
