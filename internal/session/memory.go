package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"friendfeed/internal/observability"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Entries are stored encoded so callers
// never share a State value.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a store whose sessions expire ttl after their last save.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*State, error) {
	m.mu.Lock()
	entry, ok := m.entries[id]
	if ok && !m.now().Before(entry.expiresAt) {
		delete(m.entries, id)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		observability.SessionStoreOps.WithLabelValues("memory", "load", "miss").Inc()
		return nil, ErrNotFound
	}
	var st State
	if err := json.Unmarshal(entry.data, &st); err != nil {
		observability.SessionStoreOps.WithLabelValues("memory", "load", "error").Inc()
		return nil, err
	}
	observability.SessionStoreOps.WithLabelValues("memory", "load", "hit").Inc()
	return &st, nil
}

func (m *MemoryStore) Save(_ context.Context, st *State) error {
	now := m.now()
	st.UpdatedAt = now
	data, err := json.Marshal(st)
	if err != nil {
		observability.SessionStoreOps.WithLabelValues("memory", "save", "error").Inc()
		return err
	}
	m.mu.Lock()
	m.entries[st.ID] = memoryEntry{data: data, expiresAt: now.Add(m.ttl)}
	m.mu.Unlock()
	observability.SessionStoreOps.WithLabelValues("memory", "save", "ok").Inc()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	observability.SessionStoreOps.WithLabelValues("memory", "delete", "ok").Inc()
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// Len is the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
