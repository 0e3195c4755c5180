package cartstore

import (
	"context"
	"errors"
	"sync"

	"github.com/noah-isme/cafe-cart/internal/cart"
)

// ErrNotConfigured is returned when a backend is missing its client or path.
var ErrNotConfigured = errors.New("cartstore: backend not configured")

// Memory keeps encoded snapshots in process, keyed by session. Snapshots are
// stored encoded so that loading exercises the same decoding as other backends.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Backend() string { return "memory" }

func (m *Memory) ForSession(_ context.Context, sessionID string) cart.Persister {
	return memorySession{mem: m, id: sessionID}
}

// Raw returns the stored bytes for a session.
func (m *Memory) Raw(sessionID string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[sessionID]
	return data, ok
}

// Put stores raw bytes for a session, bypassing encoding.
func (m *Memory) Put(sessionID string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[sessionID] = data
}

type memorySession struct {
	mem *Memory
	id  string
}

func (s memorySession) Load() (cart.Snapshot, bool, error) {
	data, ok := s.mem.Raw(s.id)
	if !ok {
		return cart.Snapshot{}, false, nil
	}
	snap, err := cart.DecodeSnapshot(data)
	if err != nil {
		return cart.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s memorySession) Save(snap cart.Snapshot) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	s.mem.Put(s.id, data)
	return nil
}
