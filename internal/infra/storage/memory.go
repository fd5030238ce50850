package storage

import (
	"context"
	"sync"

	"github.com/martiniano/crm-console/internal/domain"
)

// Memory keeps the session in process memory. Used by tests and --ephemeral.
type Memory struct {
	mu sync.Mutex
	kv map[string]string
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{kv: make(map[string]string)}
}

// Load returns the stored credential, or nil when none is stored.
func (m *Memory) Load(_ context.Context) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cred, ok := decodePair(m.kv)
	if !ok {
		delete(m.kv, KeyToken)
		delete(m.kv, KeyUser)
		return nil, nil
	}
	return cred, nil
}

// Save overwrites both keys.
func (m *Memory) Save(_ context.Context, cred domain.Credential) error {
	pair, err := encodePair(cred)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range pair {
		m.kv[k] = v
	}
	return nil
}

// Clear removes both keys.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.kv, KeyToken)
	delete(m.kv, KeyUser)
	return nil
}

// Raw exposes a single key, for tests asserting on the persisted layout.
func (m *Memory) Raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	return v, ok
}

// SetRaw writes a single key, bypassing the pair invariant.
func (m *Memory) SetRaw(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
}
