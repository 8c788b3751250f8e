// Package session persists the bearer token, the only durable piece of
// client state.
package session

import "sync"

// Store holds the current bearer token. An empty token means "logged out".
type Store interface {
	Token() string
	Save(token string) error
	Clear() error
}

var _ Store = (*Memory)(nil)

// Memory keeps the token in process memory only.
type Memory struct {
	mu    sync.RWMutex
	token string
}

// NewMemory returns a Memory store seeded with token.
func NewMemory(token string) *Memory {
	return &Memory{token: token}
}

func (m *Memory) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *Memory) Save(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear() error {
	return m.Save("")
}
