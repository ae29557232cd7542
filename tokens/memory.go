package tokens

import (
	"context"
	"sync"
)

// Memory is a Registry in memory, lost when the process exits.
type Memory struct {
	mu     sync.RWMutex
	tokens map[string]Token
}

// NewMemory returns an empty registry.
func NewMemory() *Memory {
	return &Memory{tokens: make(map[string]Token)}
}

func (m *Memory) Add(_ context.Context, t Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[t.Token] = t
	return nil
}

func (m *Memory) List(_ context.Context) ([]Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]Token, 0, len(m.tokens))
	for _, t := range m.tokens {
		list = append(list, t)
	}
	sortTokens(list)
	return list, nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens), nil
}

func (m *Memory) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

func (m *Memory) DeleteAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = make(map[string]Token)
	return nil
}
