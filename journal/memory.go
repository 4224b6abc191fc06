package journal

import "sync"

// MemoryStore keeps everything in process, for tests and throwaway
// trackers.
type MemoryStore struct {
	mu        sync.Mutex
	positions []Position
	history   []ClosedTrade

	// Err, when set, is returned by every save.
	Err error
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) LoadPositions() ([]Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Position(nil), m.positions...), nil
}

func (m *MemoryStore) SavePositions(p []Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.positions = append([]Position(nil), p...)
	return nil
}

func (m *MemoryStore) LoadHistory() ([]ClosedTrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ClosedTrade(nil), m.history...), nil
}

func (m *MemoryStore) SaveHistory(h []ClosedTrade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.history = append([]ClosedTrade(nil), h...)
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.positions, m.history = nil, nil
	return nil
}
