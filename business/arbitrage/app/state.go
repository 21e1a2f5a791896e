package app

import (
	"context"
	"sync"
)

// State is the mutable automation state: running flag, the single in-flight
// execution slot and the store of executed keys.
type State struct {
	mu       sync.Mutex
	running  bool
	inFlight string

	executed KeyStore
}

// NewState creates a State. A nil store keeps executed keys in memory.
func NewState(executed KeyStore) *State {
	if executed == nil {
		executed = NewMemoryKeyStore()
	}
	return &State{executed: executed}
}

// TryBegin claims the execution slot for key. It fails while another
// execution is in flight.
func (s *State) TryBegin(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight != "" {
		return false
	}
	s.inFlight = key
	return true
}

// Finish releases the slot if key holds it.
func (s *State) Finish(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight == key {
		s.inFlight = ""
	}
}

// InFlight returns the key holding the slot, if any.
func (s *State) InFlight() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight, s.inFlight != ""
}

// IsRunning reports whether the automation loop is running.
func (s *State) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// setRunning sets the flag and reports whether it changed.
func (s *State) setRunning(v bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running == v {
		return false
	}
	s.running = v
	return true
}

// Executed returns the executed key store.
func (s *State) Executed() KeyStore {
	return s.executed
}

// MemoryKeyStore keeps executed keys for the process lifetime.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

var _ KeyStore = (*MemoryKeyStore)(nil)

// NewMemoryKeyStore creates an empty store.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string]struct{})}
}

// Has reports whether key was added.
func (m *MemoryKeyStore) Has(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.keys[key]
	return ok, nil
}

// Add records key.
func (m *MemoryKeyStore) Add(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = struct{}{}
	return true, nil
}

// Len returns the number of keys.
func (m *MemoryKeyStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}
