package testing

import (
	"errors"
	"sync"
	"time"

	"github.com/desertthunder/vibe/internal/models"
)

// MemoryPersister keeps persisted state in memory.
type MemoryPersister struct {
	mu    sync.Mutex
	state *models.PersistedState

	Saves         int
	PositionSaves int // position-only updates
	Clears        int
	FailAll       bool
}

func (m *MemoryPersister) Load() (*models.PersistedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll {
		return nil, errors.New("load failed")
	}
	if m.state == nil {
		return nil, nil
	}
	cp := *m.state
	return &cp, nil
}

func (m *MemoryPersister) Save(state models.PersistedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll {
		return errors.New("save failed")
	}
	m.Saves++
	m.state = &state
	return nil
}

func (m *MemoryPersister) SavePosition(seconds float64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll {
		return false, errors.New("save failed")
	}
	if m.state == nil {
		return false, nil
	}
	cp := *m.state
	cp.CurrentTime = seconds
	cp.UpdatedAt = at
	m.state = &cp
	m.PositionSaves++
	return true, nil
}

func (m *MemoryPersister) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll {
		return errors.New("clear failed")
	}
	m.Clears++
	m.state = nil
	return nil
}

// Seed replaces the stored state.
func (m *MemoryPersister) Seed(state *models.PersistedState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

// State returns the stored state, or nil.
func (m *MemoryPersister) State() *models.PersistedState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
