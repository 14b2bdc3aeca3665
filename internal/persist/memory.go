package persist

import (
	"context"
	"sync"

	"duskhaven/server/internal/journal"
)

// Memory is the default store: everything lives in the process. Snapshots
// round-trip through the same encoding the durable stores use, so a codec
// regression shows up without a database.
type Memory struct {
	mu        sync.RWMutex
	prefs     map[string]PlayerPrefs
	snapshots map[string][]byte
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		prefs:     make(map[string]PlayerPrefs),
		snapshots: make(map[string][]byte),
	}
}

func (m *Memory) LoadPrefs(_ context.Context, playerID string) (PlayerPrefs, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefs, ok := m.prefs[playerID]
	if !ok {
		return PlayerPrefs{}, ErrNotFound
	}
	return prefs, nil
}

func (m *Memory) SavePrefs(_ context.Context, playerID string, prefs PlayerPrefs) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[playerID] = prefs
	return nil
}

func (m *Memory) PutSnapshot(_ context.Context, session string, snap journal.Snapshot) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[session] = data
	return nil
}

func (m *Memory) LatestSnapshot(_ context.Context, session string) (journal.Snapshot, error) {
	m.mu.RLock()
	data, ok := m.snapshots[session]
	m.mu.RUnlock()
	if !ok {
		return journal.Snapshot{}, ErrNotFound
	}
	return DecodeSnapshot(data)
}

var (
	_ PreferenceStore = (*Memory)(nil)
	_ SnapshotStore   = (*Memory)(nil)
)
