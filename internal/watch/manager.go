// Package watch remembers per-stream alert state across restarts.
package watch

import (
	"log"
	"sort"
	"sync"

	"YieldStream/internal/alert"
	"YieldStream/internal/model"
)

// Manager holds the watch state with concurrency safety and persists it
// whenever an entry changes meaningfully.
type Manager struct {
	mu         sync.Mutex
	state      *model.WatchState
	filePath   string
	thresholds alert.Thresholds
}

// NewManager creates a Manager, loading existing state from disk. An empty
// filePath keeps the state in memory only.
func NewManager(filePath string, th alert.Thresholds) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	return &Manager{state: state, filePath: filePath, thresholds: th}, nil
}

// entry returns a copy of the entry for streamID.
func (m *Manager) entry(streamID uint64) (model.WatchEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.state.Streams[streamID]
	if !ok {
		return model.WatchEntry{}, false
	}
	return *e, true
}

// StreamIDs returns the tracked stream ids in ascending order.
func (m *Manager) StreamIDs() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uint64, 0, len(m.state.Streams))
	for id := range m.state.Streams {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Observe runs the alert rules for u against the remembered entry, stores
// the new entry and returns the alerts to deliver.
func (m *Manager) Observe(u model.StreamUpdate) []model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.state.Streams[u.StreamID]
	alerts, next := alert.Evaluate(u, prev, m.thresholds)

	changed := prev == nil ||
		prev.LastStatus != next.LastStatus ||
		prev.ClaimableTier != next.ClaimableTier ||
		prev.EndingNotified != next.EndingNotified
	m.state.Streams[u.StreamID] = &next

	if changed {
		m.save()
	}
	return alerts
}

// Forget drops a stream from the state.
func (m *Manager) Forget(streamID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.Streams[streamID]; !ok {
		return
	}
	delete(m.state.Streams, streamID)
	m.save()
}

// save must be called with mu held.
func (m *Manager) save() {
	if err := SaveState(m.filePath, m.state); err != nil {
		log.Printf("[ERROR] save watch state: %v", err)
	}
}
