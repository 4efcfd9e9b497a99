package handler

import (
	"sync"

	"maximus/internal/automl"
)

// ModelStore keeps fitted models from recent runs in memory so the
// dashboard can download them. Models are not persisted; restarting the
// service clears the store and exports for old runs return 404.
type ModelStore struct {
	mu   sync.RWMutex
	runs map[string]map[string]automl.Model
}

// NewModelStore creates an empty model store.
func NewModelStore() *ModelStore {
	return &ModelStore{runs: make(map[string]map[string]automl.Model)}
}

// Put stores the fitted models of a completed run.
func (s *ModelStore) Put(runID string, fitted map[string]automl.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[runID] = fitted
}

// Get returns one fitted model of a run, if still held.
func (s *ModelStore) Get(runID, modelID string) (automl.Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fitted, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	m, ok := fitted[modelID]
	return m, ok
}
