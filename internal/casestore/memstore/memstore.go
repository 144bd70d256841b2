// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/sift/internal/triage"
)

// Store holds case records in memory. Suitable for dev/testing.
type Store struct {
	mu      sync.RWMutex
	records map[string]*triage.CaseRecord // case ID -> record
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{records: make(map[string]*triage.CaseRecord)}
}

// Get retrieves a case record by case ID. Returns a copy.
func (s *Store) Get(_ context.Context, caseID string) (*triage.CaseRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[caseID]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// Upsert stores a copy of the case record, keyed by case ID.
func (s *Store) Upsert(_ context.Context, r *triage.CaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.records[r.CaseID] = &cp
	return nil
}
