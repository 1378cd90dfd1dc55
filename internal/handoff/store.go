package handoff

import (
	"sync"
)

// Store is the process-wide handoff slot table, one slot per producing stage.
// Produce is last-writer-wins; Consume is idempotent.
type Store struct {
	mu      sync.RWMutex
	records map[Stage]Record
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{records: make(map[Stage]Record)}
}

// Produce stores r in the slot for its stage, replacing whatever was there
func (s *Store) Produce(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.stage] = r
}

// Consume returns the record for stage, or an EMPTY record. It can be called
// any number of times.
func (s *Store) Consume(stage Stage) Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[stage]
}

// ConsumeFirst returns the first non-empty record among stages, in order
func (s *Store) ConsumeFirst(stages ...Stage) Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, stage := range stages {
		if r, ok := s.records[stage]; ok && !r.IsEmpty() {
			return r
		}
	}
	return Record{}
}

// Reset clears every slot
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[Stage]Record)
}

// ResetStage clears one slot
func (s *Store) ResetStage(stage Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, stage)
}

// Snapshot reports which slots currently hold content
func (s *Store) Snapshot() map[Stage]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Stage]bool, len(s.records))
	for stage, r := range s.records {
		out[stage] = !r.IsEmpty()
	}
	return out
}
