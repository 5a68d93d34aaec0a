// Package session holds the most recently retrieved observation tables.
package session

import (
	"sync"
	"time"

	"sdmx-explorer/internal/domain"
	"sdmx-explorer/internal/table"
)

// Entry is one retrieved dataflow together with the query that produced it.
type Entry struct {
	Table     *domain.ObservationTable
	Query     domain.DataflowQuery
	Outcome   domain.FetchOutcome
	FetchedAt time.Time
}

// Store keeps the result set of the last retrieval, keyed by dataflow name.
// A new retrieval replaces the whole set.
type Store struct {
	mu        sync.RWMutex
	entries   map[string]*Entry
	order     []string
	selection domain.Selection
	outcomes  []domain.FetchOutcome
	now       func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// Replace discards the previous result set and stores entries in the given order.
// Tables are normalized on the way in.
func (s *Store) Replace(sel domain.Selection, entries []Entry) {
	fresh := make(map[string]*Entry, len(entries))
	order := make([]string, 0, len(entries))
	now := s.now()
	for i := range entries {
		e := entries[i]
		if e.Table == nil {
			continue
		}
		table.Normalize(e.Table)
		if e.FetchedAt.IsZero() {
			e.FetchedAt = now
		}
		name := e.Table.Dataflow
		if _, dup := fresh[name]; !dup {
			order = append(order, name)
		}
		fresh[name] = &e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = fresh
	s.order = order
	s.selection = sel
}

// Get returns the stored entry for dataflow.
func (s *Store) Get(dataflow string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[dataflow]
	if !ok {
		return nil, domain.ErrNotFound("no data retrieved for dataflow: %s", dataflow)
	}
	return e, nil
}

// Names returns the stored dataflow names in retrieval order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Entries returns the stored entries in retrieval order.
func (s *Store) Entries() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.entries[name])
	}
	return out
}

// Queries returns the queries behind the stored entries, for re-fetching.
func (s *Store) Queries() []domain.DataflowQuery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DataflowQuery, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.entries[name].Query)
	}
	return out
}

// RecordOutcomes keeps the per-dataflow outcomes of the last retrieval,
// failures included, for reporting.
func (s *Store) RecordOutcomes(outcomes []domain.FetchOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append([]domain.FetchOutcome(nil), outcomes...)
}

// Outcomes returns the outcomes recorded by RecordOutcomes.
func (s *Store) Outcomes() []domain.FetchOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.FetchOutcome(nil), s.outcomes...)
}

// Selection returns the selection of the last retrieval.
func (s *Store) Selection() domain.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

// Len returns the number of stored dataflows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Entry)
	s.order = nil
	s.outcomes = nil
	s.selection = domain.Selection{}
}
