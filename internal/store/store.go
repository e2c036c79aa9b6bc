package store

import (
	"sync"
	"time"

	"logscope/internal/parser/accesslog"

	"github.com/pterm/pterm"
)

// Store owns the full ordered record set for the currently loaded file.
// It is single-writer (Replace swaps the whole set) and multi-reader:
// records are immutable after creation, so readers never need a copy.
type Store struct {
	mu       sync.RWMutex
	records  []*accesslog.Record
	statuses []int
	methods  []string
	logger   *pterm.Logger
}

// New creates an empty record store
func New(logger *pterm.Logger) *Store {
	return &Store{logger: logger}
}

// Replace swaps the whole record set atomically, together with the
// filter-menu vocabularies derived at load time. The previous set is
// discarded; there is no incremental append.
func (s *Store) Replace(records []*accesslog.Record, statuses []int, methods []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = records
	s.statuses = statuses
	s.methods = methods

	s.logger.Info("Record store replaced",
		s.logger.Args("records", len(records), "statuses", len(statuses), "methods", len(methods)))
}

// All returns the ordered record sequence. Callers must treat the slice
// and its records as read-only.
func (s *Store) All() []*accesslog.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records
}

// Count returns the number of records currently loaded
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// DateRange scans the record set once for the minimum and maximum
// timestamps. Records carrying the sentinel "now" fallback are included
// in the scan, which can skew the range for malformed logs.
func (s *Store) DateRange() (min, max time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.Timestamp.IsZero() {
			continue
		}
		if !ok {
			min, max = r.Timestamp, r.Timestamp
			ok = true
			continue
		}
		if r.Timestamp.Before(min) {
			min = r.Timestamp
		}
		if r.Timestamp.After(max) {
			max = r.Timestamp
		}
	}

	return min, max, ok
}

// StatusVocabulary returns the unique status codes seen at load time,
// sorted ascending.
func (s *Store) StatusVocabulary() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statuses
}

// MethodVocabulary returns the unique request methods seen at load time,
// sorted lexically.
func (s *Store) MethodVocabulary() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.methods
}
