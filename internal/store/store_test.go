package store

import (
	"testing"
	"time"

	"logscope/internal/parser/accesslog"

	"github.com/pterm/pterm"
)

func testStore() *Store {
	return New(pterm.DefaultLogger.WithLevel(pterm.LogLevelError))
}

func recordAt(ts time.Time) *accesslog.Record {
	return &accesslog.Record{IP: "127.0.0.1", Timestamp: ts}
}

func TestStore_ReplaceAndReaders(t *testing.T) {
	s := testStore()

	if s.Count() != 0 {
		t.Errorf("Expected empty store, got %d records", s.Count())
	}
	if _, _, ok := s.DateRange(); ok {
		t.Error("Expected no date range for empty store")
	}

	records := []*accesslog.Record{
		recordAt(time.Date(2023, 10, 10, 0, 0, 0, 0, time.UTC)),
		recordAt(time.Date(2023, 10, 12, 0, 0, 0, 0, time.UTC)),
	}
	s.Replace(records, []int{200, 404}, []string{"GET", "POST"})

	if s.Count() != 2 {
		t.Errorf("Expected 2 records, got %d", s.Count())
	}
	if got := s.All(); len(got) != 2 || got[0] != records[0] {
		t.Error("Expected All to return the replaced record sequence")
	}
	if got := s.StatusVocabulary(); len(got) != 2 || got[0] != 200 {
		t.Errorf("Unexpected status vocabulary: %v", got)
	}
	if got := s.MethodVocabulary(); len(got) != 2 || got[0] != "GET" {
		t.Errorf("Unexpected method vocabulary: %v", got)
	}

	// A second Replace discards the previous set wholesale.
	s.Replace(nil, nil, nil)
	if s.Count() != 0 {
		t.Errorf("Expected store to be empty after replacement, got %d", s.Count())
	}
}

func TestStore_DateRange(t *testing.T) {
	s := testStore()

	min := time.Date(2023, 10, 1, 8, 0, 0, 0, time.UTC)
	mid := time.Date(2023, 10, 5, 8, 0, 0, 0, time.UTC)
	max := time.Date(2023, 10, 9, 8, 0, 0, 0, time.UTC)

	s.Replace([]*accesslog.Record{recordAt(mid), recordAt(max), recordAt(min)}, nil, nil)

	gotMin, gotMax, ok := s.DateRange()
	if !ok {
		t.Fatal("Expected a date range")
	}
	if !gotMin.Equal(min) || !gotMax.Equal(max) {
		t.Errorf("DateRange = (%v, %v), want (%v, %v)", gotMin, gotMax, min, max)
	}
}
