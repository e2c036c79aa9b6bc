// Package session ties one loaded log set to its query state. A session
// owns the record store, the filter/sort/pagination state and the
// enrichment cache; every view and statistics snapshot is derived fresh
// from those on request.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"

	"logscope/internal/enrichment"
	"logscope/internal/ingestion"
	parsers "logscope/internal/parser"
	"logscope/internal/query"
	"logscope/internal/stats"
	"logscope/internal/store"
)

// ErrSuperseded is returned by Load when a newer load finished first. The
// older load's records are discarded; the store keeps the newer set.
var ErrSuperseded = errors.New("load superseded by a newer one")

// DatePreset names a relative date range resolved against the current day.
type DatePreset string

const (
	PresetToday     DatePreset = "today"
	PresetYesterday DatePreset = "yesterday"
	PresetLast7     DatePreset = "last7days"
	PresetLast30    DatePreset = "last30days"
	PresetAll       DatePreset = "all"
)

// Config carries the collaborators a session needs. Parser and Logger are
// required; the rest default sensibly when zero.
type Config struct {
	Parser   parsers.LineParser
	Logger   *pterm.Logger
	Enricher *enrichment.Enricher

	// ShardCount and ChunkSize are passed through to the ingestion
	// coordinator for each load.
	ShardCount int
	ChunkSize  int

	// Progress, when set, receives ingestion progress signals.
	Progress func(ingestion.Progress)

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Session is safe for concurrent use. Load may run while readers consume
// the previous record set; mutators and views serialize on one mutex.
type Session struct {
	ID string

	cfg    Config
	logger *pterm.Logger

	mu    sync.Mutex
	store *store.Store
	state *query.State

	runner     query.Runner
	aggregator stats.Aggregator

	now        func() time.Time
	generation atomic.Int64
}

// Meta describes the currently loaded record set: the values the filter
// menus offer and the span the date picker should cover.
type Meta struct {
	SessionID string    `json:"session_id"`
	Count     int       `json:"count"`
	Statuses  []int     `json:"statuses"`
	Methods   []string  `json:"methods"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	HasRange  bool      `json:"has_range"`
}

// New creates an empty session
func New(cfg Config) *Session {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		ID:         uuid.NewString(),
		cfg:        cfg,
		logger:     cfg.Logger,
		store:      store.New(cfg.Logger),
		state:      query.NewState(),
		runner:     query.Runner{},
		aggregator: stats.Aggregator{},
		now:        now,
	}
}

// Load parses raw log text and replaces the session's record set. Filters,
// search and date bounds reset; the page size survives. When several loads
// race, the last one to start wins and the others return ErrSuperseded
// without touching the store.
func (s *Session) Load(ctx context.Context, rawText string) (*ingestion.Result, error) {
	gen := s.generation.Add(1)

	coordinator, err := ingestion.NewCoordinator(s.cfg.Parser, s.logger, ingestion.Options{
		ShardCount: s.cfg.ShardCount,
		ChunkSize:  s.cfg.ChunkSize,
		Progress:   s.cfg.Progress,
	})
	if err != nil {
		return nil, err
	}

	result, err := coordinator.Ingest(ctx, rawText)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation.Load() != gen {
		s.logger.Debug("Discarding superseded load",
			s.logger.Args("session", s.ID, "generation", gen))
		return nil, ErrSuperseded
	}

	s.store.Replace(result.Records, result.Statuses, result.Methods)

	pageSize := s.state.PageSize
	s.state = query.NewState()
	s.state.PageSize = pageSize

	s.logger.Info("Log set loaded",
		s.logger.Args(
			"session", s.ID,
			"records", len(result.Records),
			"rejected", result.LinesRejected,
		))
	return result, nil
}

// View recomputes the filtered, sorted, paginated view from scratch.
func (s *Session) View() query.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.Run(s.store.All(), s.state)
}

// Statistics aggregates over the filtered set when filtered is true,
// otherwise over everything. A filtered view that matches nothing falls
// back to the full set so the dashboard never goes blank.
func (s *Session) Statistics(filtered bool) stats.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.store.All()
	if filtered {
		view := s.runner.Run(records, s.state)
		if len(view.Records) > 0 {
			records = view.Records
		}
	}
	return s.aggregator.Aggregate(records)
}

// Meta reports the vocabularies and the date span of the loaded set.
func (s *Session) Meta() Meta {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, to, ok := s.store.DateRange()
	return Meta{
		SessionID: s.ID,
		Count:     s.store.Count(),
		Statuses:  s.store.StatusVocabulary(),
		Methods:   s.store.MethodVocabulary(),
		From:      from,
		To:        to,
		HasRange:  ok,
	}
}

// State returns a copy of the current query state.
func (s *Session) State() query.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := *s.state
	st.Criteria = append([]query.Criterion(nil), s.state.Criteria...)
	return st
}

// AddFilter installs a new include or exclude filter.
func (s *Session) AddFilter(c query.Criterion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AddCriterion(c)
}

// RemoveFilter drops the filter at the given index.
func (s *Session) RemoveFilter(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.RemoveCriterion(index)
}

// ClearFilters drops every filter.
func (s *Session) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ClearCriteria()
}

// SetSearch replaces the free-text search query.
func (s *Session) SetSearch(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SetSearch(q)
}

// SetDateRange installs explicit date/time bounds.
func (s *Session) SetDateRange(dateFrom, dateTo, timeFrom, timeTo string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SetDateRange(dateFrom, dateTo, timeFrom, timeTo)
}

// SetDatePreset resolves a named preset against today and installs the
// resulting bounds. PresetAll clears them.
func (s *Session) SetDatePreset(preset DatePreset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.now()
	day := func(t time.Time) string { return t.Format("2006-01-02") }

	switch preset {
	case PresetToday:
		s.state.SetDateRange(day(today), day(today), "", "")
	case PresetYesterday:
		y := today.AddDate(0, 0, -1)
		s.state.SetDateRange(day(y), day(y), "", "")
	case PresetLast7:
		s.state.SetDateRange(day(today.AddDate(0, 0, -7)), day(today), "", "")
	case PresetLast30:
		s.state.SetDateRange(day(today.AddDate(0, 0, -30)), day(today), "", "")
	case PresetAll:
		s.state.SetDateRange("", "", "", "")
	default:
		return fmt.Errorf("unknown date preset %q", preset)
	}
	return nil
}

// SortBy selects the sort field, reversing direction on reselection.
func (s *Session) SortBy(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SortBy(field)
}

// SetPageSize changes the page size and returns to page one.
func (s *Session) SetPageSize(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SetPageSize(size)
}

// GoToPage jumps to the given page. Out-of-range pages clamp when the
// view is rendered, not here; the stored number may therefore exceed the
// page count until the next View call.
func (s *Session) GoToPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page < 1 {
		page = 1
	}
	s.state.Page = page
}

// NextPage advances one page.
func (s *Session) NextPage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Page++
}

// PrevPage steps back one page, stopping at the first.
func (s *Session) PrevPage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Page > 1 {
		s.state.Page--
	}
}

// IPInfo resolves one address through the session's enrichment cache. A
// session without an enricher reports the bare address.
func (s *Session) IPInfo(ctx context.Context, ip string) enrichment.Info {
	if s.cfg.Enricher == nil {
		return enrichment.Info{IP: ip}
	}
	return s.cfg.Enricher.Lookup(ctx, ip)
}
