package query

import (
	"fmt"
	"strconv"
	"strings"

	"logscope/internal/parser/accesslog"
)

// CriterionKind distinguishes include from exclude filters
type CriterionKind int

const (
	Include CriterionKind = iota
	Exclude
)

func (k CriterionKind) String() string {
	if k == Exclude {
		return "exclude"
	}
	return "include"
}

// Criterion is one column filter. Include criteria on the same column are
// OR'd, criteria across columns are AND'd; a record matching any exclude
// criterion is dropped. Matching is case-insensitive substring matching on
// the stringified field value, including numeric columns.
type Criterion struct {
	Column string        `json:"column"`
	Value  string        `json:"value"`
	Kind   CriterionKind `json:"kind"`
}

// State is the mutable query for one session: search text, filters, date
// bounds, sort order and pagination. The filtered view is always derived
// from State plus the record store; it holds no truth of its own.
type State struct {
	Search   string
	Criteria []Criterion

	// Date bounds as "2006-01-02", time bounds as "15:04"; empty means open.
	DateFrom string
	DateTo   string
	TimeFrom string
	TimeTo   string

	SortField string
	SortAsc   bool

	Page     int
	PageSize int
}

// DefaultPageSize matches the UI default of 100 rows per page.
const DefaultPageSize = 100

// NewState creates a query state with default sort (newest first) and
// pagination.
func NewState() *State {
	return &State{
		SortField: "datetime",
		SortAsc:   false,
		Page:      1,
		PageSize:  DefaultPageSize,
	}
}

// AddCriterion appends a filter, rejecting exact duplicates
// (same column, value and kind).
func (s *State) AddCriterion(c Criterion) error {
	for _, existing := range s.Criteria {
		if existing == c {
			return fmt.Errorf("duplicate %s filter on %s=%q", c.Kind, c.Column, c.Value)
		}
	}
	s.Criteria = append(s.Criteria, c)
	s.Page = 1
	return nil
}

// RemoveCriterion deletes the filter at the given insertion index.
func (s *State) RemoveCriterion(index int) error {
	if index < 0 || index >= len(s.Criteria) {
		return fmt.Errorf("no filter at index %d", index)
	}
	s.Criteria = append(s.Criteria[:index], s.Criteria[index+1:]...)
	s.Page = 1
	return nil
}

// ClearCriteria removes all filters.
func (s *State) ClearCriteria() {
	s.Criteria = nil
	s.Page = 1
}

// SetSearch replaces the free-text search query.
func (s *State) SetSearch(q string) {
	s.Search = q
	s.Page = 1
}

// SetDateRange replaces the date/time bounds. Empty strings leave a bound
// open.
func (s *State) SetDateRange(dateFrom, dateTo, timeFrom, timeTo string) {
	s.DateFrom, s.DateTo = dateFrom, dateTo
	s.TimeFrom, s.TimeTo = timeFrom, timeTo
	s.Page = 1
}

// SortBy selects the sort field. Selecting the current field again
// reverses the direction; switching fields defaults to descending for the
// timestamp and ascending for everything else.
func (s *State) SortBy(field string) {
	if s.SortField == field {
		s.SortAsc = !s.SortAsc
	} else {
		s.SortField = field
		s.SortAsc = field != "datetime"
	}
	s.Page = 1
}

// SetPageSize changes the page size and returns to the first page.
func (s *State) SetPageSize(size int) {
	if size < 1 {
		size = DefaultPageSize
	}
	s.PageSize = size
	s.Page = 1
}

// fieldValue stringifies a record column for filter matching. Unknown
// columns yield the empty string, which matches nothing but also excludes
// nothing.
func fieldValue(r *accesslog.Record, column string) string {
	switch strings.ToLower(column) {
	case "ip":
		return r.IP
	case "identd":
		return r.Identd
	case "userid":
		return r.UserID
	case "method":
		return r.Method
	case "url":
		return r.URL
	case "httpversion":
		return r.HTTPVersion
	case "status":
		return strconv.Itoa(r.Status)
	case "bytes":
		return strconv.FormatInt(r.Bytes, 10)
	case "referer":
		return r.Referer
	case "useragent":
		return r.UserAgent
	case "datetime":
		return r.Timestamp.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}
