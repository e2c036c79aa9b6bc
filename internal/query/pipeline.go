package query

import (
	"sort"
	"strings"
	"time"

	"logscope/internal/parser/accesslog"
)

// View is the result of running the pipeline: the full filtered and sorted
// sequence, the slice for the current page, and the pagination bounds the
// page number was clamped to. Views share records with the store; nothing
// is copied.
type View struct {
	Records    []*accesslog.Record
	Page       []*accesslog.Record
	PageNumber int
	TotalPages int
	Total      int
}

// Runner executes the filter pipeline over bounded chunks so large record
// sets can yield to a cooperative scheduler between chunks. The output is
// identical to an unchunked pass; chunking is purely a scheduling concern.
type Runner struct {
	// ChunkSize bounds how many records are examined between yields.
	ChunkSize int

	// Yield, when set, is called between chunks.
	Yield func()
}

const defaultChunkSize = 1000

// Run recomputes the filtered view from the full record set and the query
// state. Stages narrow the set in order: include filters, exclude filters,
// date range, free-text search, sort, paginate. The ordering only matters
// for performance; results are order-independent.
func (rn Runner) Run(records []*accesslog.Record, st *State) View {
	result := records

	if includeGroups := groupIncludes(st.Criteria); len(includeGroups) > 0 {
		for _, group := range includeGroups {
			group := group
			result = rn.filter(result, func(r *accesslog.Record) bool {
				value := strings.ToLower(fieldValue(r, group.column))
				for _, want := range group.values {
					if strings.Contains(value, want) {
						return true
					}
				}
				return false
			})
		}
	}

	for _, c := range st.Criteria {
		if c.Kind != Exclude {
			continue
		}
		column := c.Column
		want := strings.ToLower(c.Value)
		result = rn.filter(result, func(r *accesslog.Record) bool {
			return !strings.Contains(strings.ToLower(fieldValue(r, column)), want)
		})
	}

	if from, to, active := dateBounds(st); active {
		result = rn.filter(result, func(r *accesslog.Record) bool {
			return withinRange(r, from, to)
		})
	}

	if terms := searchTerms(st.Search); len(terms) > 0 {
		result = rn.filter(result, func(r *accesslog.Record) bool {
			haystack := searchableText(r)
			for _, term := range terms {
				if !strings.Contains(haystack, term) {
					return false
				}
			}
			return true
		})
	}

	// Sorting mutates order, so the filtered stages above must have
	// produced a fresh slice before this point.
	if sameBacking(result, records) {
		result = append([]*accesslog.Record(nil), result...)
	}
	sortRecords(result, st.SortField, st.SortAsc)

	return paginate(result, st)
}

// filter applies pred in ChunkSize batches, invoking Yield between them.
func (rn Runner) filter(in []*accesslog.Record, pred func(*accesslog.Record) bool) []*accesslog.Record {
	chunkSize := rn.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	out := make([]*accesslog.Record, 0, len(in))
	for start := 0; start < len(in); start += chunkSize {
		end := start + chunkSize
		if end > len(in) {
			end = len(in)
		}
		for _, r := range in[start:end] {
			if pred(r) {
				out = append(out, r)
			}
		}
		if rn.Yield != nil && end < len(in) {
			rn.Yield()
		}
	}
	return out
}

// includeGroup collects the lowercased values of all include filters on
// one column, in insertion order of the first filter for that column.
type includeGroup struct {
	column string
	values []string
}

func groupIncludes(criteria []Criterion) []includeGroup {
	var groups []includeGroup
	index := map[string]int{}
	for _, c := range criteria {
		if c.Kind != Include {
			continue
		}
		i, seen := index[c.Column]
		if !seen {
			i = len(groups)
			index[c.Column] = i
			groups = append(groups, includeGroup{column: c.Column})
		}
		groups[i].values = append(groups[i].values, strings.ToLower(c.Value))
	}
	return groups
}

// dateBounds derives the closed timestamp interval from the state's date
// and time strings. A missing date leaves that side open; a missing time
// expands to the start or end of the day.
func dateBounds(st *State) (from, to time.Time, active bool) {
	if st.DateFrom != "" {
		if d, err := time.Parse("2006-01-02", st.DateFrom); err == nil {
			from = d
			if hh, mm, ok := parseClock(st.TimeFrom); ok {
				from = from.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
			}
			active = true
		}
	}
	if st.DateTo != "" {
		if d, err := time.Parse("2006-01-02", st.DateTo); err == nil {
			if hh, mm, ok := parseClock(st.TimeTo); ok {
				to = d.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute +
					59*time.Second + 999*time.Millisecond)
			} else {
				to = d.Add(23*time.Hour + 59*time.Minute + 59*time.Second + 999*time.Millisecond)
			}
			active = true
		}
	}
	return from, to, active
}

func parseClock(s string) (hh, mm int, ok bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}

// withinRange checks the record timestamp against the bounds. Records
// whose timestamp had to be guessed cannot be judged and always pass.
func withinRange(r *accesslog.Record, from, to time.Time) bool {
	if r.TimestampGuessed {
		return true
	}
	if !from.IsZero() && r.Timestamp.Before(from) {
		return false
	}
	if !to.IsZero() && r.Timestamp.After(to) {
		return false
	}
	return true
}

func searchTerms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// searchableText concatenates the fields the free-text search covers.
func searchableText(r *accesslog.Record) string {
	return strings.ToLower(strings.Join([]string{
		r.IP, r.Method, r.URL, fieldValue(r, "status"), r.UserAgent, r.Referer,
	}, " "))
}

// sortRecords stably sorts by the selected field: strings lexically,
// timestamps by instant, numerics by subtraction.
func sortRecords(records []*accesslog.Record, field string, asc bool) {
	less := lessFunc(field)
	sort.SliceStable(records, func(i, j int) bool {
		if asc {
			return less(records[i], records[j])
		}
		return less(records[j], records[i])
	})
}

func lessFunc(field string) func(a, b *accesslog.Record) bool {
	switch strings.ToLower(field) {
	case "datetime":
		return func(a, b *accesslog.Record) bool { return a.Timestamp.Before(b.Timestamp) }
	case "status":
		return func(a, b *accesslog.Record) bool { return a.Status < b.Status }
	case "bytes":
		return func(a, b *accesslog.Record) bool { return a.Bytes < b.Bytes }
	case "linenumber":
		return func(a, b *accesslog.Record) bool { return a.LineNumber < b.LineNumber }
	default:
		return func(a, b *accesslog.Record) bool {
			return fieldValue(a, field) < fieldValue(b, field)
		}
	}
}

// paginate clamps the 1-based page number to the valid range (at least
// one page, even when empty) and slices out the page.
func paginate(records []*accesslog.Record, st *State) View {
	pageSize := st.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	totalPages := (len(records) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	page := st.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(records) {
		start = len(records)
	}
	if end > len(records) {
		end = len(records)
	}

	return View{
		Records:    records,
		Page:       records[start:end],
		PageNumber: page,
		TotalPages: totalPages,
		Total:      len(records),
	}
}

// sameBacking reports whether a still aliases the head of b, which happens
// when no filter stage ran and the input slice passed straight through.
func sameBacking(a, b []*accesslog.Record) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}
