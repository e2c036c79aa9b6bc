package stats

import (
	"sort"

	"logscope/internal/parser/accesslog"
	"logscope/internal/parser/useragent"
)

// RankedEntry is one row of a top-N list.
type RankedEntry struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Snapshot is a full set of aggregate statistics over one record set. It
// is recomputed from scratch on every request and never patched
// incrementally.
type Snapshot struct {
	TotalRequests       int            `json:"total_requests"`
	UniqueIPs           int            `json:"unique_ips"`
	RequestMethods      map[string]int `json:"request_methods"`
	HTTPStatuses        map[int]int    `json:"http_statuses"`
	BrowserFamilies     map[string]int `json:"browser_families"`
	OperatingSystems    map[string]int `json:"operating_systems"`
	TopIPs              []RankedEntry  `json:"top_ips"`
	TopURLs             []RankedEntry  `json:"top_urls"`
	TotalBytes          int64          `json:"total_bytes"`
	ErrorRate           float64        `json:"error_rate"`
	AverageResponseSize float64        `json:"average_response_size"`
}

// topListSize bounds the ranked IP and URL lists.
const topListSize = 10

// Aggregator reduces a record set to a Snapshot in a single pass, with an
// optional yield point between bounded chunks for cooperative scheduling.
// Chunked and unchunked runs produce identical snapshots.
type Aggregator struct {
	ChunkSize int
	Yield     func()
}

const defaultChunkSize = 1000

// counter tracks per-key frequencies while remembering first-encounter
// order, so top-list ties break deterministically.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, seen := c.counts[key]; !seen {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// top returns the n highest-frequency keys, ties broken by
// first-encountered order (stable sort, descending count).
func (c *counter) top(n int) []RankedEntry {
	entries := make([]RankedEntry, 0, len(c.order))
	for _, key := range c.order {
		entries = append(entries, RankedEntry{Value: key, Count: c.counts[key]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Aggregate computes a Snapshot over the given record set.
func (a Aggregator) Aggregate(records []*accesslog.Record) Snapshot {
	snapshot := Snapshot{
		RequestMethods:   make(map[string]int),
		HTTPStatuses:     make(map[int]int),
		BrowserFamilies:  make(map[string]int),
		OperatingSystems: make(map[string]int),
	}

	if len(records) == 0 {
		snapshot.TopIPs = []RankedEntry{}
		snapshot.TopURLs = []RankedEntry{}
		return snapshot
	}

	chunkSize := a.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	ips := newCounter()
	urls := newCounter()
	errorCount := 0

	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}

		for _, r := range records[start:end] {
			ips.add(r.IP)
			urls.add(r.URL)

			snapshot.RequestMethods[r.Method]++
			snapshot.HTTPStatuses[r.Status]++
			snapshot.BrowserFamilies[useragent.Family(r.UserAgent)]++
			snapshot.OperatingSystems[useragent.OS(r.UserAgent)]++
			snapshot.TotalBytes += r.Bytes

			if r.Status >= 400 {
				errorCount++
			}
		}

		if a.Yield != nil && end < len(records) {
			a.Yield()
		}
	}

	snapshot.TotalRequests = len(records)
	snapshot.UniqueIPs = len(ips.counts)
	snapshot.TopIPs = ips.top(topListSize)
	snapshot.TopURLs = urls.top(topListSize)
	snapshot.ErrorRate = float64(errorCount) / float64(len(records)) * 100
	if snapshot.TotalBytes > 0 {
		snapshot.AverageResponseSize = float64(snapshot.TotalBytes) / float64(len(records))
	}

	return snapshot
}
