package accesslog

import (
	"time"
)

// Record is one parsed access-log entry. Records are immutable once created;
// filtered and sorted views share the same underlying records.
//
// Every field carries a defined default so consumers never see an absent
// value: "-" for the auth and request-line fields, 0 for status and bytes,
// "" for referer and user agent.
type Record struct {
	IP          string
	Identd      string
	UserID      string
	Timestamp   time.Time
	Method      string
	URL         string
	HTTPVersion string
	Status      int
	Bytes       int64
	Referer     string
	UserAgent   string

	// Raw preserves the original line verbatim for display and debugging.
	Raw string

	// LineNumber is the 1-based position in the source file, used to
	// restore original order after parallel parsing.
	LineNumber int

	// TimestampGuessed marks records whose date/time could not be parsed
	// and fell back to the wall clock at parse time.
	TimestampGuessed bool
}

func (r *Record) GetTimestamp() time.Time {
	return r.Timestamp
}
