package parsers

import (
	"logscope/internal/parser/accesslog"
)

// LineParser turns one raw log line into a structured record.
//
// Parse never panics: a line that cannot be handled is reported through the
// error, and batch processing continues. Implementations signal non-entries
// (blank lines, comments) with accesslog.ErrSkipLine and structurally
// unparseable lines with accesslog.ErrNoMatch.
type LineParser interface {
	Name() string
	Parse(line string, lineNumber int) (*accesslog.Record, error)
}
