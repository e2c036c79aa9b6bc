// Package jsonlog parses structured JSON access logs in the shape Caddy
// emits: a "request" object with client address, method and URI next to
// top-level status, size and a Unix-float "ts". Records come out in the
// same form as text access logs so the rest of the engine cannot tell the
// source formats apart.
package jsonlog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"logscope/internal/parser/accesslog"
)

// Parser parses JSON-formatted access log lines
type Parser struct {
	logger *pterm.Logger
}

// NewParser creates a new JSON access-log parser
func NewParser(logger *pterm.Logger) *Parser {
	return &Parser{logger: logger}
}

// Name returns the parser name
func (p *Parser) Name() string {
	return "jsonlog"
}

// Parse parses one JSON log line. Blank lines and comments are skipped;
// lines that are not JSON objects with a request are rejected.
func (p *Parser) Parse(line string, lineNumber int) (*accesslog.Record, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil, accesslog.ErrSkipLine
	}
	if trimmed[0] != '{' {
		return nil, accesslog.ErrNoMatch
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON", accesslog.ErrNoMatch)
	}

	request, ok := raw["request"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: no request object", accesslog.ErrNoMatch)
	}

	ip := getString(request, "client_ip")
	if ip == "" {
		ip = getString(request, "remote_ip")
	}
	headers, _ := request["headers"].(map[string]any)
	if ip == "" {
		ip = headerValue(headers, "X-Forwarded-For")
	}

	timestamp, guessed := timestampOf(raw)
	record := &accesslog.Record{
		IP:               ip,
		Identd:           "-",
		UserID:           dashIfEmpty(getString(raw, "user_id")),
		Timestamp:        timestamp,
		Method:           dashIfEmpty(getString(request, "method")),
		URL:              dashIfEmpty(getString(request, "uri")),
		HTTPVersion:      getString(request, "proto"),
		Status:           getInt(raw, "status"),
		Bytes:            getInt64(raw, "size"),
		Referer:          headerValue(headers, "Referer"),
		UserAgent:        headerValue(headers, "User-Agent"),
		Raw:              line,
		LineNumber:       lineNumber,
		TimestampGuessed: guessed,
	}

	if record.IP == "" {
		return nil, fmt.Errorf("%w: no client address", accesslog.ErrNoMatch)
	}
	return record, nil
}

// timestampOf reads the Unix-float "ts" field. A missing or zero value
// marks the record's timestamp as guessed, same as unparseable text dates.
func timestampOf(raw map[string]any) (time.Time, bool) {
	ts := getFloat64(raw, "ts")
	if ts == 0 {
		return time.Now().UTC(), true
	}
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC(), false
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// headerValue reads the first value of a header, which Caddy encodes as
// an array.
func headerValue(headers map[string]any, name string) string {
	if headers == nil {
		return ""
	}
	values, ok := headers[name].([]any)
	if !ok || len(values) == 0 {
		return ""
	}
	value, _ := values[0].(string)
	return value
}

func getString(m map[string]any, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

func getInt(m map[string]any, key string) int {
	switch val := m[key].(type) {
	case int:
		return val
	case float64:
		return int(val)
	case string:
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return 0
}

func getInt64(m map[string]any, key string) int64 {
	switch val := m[key].(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return 0
}

func getFloat64(m map[string]any, key string) float64 {
	switch val := m[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return 0
}
