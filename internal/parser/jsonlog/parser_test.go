package jsonlog

import (
	"errors"
	"testing"
	"time"

	"github.com/pterm/pterm"

	"logscope/internal/parser/accesslog"
)

func testParser() *Parser {
	return NewParser(pterm.DefaultLogger.WithLevel(pterm.LogLevelError))
}

func TestParser_Name(t *testing.T) {
	if got := testParser().Name(); got != "jsonlog" {
		t.Errorf("Name() = %q, want jsonlog", got)
	}
}

func TestParser_Parse_FullLine(t *testing.T) {
	line := `{"level":"info","ts":1696971336.5,"logger":"http.log.access","msg":"handled request","request":{"remote_ip":"203.0.113.7","client_ip":"203.0.113.7","proto":"HTTP/2.0","method":"GET","host":"example.org","uri":"/api/users?page=1","headers":{"User-Agent":["Mozilla/5.0 (X11; Linux x86_64) Firefox/118.0"],"Referer":["https://example.org/"]}},"user_id":"frank","duration":0.0022,"size":1546,"status":200}`

	record, err := testParser().Parse(line, 3)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if record.IP != "203.0.113.7" {
		t.Errorf("IP = %q", record.IP)
	}
	if record.Method != "GET" {
		t.Errorf("Method = %q", record.Method)
	}
	if record.URL != "/api/users?page=1" {
		t.Errorf("URL = %q", record.URL)
	}
	if record.HTTPVersion != "HTTP/2.0" {
		t.Errorf("HTTPVersion = %q", record.HTTPVersion)
	}
	if record.Status != 200 {
		t.Errorf("Status = %d", record.Status)
	}
	if record.Bytes != 1546 {
		t.Errorf("Bytes = %d", record.Bytes)
	}
	if record.UserID != "frank" {
		t.Errorf("UserID = %q", record.UserID)
	}
	if record.Referer != "https://example.org/" {
		t.Errorf("Referer = %q", record.Referer)
	}
	if record.UserAgent == "" {
		t.Error("UserAgent is empty")
	}
	if record.LineNumber != 3 {
		t.Errorf("LineNumber = %d", record.LineNumber)
	}

	want := time.Date(2023, 10, 10, 20, 55, 36, 500000000, time.UTC)
	if !record.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", record.Timestamp, want)
	}
	if record.TimestampGuessed {
		t.Error("TimestampGuessed should be false for a valid ts")
	}
}

func TestParser_Parse_FallsBackToRemoteIP(t *testing.T) {
	line := `{"ts":1696971336,"request":{"remote_ip":"198.51.100.9","method":"POST","uri":"/submit"},"status":201,"size":0}`

	record, err := testParser().Parse(line, 1)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if record.IP != "198.51.100.9" {
		t.Errorf("IP = %q, want 198.51.100.9", record.IP)
	}
}

func TestParser_Parse_ForwardedForHeader(t *testing.T) {
	line := `{"ts":1696971336,"request":{"method":"GET","uri":"/","headers":{"X-Forwarded-For":["192.0.2.44"]}},"status":200}`

	record, err := testParser().Parse(line, 1)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if record.IP != "192.0.2.44" {
		t.Errorf("IP = %q, want 192.0.2.44", record.IP)
	}
}

func TestParser_Parse_MissingTimestampIsGuessed(t *testing.T) {
	line := `{"request":{"remote_ip":"10.0.0.1","method":"GET","uri":"/"},"status":200}`

	record, err := testParser().Parse(line, 1)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !record.TimestampGuessed {
		t.Error("TimestampGuessed should be true when ts is absent")
	}
	if record.Timestamp.IsZero() {
		t.Error("guessed timestamp should still be set")
	}
}

func TestParser_Parse_SkipsBlankAndComments(t *testing.T) {
	for _, line := range []string{"", "   ", "# comment"} {
		_, err := testParser().Parse(line, 1)
		if !errors.Is(err, accesslog.ErrSkipLine) {
			t.Errorf("Parse(%q) error = %v, want ErrSkipLine", line, err)
		}
	}
}

func TestParser_Parse_RejectsNonJSON(t *testing.T) {
	cases := []string{
		"not json at all",
		`{"broken": `,
		`{"level":"info","msg":"no request object"}`,
		`{"request":{"method":"GET","uri":"/"},"status":200}`, // no address anywhere
	}

	for _, line := range cases {
		if _, err := testParser().Parse(line, 1); !errors.Is(err, accesslog.ErrNoMatch) {
			t.Errorf("Parse(%q) error = %v, want ErrNoMatch", line, err)
		}
	}
}
