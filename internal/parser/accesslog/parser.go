package accesslog

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
)

// ErrSkipLine marks blank lines and # comments: non-entries, not errors.
var ErrSkipLine = errors.New("line is not a log entry")

// ErrNoMatch marks lines no grammar could make sense of.
var ErrNoMatch = errors.New("no log grammar matched")

// grammar is one fixed log-line pattern together with the capture-group
// index of each record field. An index of 0 means the grammar does not
// carry that field and the record keeps its default.
type grammar struct {
	name string
	re   *regexp.Regexp

	ip, identd, userID, datetime, request, status, bytes, referer, agent int
}

// Grammars are tried in order, most common first; the first structural
// match wins. The extended and NCSA variants are kept for compatibility
// with older server configurations.
var grammars = []grammar{
	{
		name: "combined",
		re:   regexp.MustCompile(`^(\S+) (\S+) (\S+) \[([^\]]+)\] "([^"]*)" (\d+) (\d+|-)(?: "([^"]*)" "([^"]*)")?`),
		ip:   1, identd: 2, userID: 3, datetime: 4, request: 5, status: 6, bytes: 7, referer: 8, agent: 9,
	},
	{
		name: "common",
		re:   regexp.MustCompile(`^(\S+) (\S+) (\S+) \[([^\]]+)\] "([^"]*)" (\d+) (\d+|-)`),
		ip:   1, identd: 2, userID: 3, datetime: 4, request: 5, status: 6, bytes: 7,
	},
	{
		name: "extended",
		re:   regexp.MustCompile(`^(\S+) (\S+) (\S+) \[([^\]]+)\] "([^"]*)" (\d+) (\d+|-) "([^"]*)" "([^"]*)" "([^"]*)"`),
		ip:   1, identd: 2, userID: 3, datetime: 4, request: 5, status: 6, bytes: 7, referer: 8, agent: 9,
	},
	{
		name: "ncsa",
		re:   regexp.MustCompile(`^(\S+) - (\S+) \[([^\]]+)\] "([^"]*)" (\d+) (\d+|-)`),
		ip:   1, userID: 2, datetime: 3, request: 4, status: 5, bytes: 6,
	},
}

// Patterns for the flexible fallback extraction.
var (
	leadingIPRe  = regexp.MustCompile(`^(\d+\.\d+\.\d+\.\d+|[0-9a-fA-F:]+)`)
	bracketedRe  = regexp.MustCompile(`\[([^\]]+)\]`)
	quotedRe     = regexp.MustCompile(`"([^"]*)"`)
	statusTokRe  = regexp.MustCompile(` (\d{3}) `)
	lastQuotedRe = regexp.MustCompile(`"([^"]+)"$`)
)

// Parser parses Combined, Common, Extended and NCSA access-log lines,
// falling back to a field-by-field extraction for near-miss lines.
type Parser struct {
	logger *pterm.Logger

	// now supplies the sentinel timestamp for unparseable dates.
	now func() time.Time
}

// NewParser creates a new access-log parser instance
func NewParser(logger *pterm.Logger) *Parser {
	return &Parser{
		logger: logger,
		now:    time.Now,
	}
}

// Name returns the parser identifier
func (p *Parser) Name() string {
	return "accesslog"
}

// Parse parses a single trimmed log line into a Record. It never panics to
// the caller; lines it cannot handle come back as ErrSkipLine or ErrNoMatch.
func (p *Parser) Parse(line string, lineNumber int) (record *Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithCaller().Warn("Recovered from panic while parsing line",
				p.logger.Args("line_number", lineNumber, "panic", r))
			record = nil
			err = ErrNoMatch
		}
	}()

	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, ErrSkipLine
	}

	for _, g := range grammars {
		if m := g.re.FindStringSubmatch(line); m != nil {
			p.logger.Trace("Matched fixed grammar",
				p.logger.Args("grammar", g.name, "line_number", lineNumber))
			return p.buildRecord(g, m, line, lineNumber), nil
		}
	}

	return p.parseFlexible(line, lineNumber)
}

// buildRecord assembles a Record from a fixed-grammar match.
func (p *Parser) buildRecord(g grammar, m []string, line string, lineNumber int) *Record {
	r := &Record{
		IP:          "-",
		Identd:      "-",
		UserID:      "-",
		Method:      "-",
		URL:         "-",
		HTTPVersion: "-",
		Raw:         line,
		LineNumber:  lineNumber,
	}

	if g.ip > 0 && m[g.ip] != "" {
		r.IP = m[g.ip]
	}
	if g.identd > 0 && m[g.identd] != "" {
		r.Identd = m[g.identd]
	}
	if g.userID > 0 && m[g.userID] != "" {
		r.UserID = m[g.userID]
	}
	if g.status > 0 {
		r.Status = parseStatus(m[g.status])
	}
	if g.bytes > 0 {
		r.Bytes = parseBytes(m[g.bytes])
	}
	if g.referer > 0 {
		r.Referer = dashToEmpty(m[g.referer])
	}
	if g.agent > 0 {
		r.UserAgent = dashToEmpty(m[g.agent])
	}
	if g.datetime > 0 {
		r.Timestamp, r.TimestampGuessed = normalize(m[g.datetime], p.now)
	}
	if g.request > 0 {
		r.Method, r.URL, r.HTTPVersion = splitRequest(m[g.request])
	}

	return r
}

// parseFlexible independently extracts whatever fields it can locate. Only
// the total absence of an IP-shaped prefix or of a bracketed timestamp
// rejects the line outright.
func (p *Parser) parseFlexible(line string, lineNumber int) (*Record, error) {
	ipMatch := leadingIPRe.FindStringSubmatch(line)
	if ipMatch == nil {
		return nil, ErrNoMatch
	}
	remaining := strings.TrimSpace(line[len(ipMatch[0]):])

	dateMatch := bracketedRe.FindStringSubmatch(remaining)
	if dateMatch == nil {
		return nil, ErrNoMatch
	}

	r := &Record{
		IP:          ipMatch[1],
		Identd:      "-",
		UserID:      "-",
		Method:      "-",
		URL:         "-",
		HTTPVersion: "-",
		Raw:         line,
		LineNumber:  lineNumber,
	}
	r.Timestamp, r.TimestampGuessed = normalize(dateMatch[1], p.now)

	if reqMatch := quotedRe.FindStringSubmatch(remaining); reqMatch != nil {
		r.Method, r.URL, r.HTTPVersion = splitRequest(reqMatch[1])
	}
	if statusMatch := statusTokRe.FindStringSubmatch(remaining); statusMatch != nil {
		r.Status = parseStatus(statusMatch[1])
	}
	if uaMatch := lastQuotedRe.FindStringSubmatch(line); uaMatch != nil {
		r.UserAgent = dashToEmpty(uaMatch[1])
	}

	p.logger.Trace("Parsed line with flexible extraction",
		p.logger.Args("line_number", lineNumber, "ip", r.IP, "status", r.Status))

	return r, nil
}

// splitRequest decomposes a "METHOD URL VERSION" request string. Fewer
// tokens fill fields left to right with the URL taking priority: a single
// token is treated as the URL alone.
func splitRequest(request string) (method, url, version string) {
	if request == "" || request == "-" {
		return "-", "-", "-"
	}

	parts := strings.Fields(request)
	switch {
	case len(parts) >= 3:
		return parts[0], parts[1], parts[2]
	case len(parts) == 2:
		return parts[0], parts[1], "-"
	case len(parts) == 1:
		return "-", parts[0], "-"
	default:
		return "-", "-", "-"
	}
}

// normalize wraps normalizeTimestamp, flipping ok into a "guessed" flag.
func normalize(raw string, now func() time.Time) (time.Time, bool) {
	t, ok := normalizeTimestamp(raw, now)
	return t, !ok
}

func parseStatus(s string) int {
	status, err := strconv.Atoi(s)
	if err != nil || status < 0 {
		return 0
	}
	return status
}

func parseBytes(s string) int64 {
	if s == "-" {
		return 0
	}
	bytes, err := strconv.ParseInt(s, 10, 64)
	if err != nil || bytes < 0 {
		return 0
	}
	return bytes
}

func dashToEmpty(s string) string {
	if s == "-" {
		return ""
	}
	return s
}
