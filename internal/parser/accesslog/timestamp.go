package accesslog

import (
	"regexp"
	"strconv"
	"time"
)

// Apache log timestamp: 10/Oct/2023:13:55:36 -0700
var apacheTimeRe = regexp.MustCompile(`^(\d{1,2})/(\w{3})/(\d{4}):(\d{2}):(\d{2}):(\d{2})\s*([+-]\d{4})`)

// Month abbreviations are case-sensitive; anything outside this set fails
// the primary grammar and falls through to the generic layouts.
var monthNames = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// Fallback layouts for lines that do not use the Apache bracket format.
var genericLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/Jan/2006:15:04:05",
}

// normalizeTimestamp converts a log date/time string into a UTC instant.
// It is a total function: when no grammar matches it returns now() as a
// sentinel and reports ok=false. The bracketed time is local to the signed
// offset, so the offset is subtracted to obtain true UTC.
func normalizeTimestamp(raw string, now func() time.Time) (t time.Time, ok bool) {
	if m := apacheTimeRe.FindStringSubmatch(raw); m != nil {
		if month, known := monthNames[m[2]]; known {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[3])
			hour, _ := strconv.Atoi(m[4])
			minute, _ := strconv.Atoi(m[5])
			second, _ := strconv.Atoi(m[6])

			t := time.Date(year, month, day, hour, minute, second, 0, time.UTC)

			tz := m[7]
			tzHours, _ := strconv.Atoi(tz[1:3])
			tzMinutes, _ := strconv.Atoi(tz[3:5])
			offset := time.Duration(tzHours*60+tzMinutes) * time.Minute
			if tz[0] == '-' {
				offset = -offset
			}

			return t.Add(-offset), true
		}
	}

	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}

	return now(), false
}
