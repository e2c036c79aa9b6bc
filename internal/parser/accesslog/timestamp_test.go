package accesslog

import (
	"testing"
	"time"
)

func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestNormalizeTimestamp_ApacheFormat(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{
			"negative offset",
			"10/Oct/2023:13:55:36 -0700",
			time.Date(2023, time.October, 10, 20, 55, 36, 0, time.UTC),
		},
		{
			"positive offset",
			"10/Oct/2023:13:55:36 +0200",
			time.Date(2023, time.October, 10, 11, 55, 36, 0, time.UTC),
		},
		{
			"utc",
			"01/Jan/2024:00:00:00 +0000",
			time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"half hour offset",
			"15/Mar/2023:10:30:00 +0530",
			time.Date(2023, time.March, 15, 5, 0, 0, 0, time.UTC),
		},
		{
			"single digit day",
			"5/Feb/2023:08:15:30 -0100",
			time.Date(2023, time.February, 5, 9, 15, 30, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizeTimestamp(tt.raw, fixedClock)
			if !ok {
				t.Fatalf("Expected %q to parse", tt.raw)
			}
			if !got.Equal(tt.want) {
				t.Errorf("normalizeTimestamp(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeTimestamp_UnknownMonthFallsThrough(t *testing.T) {
	// "Okt" is not in the month set; the primary grammar must fail without
	// crashing and the sentinel clock value comes back instead.
	got, ok := normalizeTimestamp("10/Okt/2023:13:55:36 +0000", fixedClock)
	if ok {
		t.Error("Expected unknown month abbreviation to fail parsing")
	}
	if !got.Equal(fixedClock()) {
		t.Errorf("Expected sentinel %v, got %v", fixedClock(), got)
	}
}

func TestNormalizeTimestamp_GenericLayouts(t *testing.T) {
	got, ok := normalizeTimestamp("2023-10-10T13:55:36Z", fixedClock)
	if !ok {
		t.Fatal("Expected RFC3339 string to parse")
	}
	want := time.Date(2023, time.October, 10, 13, 55, 36, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestNormalizeTimestamp_GarbageUsesSentinel(t *testing.T) {
	got, ok := normalizeTimestamp("not a date", fixedClock)
	if ok {
		t.Error("Expected garbage input to fail parsing")
	}
	if !got.Equal(fixedClock()) {
		t.Errorf("Expected sentinel %v, got %v", fixedClock(), got)
	}
}
