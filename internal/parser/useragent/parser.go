package useragent

import (
	"strings"
)

// Family and OS bucket user-agent strings into the coarse categories the
// statistics aggregator reports on. Matching is case-insensitive substring
// matching; order matters (bots are checked before browsers, Edge before
// Chrome, Safari only without Chrome).

var botMarkers = []string{"bot", "crawler", "spider", "scraper", "wget", "curl"}

// browserRule matches when every substring in contains is present and none
// of the substrings in excludes is.
type browserRule struct {
	family   string
	contains []string
	excludes []string
}

var browserRules = []browserRule{
	{family: "edge", contains: []string{"edg"}},
	{family: "chrome", contains: []string{"chrome"}, excludes: []string{"edg"}},
	{family: "firefox", contains: []string{"firefox"}},
	{family: "safari", contains: []string{"safari"}, excludes: []string{"chrome"}},
	{family: "opera", contains: []string{"opera"}},
	{family: "opera", contains: []string{"opr/"}},
}

type osRule struct {
	name     string
	contains []string
	excludes []string
}

var osRules = []osRule{
	{name: "windows", contains: []string{"windows nt"}},
	{name: "macos", contains: []string{"mac os x"}},
	{name: "macos", contains: []string{"macos"}},
	{name: "linux", contains: []string{"linux"}, excludes: []string{"android"}},
	{name: "android", contains: []string{"android"}},
	{name: "ios", contains: []string{"iphone"}},
	{name: "ios", contains: []string{"ipad"}},
	{name: "ios", contains: []string{"ios"}},
}

// Family returns the browser family for a user-agent string: one of
// "bot", "edge", "chrome", "firefox", "safari", "opera", "other" or
// "unknown" for an empty string.
func Family(userAgent string) string {
	if userAgent == "" {
		return "unknown"
	}

	ua := strings.ToLower(userAgent)

	for _, marker := range botMarkers {
		if strings.Contains(ua, marker) {
			return "bot"
		}
	}

	for _, rule := range browserRules {
		if matches(ua, rule.contains, rule.excludes) {
			return rule.family
		}
	}

	return "other"
}

// OS returns the operating system for a user-agent string, or "unknown".
func OS(userAgent string) string {
	if userAgent == "" {
		return "unknown"
	}

	ua := strings.ToLower(userAgent)

	for _, rule := range osRules {
		if matches(ua, rule.contains, rule.excludes) {
			return rule.name
		}
	}

	return "unknown"
}

func matches(ua string, contains, excludes []string) bool {
	for _, c := range contains {
		if !strings.Contains(ua, c) {
			return false
		}
	}
	for _, e := range excludes {
		if strings.Contains(ua, e) {
			return false
		}
	}
	return true
}
