package activity

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type relativePattern struct {
	re   *regexp.Regexp
	unit time.Duration
}

// Order matters: the first match wins and patterns overlap on substrings.
var relativePatterns = []relativePattern{
	{regexp.MustCompile(`(?i)(\d+)\s*seconds?\s*ago`), time.Second},
	{regexp.MustCompile(`(?i)(\d+)\s*minutes?\s*ago`), time.Minute},
	{regexp.MustCompile(`(?i)(\d+)\s*hours?\s*ago`), time.Hour},
	{regexp.MustCompile(`(?i)(\d+)\s*days?\s*ago`), day},
	{regexp.MustCompile(`(?i)(\d+)\s*weeks?\s*ago`), 7 * day},
	{regexp.MustCompile(`(?i)(\d+)\s*months?\s*ago`), 30 * day},
	{regexp.MustCompile(`(?i)(\d+)\s*years?\s*ago`), 365 * day},
	{regexp.MustCompile(`(\d+)\s*秒前`), time.Second},
	{regexp.MustCompile(`(\d+)\s*分前`), time.Minute},
	{regexp.MustCompile(`(\d+)\s*時間前`), time.Hour},
	{regexp.MustCompile(`(\d+)\s*日前`), day},
	{regexp.MustCompile(`(\d+)\s*週間前`), 7 * day},
	{regexp.MustCompile(`(\d+)\s*[ヶかカケ]月前`), 30 * day},
	{regexp.MustCompile(`(\d+)\s*年前`), 365 * day},
}

var absoluteLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2006年1月2日",
	"January 2, 2006",
	"Jan 2, 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseRelative converts a displayed post age into a timestamp relative to now.
// Numeric unit phrases are tried first (English, then Japanese), then absolute
// date layouts. It returns nil when nothing matches.
func ParseRelative(text string, now time.Time) *time.Time {
	for _, p := range relativePatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		t := now.Add(-time.Duration(n) * p.unit)
		return &t
	}
	return ParseAbsolute(text)
}

// ParseAbsolute parses a date written in one of the common absolute layouts
func ParseAbsolute(text string) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return &t
		}
	}
	return nil
}
