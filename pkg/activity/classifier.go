package activity

import (
	"fmt"
	"strings"
	"time"

	"followscan/pkg/models"
)

const day = 24 * time.Hour

// IsInactive reports whether lastPostDate lies strictly more than the fixed
// 365-day threshold before now. An unknown date is never inactive.
func IsInactive(lastPostDate *time.Time, now time.Time) bool {
	if lastPostDate == nil || lastPostDate.IsZero() {
		return false
	}
	return now.Sub(*lastPostDate) > models.InactiveThreshold
}

// IsInactiveText is IsInactive over a stored textual date; unparsable text is unknown
func IsInactiveText(text string, now time.Time) bool {
	return IsInactive(ParseAbsolute(text), now)
}

// Locale selects the language of formatted output
type Locale string

const (
	LocaleEnglish  Locale = "en"
	LocaleJapanese Locale = "ja"
)

// ParseLocale maps a config value to a Locale, defaulting to English
func ParseLocale(s string) Locale {
	if strings.EqualFold(strings.TrimSpace(s), string(LocaleJapanese)) {
		return LocaleJapanese
	}
	return LocaleEnglish
}

type phrases struct {
	noPosts   string
	today     string
	yesterday string
	days      string
	weeks     string
	months    string
	years     string
}

var locales = map[Locale]phrases{
	LocaleEnglish: {
		noPosts:   "no posts",
		today:     "today",
		yesterday: "yesterday",
		days:      "%d days ago",
		weeks:     "%d weeks ago",
		months:    "%d months ago",
		years:     "%d+ years ago",
	},
	LocaleJapanese: {
		noPosts:   "投稿なし",
		today:     "今日",
		yesterday: "昨日",
		days:      "%d日前",
		weeks:     "%d週間前",
		months:    "%dヶ月前",
		years:     "%d年以上前",
	},
}

// FormatRelative renders the age of date in whole days, bucketed into
// today, yesterday, days (<7), weeks (<30), months (<365) and years.
func FormatRelative(date *time.Time, now time.Time, locale Locale) string {
	p, ok := locales[locale]
	if !ok {
		p = locales[LocaleEnglish]
	}
	if date == nil || date.IsZero() {
		return p.noPosts
	}

	days := int(now.Sub(*date) / day)
	switch {
	case days <= 0:
		return p.today
	case days == 1:
		return p.yesterday
	case days < 7:
		return fmt.Sprintf(p.days, days)
	case days < 30:
		return fmt.Sprintf(p.weeks, days/7)
	case days < 365:
		return fmt.Sprintf(p.months, days/30)
	default:
		return fmt.Sprintf(p.years, days/365)
	}
}
