package threads

import (
	"regexp"
	"strings"
	"time"

	"followscan/pkg/activity"
	"followscan/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

const (
	linkSelector      = `a[href^="/@"]`
	containerSelector = `[role="listitem"], [role="row"], div[style*="flex"]`
	avatarSelector    = `img[src*="scontent"]`
)

var (
	profileHref = regexp.MustCompile(`^/@([^/?#]+)`)

	postAgePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\s*(秒|分|時間|日|週間|ヶ月|年)前`),
		regexp.MustCompile(`(?i)(\d+)\s*(second|minute|hour|day|week|month|year)s?\s*ago`),
	}
)

// ParseProfileLinks extracts the accounts linked from a rendered list page.
// Links outside a list row are navigation and are skipped.
func ParseProfileLinks(doc *goquery.Document) []models.BasicUserInfo {
	var users []models.BasicUserInfo
	seen := make(map[string]bool)

	doc.Find(linkSelector).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		m := profileHref.FindStringSubmatch(href)
		if m == nil {
			return
		}
		username := m[1]

		container := link.Closest(containerSelector)
		if container.Length() == 0 || seen[username] {
			return
		}
		seen[username] = true

		avatar, _ := container.Find(avatarSelector).First().Attr("src")
		display := username
		container.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if text != "" && text != username && !strings.HasPrefix(text, "@") {
				display = text
				return false
			}
			return true
		})

		users = append(users, models.BasicUserInfo{
			ID:          username,
			Username:    username,
			DisplayName: display,
			AvatarURL:   avatar,
		})
	})
	return users
}

// ParseLastPostDate reads the newest post time from a profile page: the first
// time[datetime] element, else the first post age phrase in the page text.
func ParseLastPostDate(doc *goquery.Document, now time.Time) *time.Time {
	if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		if t := activity.ParseAbsolute(dt); t != nil {
			return t
		}
	}

	text := doc.Find("body").Text()
	for _, re := range postAgePatterns {
		if m := re.FindString(text); m != "" {
			return activity.ParseRelative(m, now)
		}
	}
	return nil
}
