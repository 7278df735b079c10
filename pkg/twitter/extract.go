package twitter

import (
	"strings"

	"followscan/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

const (
	cellSelector    = `[data-testid="UserCell"]`
	linkSelector    = `a[href^="/"][role="link"]`
	avatarSelector  = `img[src*="profile_images"]`
	displaySelector = `[dir="ltr"] > span`
)

var followsYouLabels = []string{"Follows you", "フォローされています"}

// ParseUserCells extracts every user cell of a rendered Following page
func ParseUserCells(doc *goquery.Document) []models.BasicUserInfo {
	var users []models.BasicUserInfo
	seen := make(map[string]bool)

	doc.Find(cellSelector).Each(func(_ int, cell *goquery.Selection) {
		username := cellUsername(cell)
		if username == "" || seen[strings.ToLower(username)] {
			return
		}
		seen[strings.ToLower(username)] = true

		avatar, _ := cell.Find(avatarSelector).First().Attr("src")
		display := strings.TrimSpace(cell.Find(displaySelector).First().Text())
		if display == "" {
			display = username
		}
		followsYou := hasFollowsYouBadge(cell.Text())

		users = append(users, models.BasicUserInfo{
			ID:          username,
			Username:    username,
			DisplayName: display,
			AvatarURL:   avatar,
			FollowsYou:  &followsYou,
		})
	})
	return users
}

func cellUsername(cell *goquery.Selection) string {
	href, ok := cell.Find(linkSelector).First().Attr("href")
	if !ok {
		return ""
	}
	seg := strings.SplitN(strings.TrimPrefix(href, "/"), "/", 2)[0]
	if i := strings.IndexAny(seg, "?#"); i >= 0 {
		seg = seg[:i]
	}
	if nonUserPaths[strings.ToLower(seg)] {
		return ""
	}
	return seg
}

func hasFollowsYouBadge(text string) bool {
	for _, label := range followsYouLabels {
		if strings.Contains(text, label) {
			return true
		}
	}
	return false
}
