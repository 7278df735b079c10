// Package collector harvests deduplicated candidate lists from paginated or
// infinitely scrolling upstream surfaces.
package collector

import (
	"context"
	"strings"

	"followscan/pkg/models"
	"followscan/pkg/session"
)

// ProgressFunc receives the running number of unique users collected
type ProgressFunc func(collected int)

// Collector produces a deduplicated, first-seen ordered list of users.
// A maxCount of zero or less means no cap.
type Collector interface {
	Collect(ctx context.Context, stop session.Stopper, maxCount int, progress ProgressFunc) ([]models.BasicUserInfo, error)
}

// dedup accumulates users keyed by lowercase username
type dedup struct {
	seen     map[string]struct{}
	users    []models.BasicUserInfo
	maxCount int
}

func newDedup(maxCount int) *dedup {
	return &dedup{seen: make(map[string]struct{}), maxCount: maxCount}
}

func (d *dedup) full() bool {
	return d.maxCount > 0 && len(d.users) >= d.maxCount
}

// add appends the unseen users of batch, stopping as soon as the cap is hit.
// It returns how many new users were appended.
func (d *dedup) add(batch []models.BasicUserInfo) int {
	added := 0
	for _, u := range batch {
		if d.full() {
			break
		}
		key := strings.ToLower(strings.TrimSpace(u.Username))
		if key == "" {
			continue
		}
		if _, ok := d.seen[key]; ok {
			continue
		}
		d.seen[key] = struct{}{}
		d.users = append(d.users, u)
		added++
	}
	return added
}
