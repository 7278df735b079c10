package collector

import (
	"context"
	"fmt"
	"time"

	"followscan/pkg/logger"
	"followscan/pkg/models"
	"followscan/pkg/ratelimit"
	"followscan/pkg/session"
)

// Page is one response of a cursor-paginated list
type Page struct {
	Users       []models.BasicUserInfo
	HasNextPage bool
	EndCursor   string
}

// PageFetcher fetches the page that starts after cursor; an empty cursor is the first page
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor string) (Page, error)
}

// PageFetcherFunc adapts a function to PageFetcher
type PageFetcherFunc func(ctx context.Context, cursor string) (Page, error)

func (f PageFetcherFunc) FetchPage(ctx context.Context, cursor string) (Page, error) {
	return f(ctx, cursor)
}

// CursorCollector walks a cursor-paginated list until it runs out of pages
type CursorCollector struct {
	fetcher PageFetcher
	delay   *ratelimit.Pacer
	logger  logger.Logger
}

// NewCursorCollector creates a collector pausing delay between pages
func NewCursorCollector(fetcher PageFetcher, delay time.Duration, sleeper ratelimit.Sleeper, log logger.Logger) *CursorCollector {
	return &CursorCollector{
		fetcher: fetcher,
		delay:   ratelimit.NewPacer(delay, sleeper),
		logger:  logger.OrGlobal(log),
	}
}

// Collect implements Collector. Fetch errors, rate limits included, are returned as is.
func (c *CursorCollector) Collect(ctx context.Context, stop session.Stopper, maxCount int, progress ProgressFunc) ([]models.BasicUserInfo, error) {
	acc := newDedup(maxCount)
	cursor := ""

	for page := 0; ; page++ {
		if stop.Stopped() || acc.full() {
			break
		}

		p, err := c.fetcher.FetchPage(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}

		added := acc.add(p.Users)
		c.logger.DebugWithFields("Fetched page", map[string]interface{}{
			"page":      page,
			"added":     added,
			"collected": len(acc.users),
			"has_next":  p.HasNextPage,
		})
		if progress != nil {
			progress(len(acc.users))
		}

		if acc.full() || !p.HasNextPage || p.EndCursor == "" {
			break
		}
		cursor = p.EndCursor

		if err := c.delay.Wait(ctx); err != nil {
			return nil, err
		}
	}

	return acc.users, nil
}
