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

// View is a scrolling list surface: Extract reads what is currently loaded,
// Advance asks for more content.
type View interface {
	Extract(ctx context.Context) ([]models.BasicUserInfo, error)
	Advance(ctx context.Context) error
}

const (
	// DefaultMaxPasses bounds the work spent on infinite scroll surfaces
	DefaultMaxPasses = 50
	// DefaultStallLimit is the number of consecutive passes without new users that ends collection
	DefaultStallLimit = 3
)

// ScrollCollector collects from a View, stopping on stall, cap, pass limit or stop request
type ScrollCollector struct {
	view       View
	maxPasses  int
	stallLimit int
	settle     *ratelimit.Pacer
	logger     logger.Logger
}

// ScrollOption customizes a ScrollCollector
type ScrollOption func(*ScrollCollector)

// WithMaxPasses overrides DefaultMaxPasses
func WithMaxPasses(n int) ScrollOption {
	return func(c *ScrollCollector) { c.maxPasses = n }
}

// WithStallLimit overrides DefaultStallLimit
func WithStallLimit(n int) ScrollOption {
	return func(c *ScrollCollector) { c.stallLimit = n }
}

// NewScrollCollector creates a collector over view that waits settle after each advance
func NewScrollCollector(view View, settle time.Duration, sleeper ratelimit.Sleeper, log logger.Logger, opts ...ScrollOption) *ScrollCollector {
	c := &ScrollCollector{
		view:       view,
		maxPasses:  DefaultMaxPasses,
		stallLimit: DefaultStallLimit,
		settle:     ratelimit.NewPacer(settle, sleeper),
		logger:     logger.OrGlobal(log),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect implements Collector
func (c *ScrollCollector) Collect(ctx context.Context, stop session.Stopper, maxCount int, progress ProgressFunc) ([]models.BasicUserInfo, error) {
	acc := newDedup(maxCount)
	stalls := 0

	for pass := 0; pass < c.maxPasses; pass++ {
		if stop.Stopped() || acc.full() {
			break
		}

		batch, err := c.view.Extract(ctx)
		if err != nil {
			return nil, fmt.Errorf("extract pass %d: %w", pass, err)
		}

		added := acc.add(batch)
		if added == 0 {
			stalls++
			c.logger.DebugWithFields("Scroll pass found no new users", map[string]interface{}{
				"pass":   pass,
				"stalls": stalls,
			})
			if stalls >= c.stallLimit {
				break
			}
		} else {
			stalls = 0
		}

		if acc.full() {
			break
		}

		if err := c.view.Advance(ctx); err != nil {
			return nil, fmt.Errorf("advance pass %d: %w", pass, err)
		}
		if err := c.settle.Wait(ctx); err != nil {
			return nil, err
		}
		if progress != nil {
			progress(len(acc.users))
		}
	}

	return acc.users, nil
}
