package threads

import (
	"context"
	"strings"
	"time"

	"followscan/pkg/collector"
	"followscan/pkg/errors"
	"followscan/pkg/htmlview"
	"followscan/pkg/logger"
	"followscan/pkg/models"
	"followscan/pkg/platform"
	"followscan/pkg/ratelimit"
	"followscan/pkg/reconcile"
	"followscan/pkg/upstream"
)

const name = string(models.PlatformThreads)

// BaseURL is where profile pages are fetched from
const BaseURL = "https://www.threads.net"

// Options configures a Driver
type Options struct {
	Client *upstream.Client
	// BaseURL overrides BaseURL, mostly for tests
	BaseURL string
	// SnapshotDir holds saved renders of the following list; when empty the
	// location itself is fetched
	SnapshotDir string
	// Delay is the settle time after each scroll pass and the pause between lookups
	Delay      time.Duration
	Sleeper    ratelimit.Sleeper
	Logger     logger.Logger
	Now        func() time.Time
	MaxPasses  int
	StallLimit int
}

// Driver implements platform.Driver for Threads
type Driver struct {
	opts     Options
	logger   logger.Logger
	location string
}

var _ platform.Driver = (*Driver)(nil)

// NewDriver creates a Threads driver
func NewDriver(opts Options) *Driver {
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := logger.OrGlobal(opts.Logger).WithField("platform", name)
	if opts.Client == nil {
		opts.Client = upstream.NewClient(name, 30*time.Second, log)
	}
	return &Driver{opts: opts, logger: log}
}

func (d *Driver) Platform() models.Platform { return models.PlatformThreads }

func (d *Driver) Delay() time.Duration { return d.opts.Delay }

func (d *Driver) ProfileURL(username string) string { return BaseURL + "/@" + username }

// ValidateLocation accepts a threads.net/@user page and returns the user
func (d *Driver) ValidateLocation(location string) (string, error) {
	u, ok := platform.ParseLocation(location)
	if !ok || !platform.HostMatches(u.Host, "threads.net", "threads.com") {
		return "", errors.Validation(name, "Open threads.net before scanning")
	}

	segments := platform.PathSegments(u.Path)
	if len(segments) == 0 || !strings.HasPrefix(segments[0], "@") || len(segments[0]) < 2 {
		return "", errors.Validation(name, "Could not determine your username. Open your Threads profile (threads.net/@username) first")
	}

	d.location = u.String()
	return segments[0][1:], nil
}

// Following returns a scroll collector over the rendered following list
func (d *Driver) Following(ctx context.Context, username string) (collector.Collector, error) {
	var source htmlview.Source
	if d.opts.SnapshotDir != "" {
		src, err := htmlview.NewDirSource(d.opts.SnapshotDir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeValidation, name, "Could not read the saved following list", err)
		}
		source = src
	} else {
		location := d.location
		if location == "" {
			location = d.opts.BaseURL + "/@" + username
		}
		source = htmlview.NewURLSource(d.opts.Client, location)
	}

	var opts []collector.ScrollOption
	if d.opts.MaxPasses > 0 {
		opts = append(opts, collector.WithMaxPasses(d.opts.MaxPasses))
	}
	if d.opts.StallLimit > 0 {
		opts = append(opts, collector.WithStallLimit(d.opts.StallLimit))
	}
	view := htmlview.New(source, ParseProfileLinks)
	return collector.NewScrollCollector(view, d.opts.Delay, d.opts.Sleeper, d.logger, opts...), nil
}

// Followers is nil: Threads exposes no follower list
func (d *Driver) Followers(ctx context.Context, username string) (collector.Collector, error) {
	return nil, nil
}

// Dates returns the profile page lookup
func (d *Driver) Dates() reconcile.DateLookup {
	return reconcile.DateLookupFunc(d.LastPostDate)
}

// LastPostDate fetches the profile page of user and reads its newest post time
func (d *Driver) LastPostDate(ctx context.Context, user models.BasicUserInfo) (*time.Time, error) {
	doc, err := d.opts.Client.GetDocument(ctx, d.opts.BaseURL+"/@"+user.Username)
	if err != nil {
		return nil, err
	}
	return ParseLastPostDate(doc, d.opts.Now()), nil
}
