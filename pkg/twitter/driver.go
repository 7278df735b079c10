package twitter

import (
	"context"
	"fmt"
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

const name = string(models.PlatformTwitter)

// ProfileBaseURL prefixes generated profile links
const ProfileBaseURL = "https://x.com/"

// first path segments that never name a user
var nonUserPaths = map[string]bool{
	"home":          true,
	"explore":       true,
	"notifications": true,
	"messages":      true,
	"i":             true,
	"search":        true,
	"compose":       true,
	"settings":      true,
}

// Options configures a Driver
type Options struct {
	Client *upstream.Client
	// SnapshotDir holds saved renders of the Following page; when empty the
	// location itself is fetched
	SnapshotDir string
	// Delay is the settle time after each scroll pass
	Delay      time.Duration
	Sleeper    ratelimit.Sleeper
	Logger     logger.Logger
	MaxPasses  int
	StallLimit int
}

// Driver implements platform.Driver for X
type Driver struct {
	opts   Options
	logger logger.Logger
	// location of the last validated Following page
	location string
}

var _ platform.Driver = (*Driver)(nil)

// NewDriver creates an X driver
func NewDriver(opts Options) *Driver {
	log := logger.OrGlobal(opts.Logger).WithField("platform", name)
	if opts.Client == nil {
		opts.Client = upstream.NewClient(name, 30*time.Second, log)
	}
	return &Driver{opts: opts, logger: log}
}

func (d *Driver) Platform() models.Platform { return models.PlatformTwitter }

func (d *Driver) Delay() time.Duration { return d.opts.Delay }

func (d *Driver) ProfileURL(username string) string { return ProfileBaseURL + username }

// ValidateLocation accepts x.com/{user}/following and returns the user
func (d *Driver) ValidateLocation(location string) (string, error) {
	u, ok := platform.ParseLocation(location)
	if !ok || !platform.HostMatches(u.Host, "x.com", "twitter.com") {
		return "", errors.Validation(name, "Open x.com before scanning")
	}

	segments := platform.PathSegments(u.Path)
	if len(segments) == 0 || nonUserPaths[strings.ToLower(segments[0])] {
		return "", errors.Validation(name, "Could not determine your username. Open your profile's Following page first")
	}
	username := segments[0]
	if len(segments) < 2 || strings.ToLower(segments[1]) != "following" {
		return "", errors.Validation(name, fmt.Sprintf("Open x.com/%s/following before scanning", username))
	}

	d.location = u.String()
	return username, nil
}

// Following returns a scroll collector over the rendered Following page
func (d *Driver) Following(ctx context.Context, username string) (collector.Collector, error) {
	source, err := d.source(username)
	if err != nil {
		return nil, err
	}
	var opts []collector.ScrollOption
	if d.opts.MaxPasses > 0 {
		opts = append(opts, collector.WithMaxPasses(d.opts.MaxPasses))
	}
	if d.opts.StallLimit > 0 {
		opts = append(opts, collector.WithStallLimit(d.opts.StallLimit))
	}
	view := htmlview.New(source, ParseUserCells)
	return collector.NewScrollCollector(view, d.opts.Delay, d.opts.Sleeper, d.logger, opts...), nil
}

func (d *Driver) source(username string) (htmlview.Source, error) {
	if d.opts.SnapshotDir != "" {
		src, err := htmlview.NewDirSource(d.opts.SnapshotDir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeValidation, name, "Could not read the saved Following page", err)
		}
		return src, nil
	}
	location := d.location
	if location == "" {
		location = ProfileBaseURL + username + "/following"
	}
	return htmlview.NewURLSource(d.opts.Client, location), nil
}

// Followers is nil: follow-back comes from the cell badge
func (d *Driver) Followers(ctx context.Context, username string) (collector.Collector, error) {
	return nil, nil
}

// Dates is nil: post dates are not available
func (d *Driver) Dates() reconcile.DateLookup { return nil }
