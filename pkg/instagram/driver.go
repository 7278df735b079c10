package instagram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"followscan/pkg/collector"
	"followscan/pkg/errors"
	"followscan/pkg/logger"
	"followscan/pkg/models"
	"followscan/pkg/platform"
	"followscan/pkg/ratelimit"
	"followscan/pkg/reconcile"
	"followscan/pkg/upstream"
)

const name = string(models.PlatformInstagram)

// Options configures a Driver
type Options struct {
	Client *upstream.Client
	// BaseURL overrides BaseURL, mostly for tests
	BaseURL  string
	PageSize int
	// Delay is the pause between pages and between per-account lookups
	Delay   time.Duration
	Sleeper ratelimit.Sleeper
	Logger  logger.Logger
}

// Driver implements platform.Driver for Instagram
type Driver struct {
	client   *upstream.Client
	baseURL  string
	pageSize int
	delay    time.Duration
	sleeper  ratelimit.Sleeper
	logger   logger.Logger

	mu      sync.Mutex
	userIDs map[string]string
}

var _ platform.Driver = (*Driver)(nil)

// NewDriver creates an Instagram driver
func NewDriver(opts Options) *Driver {
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	log := logger.OrGlobal(opts.Logger).WithField("platform", name)
	if opts.Client == nil {
		opts.Client = upstream.NewClient(name, 30*time.Second, log)
	}
	opts.Client.SetHeader("X-IG-App-ID", AppID)

	return &Driver{
		client:   opts.Client,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		pageSize: opts.PageSize,
		delay:    opts.Delay,
		sleeper:  opts.Sleeper,
		logger:   log,
		userIDs:  make(map[string]string),
	}
}

func (d *Driver) Platform() models.Platform { return models.PlatformInstagram }

func (d *Driver) Delay() time.Duration { return d.delay }

func (d *Driver) ProfileURL(username string) string { return GetUserProfileURL(username) }

// ValidateLocation accepts an instagram.com profile page and returns its username
func (d *Driver) ValidateLocation(location string) (string, error) {
	u, ok := platform.ParseLocation(location)
	if !ok || !platform.HostMatches(u.Host, "instagram.com") {
		return "", errors.Validation(name, "Open instagram.com before scanning")
	}

	segments := platform.PathSegments(u.Path)
	if len(segments) == 0 || reservedPaths[strings.ToLower(segments[0])] {
		return "", errors.Validation(name, "Could not determine your username. Open your Instagram profile page first")
	}

	username := SanitizeUsername(segments[0])
	if !IsValidUsername(username) {
		return "", errors.Validation(name, fmt.Sprintf("%q is not an Instagram profile page", username))
	}
	return username, nil
}

// ResolveUserID looks up the numeric id of username, caching the result
func (d *Driver) ResolveUserID(ctx context.Context, username string) (string, error) {
	key := strings.ToLower(username)
	d.mu.Lock()
	id, ok := d.userIDs[key]
	d.mu.Unlock()
	if ok {
		return id, nil
	}

	info, err := d.profileInfo(ctx, username)
	if err != nil {
		return "", err
	}
	if info.ID == "" {
		return "", errors.New(errors.ErrorTypeNotFound, name, fmt.Sprintf("could not resolve the user id of @%s", username))
	}

	d.mu.Lock()
	d.userIDs[key] = info.ID
	d.mu.Unlock()
	return info.ID, nil
}

// Following returns a collector over the accounts username follows
func (d *Driver) Following(ctx context.Context, username string) (collector.Collector, error) {
	return d.followList(ctx, username, FollowingQueryHash)
}

// Followers returns a collector over username's followers
func (d *Driver) Followers(ctx context.Context, username string) (collector.Collector, error) {
	return d.followList(ctx, username, FollowersQueryHash)
}

func (d *Driver) followList(ctx context.Context, username, queryHash string) (collector.Collector, error) {
	userID, err := d.ResolveUserID(ctx, username)
	if err != nil {
		return nil, err
	}
	fetch := collector.PageFetcherFunc(func(ctx context.Context, cursor string) (collector.Page, error) {
		return d.fetchPage(ctx, queryHash, userID, cursor)
	})
	return collector.NewCursorCollector(fetch, d.delay, d.sleeper, d.logger), nil
}

func (d *Driver) fetchPage(ctx context.Context, queryHash, userID, cursor string) (collector.Page, error) {
	var resp FollowListResponse
	if err := d.client.GetJSON(ctx, GetFollowListURL(d.baseURL, queryHash, userID, cursor, d.pageSize), &resp); err != nil {
		return collector.Page{}, err
	}

	edge := resp.Data.User.EdgeFollow
	if queryHash == FollowersQueryHash {
		edge = resp.Data.User.EdgeFollowedBy
	}
	if edge == nil {
		return collector.Page{}, nil
	}

	page := collector.Page{
		Users:       make([]models.BasicUserInfo, 0, len(edge.Edges)),
		HasNextPage: edge.PageInfo.HasNextPage,
		EndCursor:   edge.PageInfo.EndCursor,
	}
	for _, e := range edge.Edges {
		page.Users = append(page.Users, models.BasicUserInfo{
			ID:          e.Node.ID,
			Username:    e.Node.Username,
			DisplayName: e.Node.FullName,
			AvatarURL:   e.Node.ProfilePicURL,
		})
	}
	return page, nil
}

// Dates returns the last-post lookup
func (d *Driver) Dates() reconcile.DateLookup {
	return reconcile.DateLookupFunc(d.LastPostDate)
}

// LastPostDate returns the time of the newest timeline post, nil when there is none
func (d *Driver) LastPostDate(ctx context.Context, user models.BasicUserInfo) (*time.Time, error) {
	info, err := d.profileInfo(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	edges := info.EdgeOwnerToTimelineMedia.Edges
	if len(edges) == 0 || edges[0].Node.TakenAtTimestamp == 0 {
		return nil, nil
	}
	t := time.Unix(edges[0].Node.TakenAtTimestamp, 0).UTC()
	return &t, nil
}

func (d *Driver) profileInfo(ctx context.Context, username string) (*ProfileUser, error) {
	var resp ProfileInfoResponse
	if err := d.client.GetJSON(ctx, GetProfileInfoURL(d.baseURL, username), &resp); err != nil {
		return nil, err
	}
	if resp.Data.User == nil {
		return nil, errors.New(errors.ErrorTypeNotFound, name, fmt.Sprintf("profile @%s not found", username))
	}
	return resp.Data.User, nil
}
