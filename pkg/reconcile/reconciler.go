// Package reconcile classifies collected following lists against the
// followers set and, in full mode, each account's last post date.
package reconcile

import (
	"context"
	"strings"
	"time"

	"followscan/pkg/activity"
	"followscan/pkg/errors"
	"followscan/pkg/logger"
	"followscan/pkg/models"
	"followscan/pkg/ratelimit"
	"followscan/pkg/session"
)

// DateLookup fetches the last post date of one account. A nil date means unknown.
type DateLookup interface {
	LastPostDate(ctx context.Context, user models.BasicUserInfo) (*time.Time, error)
}

// DateLookupFunc adapts a function to DateLookup
type DateLookupFunc func(ctx context.Context, user models.BasicUserInfo) (*time.Time, error)

func (f DateLookupFunc) LastPostDate(ctx context.Context, user models.BasicUserInfo) (*time.Time, error) {
	return f(ctx, user)
}

// Input is one reconciliation job
type Input struct {
	Platform  models.Platform
	Mode      models.ScanMode
	Following []models.BasicUserInfo
	// Followers holds lowercase usernames. Users carrying a FollowsYou badge ignore it.
	Followers map[string]struct{}
}

// Hooks receive events while candidates are evaluated
type Hooks struct {
	// OnEvaluated fires after each candidate with the 1-based position and the total
	OnEvaluated func(current, total int, username string)
	// OnFound fires for each matched account
	OnFound func(models.Account)
}

// Result is the outcome of a reconciliation run
type Result struct {
	// Accounts holds matched accounts only, in evaluation order
	Accounts  []models.Account
	Evaluated int
	Stopped   bool
}

// Reconciler turns candidates into classified accounts
type Reconciler struct {
	dates      DateLookup
	pacer      *ratelimit.Pacer
	profileURL func(username string) string
	now        func() time.Time
	logger     logger.Logger
}

// Option customizes a Reconciler
type Option func(*Reconciler)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithProfileURL sets how profile links are built
func WithProfileURL(fn func(username string) string) Option {
	return func(r *Reconciler) { r.profileURL = fn }
}

// New creates a Reconciler. dates may be nil when the platform cannot
// look up post dates; pacer is the pause between full-mode lookups.
func New(dates DateLookup, pacer *ratelimit.Pacer, log logger.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		dates:      dates,
		pacer:      pacer,
		profileURL: func(string) string { return "" },
		now:        time.Now,
		logger:     logger.OrGlobal(log),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FollowerSet builds the lowercase username set used by Input.Followers
func FollowerSet(followers []models.BasicUserInfo) map[string]struct{} {
	set := make(map[string]struct{}, len(followers))
	for _, f := range followers {
		set[strings.ToLower(f.Username)] = struct{}{}
	}
	return set
}

// Run evaluates every candidate in order. The stop flag is checked before each
// candidate. A lookup that fails because the upstream is unavailable leaves
// that account's date unknown; any other lookup failure aborts the run.
func (r *Reconciler) Run(ctx context.Context, stop session.Stopper, in Input, hooks Hooks) (Result, error) {
	res := Result{Accounts: []models.Account{}}
	total := len(in.Following)
	lookup := in.Mode == models.ScanModeFull && r.dates != nil

	for i, user := range in.Following {
		if stop.Stopped() {
			res.Stopped = true
			break
		}

		var lastPost *time.Time
		if lookup {
			if i > 0 {
				if err := r.pacer.Wait(ctx); err != nil {
					return res, err
				}
			}
			date, err := r.dates.LastPostDate(ctx, user)
			switch {
			case errors.IsRateLimited(err):
				logger.LogRateLimit(r.logger, string(in.Platform), user.Username)
				return res, err
			case errors.IsUnavailable(err):
				r.logger.WithError(err).WarnWithFields("Last post lookup failed, treating as unknown", map[string]interface{}{
					"platform": string(in.Platform),
					"username": user.Username,
				})
			case err != nil:
				return res, err
			default:
				lastPost = date
			}
		}

		account := r.classify(in, user, lastPost)
		res.Evaluated++
		if hooks.OnEvaluated != nil {
			hooks.OnEvaluated(i+1, total, user.Username)
		}
		if account.Matched() {
			res.Accounts = append(res.Accounts, account)
			if hooks.OnFound != nil {
				hooks.OnFound(account)
			}
		}
	}

	return res, nil
}

func (r *Reconciler) classify(in Input, user models.BasicUserInfo, lastPost *time.Time) models.Account {
	now := r.now()
	followingYou := false
	if user.FollowsYou != nil {
		followingYou = *user.FollowsYou
	} else {
		_, followingYou = in.Followers[strings.ToLower(user.Username)]
	}

	id := user.ID
	if id == "" {
		id = user.Username
	}

	return models.Account{
		ID:                 id,
		Username:           user.Username,
		DisplayName:        user.DisplayName,
		AvatarURL:          user.AvatarURL,
		ProfileURL:         r.profileURL(user.Username),
		Platform:           in.Platform,
		LastPostDate:       lastPost,
		IsFollowingYou:     followingYou,
		IsInactive:         activity.IsInactive(lastPost, now),
		IsNotFollowingBack: !followingYou,
		ScannedAt:          now,
	}
}
