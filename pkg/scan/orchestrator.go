package scan

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"followscan/pkg/errors"
	"followscan/pkg/logger"
	"followscan/pkg/messages"
	"followscan/pkg/models"
	"followscan/pkg/platform"
	"followscan/pkg/ratelimit"
	"followscan/pkg/reconcile"
	"followscan/pkg/session"
)

// ErrAlreadyRunning is returned by Run when the platform already has an active scan
var ErrAlreadyRunning = stderrors.New("a scan is already running for this platform")

// Request starts a scan
type Request struct {
	Platform models.Platform
	// Location is the page the user has open
	Location string
	Options  models.ScanOptions
}

// Orchestrator drives scans and tracks the active session of each platform
type Orchestrator struct {
	drivers *platform.Registry
	publish messages.Publisher
	sleeper ratelimit.Sleeper
	now     func() time.Time
	logger  logger.Logger

	mu     sync.Mutex
	active map[models.Platform]*session.Session
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithSleeper replaces the sleeper used for inter-request pauses
func WithSleeper(s ratelimit.Sleeper) Option {
	return func(o *Orchestrator) { o.sleeper = s }
}

// WithClock overrides time.Now for classification
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator. A nil publisher discards every message.
func New(drivers *platform.Registry, publish messages.Publisher, log logger.Logger, opts ...Option) *Orchestrator {
	if publish == nil {
		publish = messages.Discard
	}
	o := &Orchestrator{
		drivers: drivers,
		publish: publish,
		sleeper: ratelimit.RealSleeper,
		now:     time.Now,
		logger:  logger.OrGlobal(log).WithField("component", "orchestrator"),
		active:  make(map[models.Platform]*session.Session),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start launches a scan in the background. When the platform is already
// scanning it returns the running session and false.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*session.Session, bool) {
	sess, ok := o.begin(req)
	if !ok {
		return sess, false
	}
	go o.execute(ctx, sess, req)
	return sess, true
}

// Run scans synchronously and returns the finished session
func (o *Orchestrator) Run(ctx context.Context, req Request) (*session.Session, error) {
	sess, ok := o.begin(req)
	if !ok {
		return sess, ErrAlreadyRunning
	}
	o.execute(ctx, sess, req)
	return sess, nil
}

// Stop requests a cooperative stop of the platform's scan. It reports whether a scan was running.
func (o *Orchestrator) Stop(p models.Platform) bool {
	o.mu.Lock()
	sess := o.active[p]
	o.mu.Unlock()
	if sess == nil {
		return false
	}
	sess.Stop()
	o.logger.InfoWithFields("Stop requested", map[string]interface{}{
		"platform": p,
		"session":  sess.ID,
	})
	return true
}

// Active returns the running session of p, or nil
func (o *Orchestrator) Active(p models.Platform) *session.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active[p]
}

// Status reports whether p is currently scanning
func (o *Orchestrator) Status(p models.Platform) models.ScanStatus {
	if o.Active(p) != nil {
		return models.StatusScanning
	}
	return models.StatusIdle
}

func (o *Orchestrator) begin(req Request) (*session.Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if sess, ok := o.active[req.Platform]; ok {
		return sess, false
	}
	sess := session.New(req.Platform, req.Options.Normalize())
	o.active[req.Platform] = sess
	return sess, true
}

// run is the state of one executing scan
type run struct {
	o    *Orchestrator
	sess *session.Session
	log  logger.Logger
}

func (r *run) progress(status models.ScanStatus, current, total int, format string, args ...interface{}) {
	current, total = r.sess.Advance(current, total)
	logger.LogScanProgress(r.log, string(r.sess.Platform), current, total)
	r.o.publish.Publish(messages.ScanProgress{Progress: models.ScanProgress{
		Platform: r.sess.Platform,
		Status:   status,
		Current:  current,
		Total:    total,
		Message:  fmt.Sprintf(format, args...),
	}})
}

func (o *Orchestrator) execute(ctx context.Context, sess *session.Session, req Request) {
	r := &run{o: o, sess: sess, log: o.logger.WithFields(map[string]interface{}{
		"platform": string(sess.Platform),
		"session":  sess.ID,
	})}
	result := session.Result{Outcome: session.OutcomeFailed}

	defer func() {
		o.mu.Lock()
		if o.active[sess.Platform] == sess {
			delete(o.active, sess.Platform)
		}
		o.mu.Unlock()
		sess.Finish(result)
	}()
	defer func() {
		if p := recover(); p != nil {
			r.log.ErrorWithFields("Scan panicked", map[string]interface{}{"panic": fmt.Sprint(p)})
			result = r.fail(fmt.Errorf("%v", p))
		}
	}()

	opts := sess.Options
	logger.LogScanStart(r.log, string(sess.Platform), opts.StartIndex, opts.Limit, string(opts.Mode))
	r.progress(models.StatusScanning, 0, 0, "Starting scan...")

	res, err := r.scan(ctx, req)
	if err != nil {
		result = r.fail(err)
		return
	}
	result = r.finish(res)
}

func (r *run) scan(ctx context.Context, req Request) (reconcile.Result, error) {
	sess := r.sess
	opts := sess.Options

	drv, err := r.o.drivers.Get(sess.Platform)
	if err != nil {
		return reconcile.Result{}, err
	}
	username, err := drv.ValidateLocation(req.Location)
	if err != nil {
		return reconcile.Result{}, err
	}
	r.log = r.log.WithField("user", username)

	r.progress(models.StatusScanning, 0, 0, "Collecting following accounts...")
	following, err := r.collectFollowing(ctx, drv, username, opts.WindowEnd())
	if err != nil {
		return reconcile.Result{}, err
	}
	if sess.Stopped() {
		return reconcile.Result{Accounts: []models.Account{}, Stopped: true}, nil
	}

	window := Window(ExcludeSelf(following, username), opts)
	r.progress(models.StatusScanning, 0, len(window), "Processing %s of %d following accounts",
		windowLabel(opts, len(window)), len(following))

	followers := map[string]struct{}{}
	if len(window) > 0 && needsFollowers(window) {
		set, err := r.collectFollowers(ctx, drv, username, len(window))
		if err != nil {
			return reconcile.Result{}, err
		}
		followers = set
	}
	if sess.Stopped() {
		return reconcile.Result{Accounts: []models.Account{}, Stopped: true}, nil
	}

	rec := reconcile.New(drv.Dates(), ratelimit.NewPacer(drv.Delay(), r.o.sleeper), r.log,
		reconcile.WithClock(r.o.now),
		reconcile.WithProfileURL(drv.ProfileURL),
	)
	return rec.Run(ctx, sess, reconcile.Input{
		Platform:  sess.Platform,
		Mode:      opts.Mode,
		Following: window,
		Followers: followers,
	}, reconcile.Hooks{
		OnEvaluated: func(current, total int, user string) {
			r.progress(models.StatusScanning, current, total, "Checking @%s (%d/%d)",
				user, opts.StartIndex+current, len(following))
		},
		OnFound: func(a models.Account) {
			r.o.publish.Publish(messages.AccountFound{Platform: sess.Platform, Account: a})
		},
	})
}

func (r *run) collectFollowing(ctx context.Context, drv platform.Driver, username string, max int) ([]models.BasicUserInfo, error) {
	c, err := drv.Following(ctx, username)
	if err != nil {
		return nil, err
	}
	// the scanning user may appear in the list, so collect one extra
	users, err := c.Collect(ctx, r.sess, max+1, func(n int) {
		r.progress(models.StatusScanning, 0, 0, "Collected %d following accounts...", n)
	})
	if err != nil {
		return nil, fmt.Errorf("collect following: %w", err)
	}
	r.log.InfoWithFields("Following list collected", map[string]interface{}{"count": len(users)})
	return users, nil
}

func (r *run) collectFollowers(ctx context.Context, drv platform.Driver, username string, total int) (map[string]struct{}, error) {
	c, err := drv.Followers(ctx, username)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return map[string]struct{}{}, nil
	}
	r.progress(models.StatusScanning, 0, total, "Collecting followers...")
	users, err := c.Collect(ctx, r.sess, 0, func(n int) {
		r.progress(models.StatusScanning, 0, total, "Collected %d followers...", n)
	})
	if err != nil {
		return nil, fmt.Errorf("collect followers: %w", err)
	}
	r.log.InfoWithFields("Followers collected", map[string]interface{}{"count": len(users)})
	return reconcile.FollowerSet(users), nil
}

func (r *run) finish(res reconcile.Result) session.Result {
	sess := r.sess
	found := len(res.Accounts)
	stopped := res.Stopped || sess.Stopped()
	logger.LogScanComplete(r.log, string(sess.Platform), res.Evaluated, found, stopped)

	if stopped {
		r.progress(models.StatusCompleted, res.Evaluated, 0, "Scan stopped (%d found)", found)
		if found > 0 {
			r.o.publish.Publish(messages.ScanComplete{Platform: sess.Platform, Accounts: res.Accounts, Partial: true})
		}
		return session.Result{Outcome: session.OutcomeStopped, Evaluated: res.Evaluated, Accounts: res.Accounts}
	}

	r.progress(models.StatusCompleted, res.Evaluated, res.Evaluated, "Scan complete: %d accounts found", found)
	r.o.publish.Publish(messages.ScanComplete{Platform: sess.Platform, Accounts: res.Accounts})
	return session.Result{Outcome: session.OutcomeCompleted, Evaluated: res.Evaluated, Accounts: res.Accounts}
}

func (r *run) fail(err error) session.Result {
	msg := errors.UserMessage(err)
	r.log.WithError(err).Error("Scan failed")
	r.progress(models.StatusError, 0, 0, "%s", msg)
	r.o.publish.Publish(messages.ScanError{Platform: r.sess.Platform, Error: msg})
	return session.Result{Outcome: session.OutcomeFailed, Err: err}
}

// ExcludeSelf drops the scanning user from a following list
func ExcludeSelf(users []models.BasicUserInfo, self string) []models.BasicUserInfo {
	out := make([]models.BasicUserInfo, 0, len(users))
	for _, u := range users {
		if !strings.EqualFold(u.Username, self) {
			out = append(out, u)
		}
	}
	return out
}

// Window returns the [StartIndex, StartIndex+Limit) slice of users
func Window(users []models.BasicUserInfo, opts models.ScanOptions) []models.BasicUserInfo {
	opts = opts.Normalize()
	if opts.StartIndex >= len(users) {
		return []models.BasicUserInfo{}
	}
	end := opts.WindowEnd()
	if end > len(users) {
		end = len(users)
	}
	return users[opts.StartIndex:end]
}

func windowLabel(opts models.ScanOptions, n int) string {
	if n == 0 {
		return "none"
	}
	return fmt.Sprintf("%d-%d", opts.StartIndex+1, opts.StartIndex+n)
}

// needsFollowers reports whether any candidate lacks a follow-back badge
func needsFollowers(users []models.BasicUserInfo) bool {
	for _, u := range users {
		if u.FollowsYou == nil {
			return true
		}
	}
	return false
}
