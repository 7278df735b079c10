package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"followscan/pkg/logger"
	"followscan/pkg/models"
	"followscan/pkg/scan"
	"followscan/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScanner struct {
	mu      sync.Mutex
	running int32
	peak    int32
	delay   time.Duration
	fail    map[models.Platform]error
	outcome session.Outcome
}

func (f *fakeScanner) Run(ctx context.Context, req scan.Request) (*session.Session, error) {
	f.mu.Lock()
	err := f.fail[req.Platform]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	n := atomic.AddInt32(&f.running, 1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, n) {
			break
		}
	}
	defer atomic.AddInt32(&f.running, -1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	sess := session.New(req.Platform, req.Options)
	outcome := f.outcome
	if outcome == "" {
		outcome = session.OutcomeCompleted
	}
	sess.Finish(session.Result{Outcome: outcome, Evaluated: 3})
	return sess, nil
}

func requests(ps ...models.Platform) []scan.Request {
	reqs := make([]scan.Request, len(ps))
	for i, p := range ps {
		reqs[i] = scan.Request{Platform: p, Options: models.DefaultScanOptions()}
	}
	return reqs
}

func TestRunAllKeepsRequestOrder(t *testing.T) {
	scanner := &fakeScanner{fail: map[models.Platform]error{models.PlatformTwitter: scan.ErrAlreadyRunning}}
	results := RunAll(context.Background(), 3, scanner,
		requests(models.PlatformThreads, models.PlatformTwitter, models.PlatformInstagram), logger.NewNopLogger())

	require.Len(t, results, 3)
	assert.Equal(t, models.PlatformThreads, results[0].Job.Request.Platform)
	assert.Equal(t, session.OutcomeCompleted, results[0].Outcome())
	assert.True(t, errors.Is(results[1].Err, scan.ErrAlreadyRunning))
	assert.Equal(t, session.OutcomeFailed, results[1].Outcome())
	assert.Equal(t, models.PlatformInstagram, results[2].Session.Platform)
}

func TestPoolRunsConcurrently(t *testing.T) {
	scanner := &fakeScanner{delay: 50 * time.Millisecond}
	results := RunAll(context.Background(), 3, scanner,
		requests(models.PlatformInstagram, models.PlatformTwitter, models.PlatformThreads), logger.NewNopLogger())

	for _, r := range results {
		assert.NoError(t, r.Err)
	}
	assert.Greater(t, atomic.LoadInt32(&scanner.peak), int32(1))
}

func TestPoolSingleWorkerIsSequential(t *testing.T) {
	scanner := &fakeScanner{delay: 10 * time.Millisecond}
	RunAll(context.Background(), 1, scanner,
		requests(models.PlatformInstagram, models.PlatformTwitter, models.PlatformThreads), logger.NewNopLogger())

	assert.Equal(t, int32(1), atomic.LoadInt32(&scanner.peak))
}

func TestCancelledPoolSkipsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := RunAll(ctx, 2, &fakeScanner{}, requests(models.PlatformInstagram, models.PlatformThreads), logger.NewNopLogger())
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Error(t, r.Err)
		assert.Nil(t, r.Session)
	}
}

type countingLimiter struct {
	waits int32
}

func (c *countingLimiter) Allow() bool { return true }

func (c *countingLimiter) Wait(ctx context.Context) error {
	atomic.AddInt32(&c.waits, 1)
	return ctx.Err()
}

func (c *countingLimiter) Reset() {}

func TestPoolUsesLimiter(t *testing.T) {
	limiter := &countingLimiter{}
	pool := NewPool(context.Background(), 2, &fakeScanner{outcome: session.OutcomeStopped}, limiter, logger.NewNopLogger())
	pool.Start()

	for _, req := range requests(models.PlatformInstagram, models.PlatformTwitter) {
		require.NoError(t, pool.Submit(Job{Request: req}))
	}
	pool.Stop()

	var outcomes []session.Outcome
	for r := range pool.Results() {
		outcomes = append(outcomes, r.Outcome())
	}
	assert.Equal(t, []session.Outcome{session.OutcomeStopped, session.OutcomeStopped}, outcomes)
	assert.Equal(t, int32(2), atomic.LoadInt32(&limiter.waits))

	assert.Error(t, pool.Submit(Job{}), "a stopped pool rejects jobs")
}
