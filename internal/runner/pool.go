// Package runner scans several platforms concurrently, one session per platform.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"followscan/pkg/logger"
	"followscan/pkg/ratelimit"
	"followscan/pkg/scan"
	"followscan/pkg/session"
)

// Scanner runs one scan to completion
type Scanner interface {
	Run(ctx context.Context, req scan.Request) (*session.Session, error)
}

// Job is a scan request queued on the pool
type Job struct {
	Request scan.Request
}

// Result is how a job ended. Err is set when the scan could not start;
// scan failures are reported through Session.Result().
type Result struct {
	Job      Job
	Session  *session.Session
	Err      error
	Duration time.Duration
}

// Outcome is the session outcome, or failed when the job never ran
func (r Result) Outcome() session.Outcome {
	if r.Err != nil || r.Session == nil {
		return session.OutcomeFailed
	}
	return r.Session.Result().Outcome
}

// Pool runs scan jobs on a fixed number of workers
type Pool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	scanner     Scanner
	limiter     ratelimit.Limiter
	logger      logger.Logger

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool. limiter may be nil; when set it gates the start of every scan.
func NewPool(ctx context.Context, numWorkers int, scanner Scanner, limiter ratelimit.Limiter, log logger.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers*2),
		ctx:         ctx,
		cancel:      cancel,
		scanner:     scanner,
		limiter:     limiter,
		logger:      logger.OrGlobal(log).WithField("component", "runner"),
	}
}

// Start launches the workers
func (p *Pool) Start() {
	p.logger.InfoWithFields("Starting scan workers", map[string]interface{}{
		"num_workers": p.numWorkers,
	})
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop waits for queued jobs to finish and closes the result channel
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobQueue)
	p.mu.Unlock()

	p.wg.Wait()
	close(p.resultQueue)
	p.cancel()
	p.logger.Info("Scan workers stopped")
}

// Cancel aborts waiting jobs; running scans see a cancelled context
func (p *Pool) Cancel() {
	p.cancel()
}

// Submit queues a job
func (p *Pool) Submit(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("scan pool is stopped")
	}
	select {
	case p.jobQueue <- job:
		p.logger.DebugWithFields("Scan queued", map[string]interface{}{
			"platform": string(job.Request.Platform),
		})
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("scan pool is shutting down")
	}
}

// Results returns the channel results are delivered on
func (p *Pool) Results() <-chan Result {
	return p.resultQueue
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		result := p.process(job, id)
		// results are always delivered so Stop never loses one
		p.resultQueue <- result
	}
}

func (p *Pool) process(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}
	log := p.logger.WithFields(map[string]interface{}{
		"worker_id": workerID,
		"platform":  string(job.Request.Platform),
	})

	if err := p.ctx.Err(); err != nil {
		result.Err = err
		return result
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(p.ctx); err != nil {
			result.Err = err
			return result
		}
	}

	log.Debug("Worker starting scan")
	sess, err := p.scanner.Run(p.ctx, job.Request)
	result.Session = sess
	result.Err = err
	result.Duration = time.Since(start)

	if err != nil {
		log.WithError(err).Warn("Scan could not start")
	} else {
		log.DebugWithFields("Worker finished scan", map[string]interface{}{
			"outcome":  string(sess.Result().Outcome),
			"duration": result.Duration,
		})
	}
	return result
}

// RunAll scans every request and returns the results in request order
func RunAll(ctx context.Context, numWorkers int, scanner Scanner, reqs []scan.Request, log logger.Logger) []Result {
	pool := NewPool(ctx, numWorkers, scanner, nil, log)
	pool.Start()

	go func() {
		for _, req := range reqs {
			if err := pool.Submit(Job{Request: req}); err != nil {
				break
			}
		}
		pool.Stop()
	}()

	byPlatform := make(map[string]Result, len(reqs))
	for res := range pool.Results() {
		byPlatform[string(res.Job.Request.Platform)] = res
	}

	out := make([]Result, 0, len(reqs))
	for _, req := range reqs {
		res, ok := byPlatform[string(req.Platform)]
		if !ok {
			res = Result{Job: Job{Request: req}, Err: fmt.Errorf("%s scan was not run", req.Platform)}
		}
		out = append(out, res)
	}
	return out
}
