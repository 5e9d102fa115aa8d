// Package control runs the external loop that keeps step timers ticking.
//
// A step timer is not safe for concurrent use, so everything that touches one after Start goes
// through the loop goroutine: the periodic Tick and any request submitted with Do.
package control

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/clayextruder/stepdriver/logging"
	"github.com/clayextruder/stepdriver/utils"
)

var (
	// ErrNotRunning is returned by Do when the loop has not been started or has stopped.
	ErrNotRunning = errors.New("control loop is not running")
	// ErrAlreadyRunning is returned by Start on a running loop.
	ErrAlreadyRunning = errors.New("control loop is already running")
)

// Ticker is polled once per cycle. *steptimer.StepTimer implements it.
type Ticker interface {
	Name() string
	Tick(ctx context.Context) (uint32, error)
}

// Stats are counters kept by the loop.
type Stats struct {
	Cycles     uint64
	Requests   uint64
	TickErrors uint64
}

type request struct {
	fn     func(context.Context) error
	result chan error
}

// Loop ticks a fixed set of timers on a period and serializes requests onto its goroutine.
type Loop struct {
	clk     clock.Clock
	period  time.Duration
	logger  logging.Logger
	tickers []Ticker

	requests chan request
	limiter  *rate.Limiter

	mu      sync.Mutex
	workers utils.StoppableWorkers
	done    chan struct{}
	stats   Stats
}

// NewLoop returns a loop that polls tickers every period. A nil clk uses the wall clock.
func NewLoop(clk clock.Clock, period time.Duration, logger logging.Logger, tickers ...Ticker) (*Loop, error) {
	if period <= 0 {
		return nil, errors.Errorf("loop period must be positive, got %v", period)
	}
	if len(tickers) == 0 {
		return nil, errors.New("cannot run a control loop without timers")
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Loop{
		clk:      clk,
		period:   period,
		logger:   logger,
		tickers:  tickers,
		requests: make(chan request),
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
	}, nil
}

// Start runs the loop in the background until ctx is done or Stop is called.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil {
		select {
		case <-l.done:
		default:
			return ErrAlreadyRunning
		}
	}

	done := make(chan struct{})
	l.done = done
	l.logger.Debugw("starting control loop", "period", l.period, "timers", len(l.tickers))
	l.workers = utils.NewStoppableWorkers(func(workerCtx context.Context) {
		defer close(done)
		l.run(ctx, workerCtx)
	})
	return nil
}

// Stop stops the loop and waits for it to exit. A request in flight finishes first.
func (l *Loop) Stop() {
	l.mu.Lock()
	workers := l.workers
	l.workers = nil
	l.mu.Unlock()
	if workers == nil {
		return
	}
	l.logger.Debugw("closing control loop")
	workers.Stop()
}

// Do runs fn on the loop goroutine, between ticks, and returns its error. It returns
// ErrNotRunning if the loop stops before fn is picked up, and ctx.Err() if ctx is done first.
func (l *Loop) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done == nil {
		return ErrNotRunning
	}

	req := request{fn: fn, result: make(chan error, 1)}
	select {
	case l.requests <- req:
	case <-done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	// The loop always answers a request it received.
	return <-req.result
}

// Stats returns a snapshot of the loop counters.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Loop) run(ctx, workerCtx context.Context) {
	ticker := l.clk.Ticker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-workerCtx.Done():
			return
		case req := <-l.requests:
			l.serve(workerCtx, req)
		case <-ticker.C:
			l.drain(workerCtx)
			l.tick(workerCtx)
		}
	}
}

// drain serves every request already waiting so they all land before the next tick.
func (l *Loop) drain(ctx context.Context) {
	for {
		select {
		case req := <-l.requests:
			l.serve(ctx, req)
		default:
			return
		}
	}
}

func (l *Loop) serve(ctx context.Context, req request) {
	err := req.fn(ctx)
	l.mu.Lock()
	l.stats.Requests++
	l.mu.Unlock()
	req.result <- err
}

func (l *Loop) tick(ctx context.Context) {
	var failed uint64
	for _, t := range l.tickers {
		if _, err := t.Tick(ctx); err != nil {
			failed++
			if l.limiter.Allow() {
				l.logger.Warnw("tick failed", "axis", t.Name(), "error", err)
			}
		}
	}
	l.mu.Lock()
	l.stats.Cycles++
	l.stats.TickErrors += failed
	l.mu.Unlock()
}
