package drone

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/teslashibe/go-tello/internal/log"
)

// Patrol steps, repeated until stopped.
const (
	patrolUp = iota + 1
	patrolTurn
	patrolDown
	patrolRest
)

// patrol runs the fixed up, turn, down, rest cycle in a goroutine. The
// permit keeps a second routine from flying at the same time.
type patrol struct {
	sem   *semaphore.Weighted
	step  func(ctx context.Context, n int)
	dwell time.Duration

	stopInterval time.Duration
	stopRetries  int

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	done   chan struct{}
}

func newPatrol(step func(ctx context.Context, n int), dwell, stopInterval time.Duration, stopRetries int) *patrol {
	return &patrol{
		sem:          semaphore.NewWeighted(1),
		step:         step,
		dwell:        dwell,
		stopInterval: stopInterval,
		stopRetries:  stopRetries,
	}
}

// Start launches the routine unless one is already active.
func (p *patrol) Start(parent context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.active = true
	go p.run(ctx, p.done)
}

// Stop cancels the routine and waits for it, bounded by the stop budget.
// Calling Stop when no patrol is active does nothing.
func (p *patrol) Stop() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.cancel()
	done := p.done
	p.mu.Unlock()

	if !waitDone(done, p.stopInterval, p.stopRetries) {
		log.Warn("patrol did not stop in time")
	}

	p.mu.Lock()
	if p.done == done {
		p.active = false
	}
	p.mu.Unlock()
}

// Active reports whether a patrol has been started and not stopped.
func (p *patrol) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *patrol) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	if !p.sem.TryAcquire(1) {
		log.Warn("patrol", "status", "not_acquired")
		return
	}
	defer p.sem.Release(1)
	log.Info("patrol", "status", "acquired")

	status := 0
	for ctx.Err() == nil {
		status++
		p.step(ctx, status)
		if status == patrolRest {
			status = 0
		}

		select {
		case <-ctx.Done():
		case <-time.After(p.dwell):
		}
	}
	log.Info("patrol", "status", "stopped")
}

// waitDone polls done every interval, at most retries times.
func waitDone(done <-chan struct{}, interval time.Duration, retries int) bool {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range retries {
		select {
		case <-done:
			return true
		case <-ticker.C:
		}
	}
	select {
	case <-done:
		return true
	default:
		return false
	}
}
