// Package timer implements the background pacer that drives teleprompter
// playback: a fast scroll tick and a slower idle check, both running only
// while playback is armed.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/pocketprompter/internal/domain"
	"github.com/hammamikhairi/pocketprompter/internal/logger"
)

// Compile-time interface check.
var _ domain.Pacer = (*Pacer)(nil)

// Default cadences.
const (
	DefaultScrollInterval = 50 * time.Millisecond
	DefaultIdleInterval   = 100 * time.Millisecond
)

// Target receives the pacer's periodic messages. Every message carries
// the epoch it was armed with so the receiver can drop stale ones.
type Target interface {
	Tick(epoch uint64)
	CheckIdle(epoch uint64, now time.Time)
}

// Option configures the pacer.
type Option func(*Pacer)

// WithScrollInterval sets how often the scroll tick fires.
func WithScrollInterval(d time.Duration) Option {
	return func(p *Pacer) {
		if d > 0 {
			p.scrollInterval = d
		}
	}
}

// WithIdleInterval sets how often the idle deadline is checked.
func WithIdleInterval(d time.Duration) Option {
	return func(p *Pacer) {
		if d > 0 {
			p.idleInterval = d
		}
	}
}

// WithClock replaces time.Now for the timestamps passed to CheckIdle.
func WithClock(now func() time.Time) Option {
	return func(p *Pacer) { p.now = now }
}

// Pacer runs the two playback timers in a single background goroutine.
type Pacer struct {
	log            *logger.Logger
	scrollInterval time.Duration
	idleInterval   time.Duration
	now            func() time.Time

	mu     sync.Mutex
	target Target
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a disarmed pacer. Bind must be called before Arm.
func New(log *logger.Logger, opts ...Option) *Pacer {
	p := &Pacer{
		log:            log,
		scrollInterval: DefaultScrollInterval,
		idleInterval:   DefaultIdleInterval,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Bind sets the receiver of tick and idle messages.
func (p *Pacer) Bind(t Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target = t
}

// Arm starts both timers for epoch. Arming an armed pacer restarts it
// under the new epoch. Non-blocking.
func (p *Pacer) Arm(epoch uint64) {
	p.Disarm()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.target == nil {
		p.log.Warn("pacer: armed without a target")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go p.loop(ctx, done, p.target, epoch)

	p.log.Debug("pacer armed (epoch=%d, scroll=%s, idle=%s)", epoch, p.scrollInterval, p.idleInterval)
}

// Disarm stops both timers and waits for the loop to exit, so no message
// is delivered after it returns. Safe to call when not armed.
func (p *Pacer) Disarm() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.log.Debug("pacer disarmed")
}

// Armed reports whether the loop is running.
func (p *Pacer) Armed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// loop delivers messages until ctx is cancelled. The two tickers are
// independent; their relative order is not significant.
func (p *Pacer) loop(ctx context.Context, done chan<- struct{}, target Target, epoch uint64) {
	defer close(done)

	scroll := time.NewTicker(p.scrollInterval)
	defer scroll.Stop()
	idle := time.NewTicker(p.idleInterval)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-scroll.C:
			if ctx.Err() != nil {
				return
			}
			target.Tick(epoch)
		case <-idle.C:
			if ctx.Err() != nil {
				return
			}
			target.CheckIdle(epoch, p.now())
		}
	}
}
