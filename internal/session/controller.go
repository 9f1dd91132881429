// Package session implements the teleprompter session controller: the
// two-mode (editing / playing) state machine that owns the script, gates
// playback, and routes rewrite requests to the writer.
//
// Every trigger (user action, scroll tick, idle check, rewrite completion)
// is applied under a single mutex, so presentation layers may call in from
// any goroutine. Timer messages carry the epoch they were armed with;
// leaving playback bumps the epoch so a late message is a no-op.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/pocketprompter/internal/controls"
	"github.com/hammamikhairi/pocketprompter/internal/domain"
	"github.com/hammamikhairi/pocketprompter/internal/logger"
	"github.com/hammamikhairi/pocketprompter/internal/playback"
)

// Option configures the controller.
type Option func(*Controller)

// WithPacer sets the timer driver armed on StartPlayback. Without one the
// owner must deliver Tick and CheckIdle itself.
func WithPacer(p domain.Pacer) Option {
	return func(c *Controller) { c.pacer = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIdleTimeout sets how long controls stay visible after an interaction.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Controller) { c.controls = controls.New(d) }
}

// WithPlayback passes options to the playback engine (initial speed, font, mirror).
func WithPlayback(opts ...playback.Option) Option {
	return func(c *Controller) { c.playback = playback.New(opts...) }
}

// WithScript seeds the initial script.
func WithScript(text string) Option {
	return func(c *Controller) { c.script = text }
}

// RewriteOutcome is delivered once per accepted rewrite request.
type RewriteOutcome struct {
	Result domain.RewriteResult
	Err    error
}

// Controller is the session state machine.
type Controller struct {
	rewriter domain.Rewriter
	pacer    domain.Pacer
	log      *logger.Logger
	now      func() time.Time

	// lifecycle serialises StartPlayback/StopPlayback so pacer arm and
	// disarm calls happen in the same order as the mode changes. It is
	// never taken by timer callbacks.
	lifecycle sync.Mutex

	mu          sync.Mutex
	mode        domain.Mode
	script      string
	playback    *playback.Engine
	controls    *controls.Visibility
	epoch       uint64
	rewriting   bool
	rewriteTone domain.Tone

	inflight sync.WaitGroup

	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// New creates a controller in Editing mode with an empty script.
func New(rewriter domain.Rewriter, log *logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		rewriter: rewriter,
		log:      log,
		now:      time.Now,
		mode:     domain.ModeEditing,
		playback: playback.New(),
		controls: controls.New(controls.DefaultIdleTimeout),
		subs:     make(map[int]chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Snapshot returns a copy of the state a presentation layer renders.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Snapshot{
		Mode:        c.mode,
		Script:      c.script,
		Playback:    c.playback.State(),
		Controls:    c.controls.State(),
		Rewriting:   c.rewriting,
		RewriteTone: c.rewriteTone,
	}
}

// Mode returns the current mode.
func (c *Controller) Mode() domain.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Script returns the current script.
func (c *Controller) Script() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.script
}

// ── Transitions ──────────────────────────────────────────────────

// StartPlayback enters Playing from the top of the script, shows the
// controls and arms the idle deadline and the pacer.
func (c *Controller) StartPlayback() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.mode != domain.ModeEditing {
		c.mu.Unlock()
		return domain.ErrWrongMode
	}
	if domain.IsBlank(c.script) {
		c.mu.Unlock()
		return domain.ErrEmptyScript
	}
	c.mode = domain.ModePlaying
	c.playback.Start()
	c.controls.Show(c.now())
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()

	if c.pacer != nil {
		c.pacer.Arm(epoch)
	}
	c.log.Info("playback started (epoch=%d)", epoch)
	c.notify()
	return nil
}

// StopPlayback returns to Editing. Both timers are stopped before it
// returns and any message they had in flight is discarded.
func (c *Controller) StopPlayback() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.mode != domain.ModePlaying {
		c.mu.Unlock()
		return domain.ErrWrongMode
	}
	c.mode = domain.ModeEditing
	c.playback.Stop()
	c.controls.Reset()
	c.epoch++
	c.mu.Unlock()

	// Disarm waits for the pacer loop, which may be blocked on c.mu.
	if c.pacer != nil {
		c.pacer.Disarm()
	}
	c.log.Info("playback stopped")
	c.notify()
	return nil
}

// EditScript replaces the script. Only valid while Editing.
func (c *Controller) EditScript(text string) error {
	c.mu.Lock()
	if c.mode != domain.ModeEditing {
		c.mu.Unlock()
		return domain.ErrWrongMode
	}
	changed := c.script != text
	c.script = text
	c.mu.Unlock()

	if changed {
		c.notify()
	}
	return nil
}

// RequestRewrite sends the current script to the rewriter. Precondition
// failures are returned synchronously; an accepted request completes on
// the returned channel, which receives exactly one outcome and is then
// closed. While one request is in flight further ones fail with
// ErrRewriteBusy and are dropped.
//
// The call is not cancellable: ctx supplies values only, and cancelling it
// does not abort the request.
func (c *Controller) RequestRewrite(ctx context.Context, tone domain.Tone) (<-chan RewriteOutcome, error) {
	c.mu.Lock()
	if c.mode != domain.ModeEditing {
		c.mu.Unlock()
		return nil, domain.ErrWrongMode
	}
	if domain.IsBlank(c.script) {
		c.mu.Unlock()
		return nil, domain.ErrEmptyScript
	}
	if c.rewriting {
		busyTone := c.rewriteTone
		c.mu.Unlock()
		c.log.Debug("rewrite %s dropped: %s already in flight", tone, busyTone)
		return nil, domain.ErrRewriteBusy
	}
	c.rewriting = true
	c.rewriteTone = tone
	script := c.script
	c.inflight.Add(1)
	c.mu.Unlock()

	c.notify()

	out := make(chan RewriteOutcome, 1)
	go c.runRewrite(context.WithoutCancel(ctx), script, tone, out)
	return out, nil
}

func (c *Controller) runRewrite(ctx context.Context, script string, tone domain.Tone, out chan<- RewriteOutcome) {
	defer c.inflight.Done()
	defer close(out)

	res, err := c.rewriter.Rewrite(ctx, script, tone)

	c.mu.Lock()
	c.rewriting = false
	if err == nil && res.Success {
		if c.mode == domain.ModeEditing {
			c.script = res.Text
		} else {
			err = domain.ErrWrongMode
			res.Success = false
			res.Text = ""
			res.ErrorMessage = "playback started before the rewrite finished; result discarded"
		}
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("rewrite %s failed: %v", tone, err)
	} else {
		c.log.Info("rewrite %s applied", tone)
	}

	out <- RewriteOutcome{Result: res, Err: err}
	c.notify()
}

// Rewriting reports whether a rewrite is in flight and for which tone.
func (c *Controller) Rewriting() (domain.Tone, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rewriteTone, c.rewriting
}

// ── Playback settings ────────────────────────────────────────────

// SetSpeed sets the scroll speed (clamped to 0–10).
func (c *Controller) SetSpeed(v int) {
	c.mu.Lock()
	c.playback.SetSpeed(v)
	c.mu.Unlock()
	c.notify()
}

// AdjustSpeed changes the speed by delta and returns the new value.
func (c *Controller) AdjustSpeed(delta int) int {
	c.mu.Lock()
	c.playback.SetSpeed(c.playback.State().Speed + delta)
	v := c.playback.State().Speed
	c.mu.Unlock()
	c.notify()
	return v
}

// SetFontSize sets the font size in pixels (clamped to 20–100).
func (c *Controller) SetFontSize(px int) {
	c.mu.Lock()
	c.playback.SetFontSize(px)
	c.mu.Unlock()
	c.notify()
}

// AdjustFontSize changes the font size by delta and returns the new value.
func (c *Controller) AdjustFontSize(delta int) int {
	c.mu.Lock()
	c.playback.SetFontSize(c.playback.State().FontSizePx + delta)
	v := c.playback.State().FontSizePx
	c.mu.Unlock()
	c.notify()
	return v
}

// SetMirrored sets the mirrored-display flag.
func (c *Controller) SetMirrored(m bool) {
	c.mu.Lock()
	c.playback.SetMirrored(m)
	c.mu.Unlock()
	c.notify()
}

// ToggleMirrored flips the mirrored-display flag and returns the new value.
func (c *Controller) ToggleMirrored() bool {
	c.mu.Lock()
	m := c.playback.ToggleMirrored()
	c.mu.Unlock()
	c.notify()
	return m
}

// ── Timer and interaction messages ───────────────────────────────

// Tick advances the scroll position. Ignored unless Playing under epoch.
func (c *Controller) Tick(epoch uint64) {
	c.mu.Lock()
	if c.mode != domain.ModePlaying || epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	moved := c.playback.Tick()
	c.mu.Unlock()

	if moved {
		c.notify()
	}
}

// CheckIdle hides the controls once the idle deadline has passed.
// Ignored unless Playing under epoch.
func (c *Controller) CheckIdle(epoch uint64, now time.Time) {
	c.mu.Lock()
	if c.mode != domain.ModePlaying || epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	hid := c.controls.Expire(now)
	c.mu.Unlock()

	if hid {
		c.log.Debug("controls hidden after idle timeout")
		c.notify()
	}
}

// Interact records a pointer or touch signal: while Playing it shows the
// controls and restarts the idle deadline. It reports whether it had an
// effect.
func (c *Controller) Interact() bool {
	c.mu.Lock()
	if c.mode != domain.ModePlaying {
		c.mu.Unlock()
		return false
	}
	wasVisible := c.controls.State().Visible
	c.controls.Show(c.now())
	c.mu.Unlock()

	if !wasVisible {
		c.notify()
	}
	return true
}

// Epoch returns the current playback epoch.
func (c *Controller) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// ── Lifecycle ────────────────────────────────────────────────────

// Close stops playback if active and waits for an in-flight rewrite.
func (c *Controller) Close() {
	if err := c.StopPlayback(); err == nil {
		c.log.Debug("session closed during playback")
	}
	c.inflight.Wait()

	c.subMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subMu.Unlock()
}

// Subscribe returns a channel that receives a signal after state changes.
// Signals coalesce: a slow reader sees at least one pending signal, not
// one per change. The returned func unsubscribes.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan struct{}, 1)
	c.subs[id] = ch

	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if s, ok := c.subs[id]; ok {
			close(s)
			delete(c.subs, id)
		}
	}
}

func (c *Controller) notify() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
