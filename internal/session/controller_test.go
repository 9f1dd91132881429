package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/hammamikhairi/pocketprompter/internal/domain"
	"github.com/hammamikhairi/pocketprompter/internal/logger"
	"github.com/hammamikhairi/pocketprompter/internal/playback"
	"github.com/hammamikhairi/pocketprompter/internal/timer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	return f.now
}

// fakePacer records arm/disarm calls instead of running timers.
type fakePacer struct {
	mu       sync.Mutex
	armed    bool
	epochs   []uint64
	disarmed int
}

func (p *fakePacer) Arm(epoch uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armed = true
	p.epochs = append(p.epochs, epoch)
}

func (p *fakePacer) Disarm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armed = false
	p.disarmed++
}

// gatedRewriter blocks each call until release is closed.
type gatedRewriter struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
	result  domain.RewriteResult
	err     error
}

func newGatedRewriter(res domain.RewriteResult, err error) *gatedRewriter {
	return &gatedRewriter{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
		result:  res,
		err:     err,
	}
}

func (g *gatedRewriter) Rewrite(ctx context.Context, script string, tone domain.Tone) (domain.RewriteResult, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	g.started <- struct{}{}
	<-g.release
	res := g.result
	res.Tone = tone
	return res, g.err
}

func (g *gatedRewriter) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func setupController(t *testing.T, rw domain.Rewriter, opts ...Option) (*Controller, *fakeClock, *fakePacer) {
	t.Helper()
	clock := newFakeClock()
	pacer := &fakePacer{}
	log := logger.New(logger.LevelOff, nil)
	all := append([]Option{WithClock(clock.Now), WithPacer(pacer)}, opts...)
	c := New(rw, log, all...)
	t.Cleanup(c.Close)
	return c, clock, pacer
}

func waitOutcome(t *testing.T, ch <-chan RewriteOutcome) RewriteOutcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for rewrite outcome")
		return RewriteOutcome{}
	}
}

func TestInitialState(t *testing.T) {
	c, _, _ := setupController(t, nil)
	s := c.Snapshot()

	if s.Mode != domain.ModeEditing {
		t.Fatalf("expected editing, got %s", s.Mode)
	}
	if s.Playback.Active || s.Playback.Speed != playback.DefaultSpeed || s.Playback.FontSizePx != playback.DefaultFontSize {
		t.Fatalf("unexpected initial playback state: %+v", s.Playback)
	}
	if !s.Controls.Visible {
		t.Fatal("expected controls visible initially")
	}
}

func TestStartPlaybackRequiresScript(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"empty", ""},
		{"spaces", "    "},
		{"newlines and tabs", "\n\t \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, pacer := setupController(t, nil, WithScript(tt.script))

			err := c.StartPlayback()
			if !errors.Is(err, domain.ErrEmptyScript) {
				t.Fatalf("expected ErrEmptyScript, got %v", err)
			}
			if c.Mode() != domain.ModeEditing {
				t.Fatalf("expected still editing, got %s", c.Mode())
			}
			if len(pacer.epochs) != 0 {
				t.Fatal("pacer armed despite failed start")
			}
		})
	}
}

func TestStartPlayback(t *testing.T) {
	c, clock, pacer := setupController(t, nil, WithScript("Hello world"))

	if err := c.StartPlayback(); err != nil {
		t.Fatalf("start: %v", err)
	}

	s := c.Snapshot()
	if s.Mode != domain.ModePlaying || !s.Playback.Active {
		t.Fatalf("expected playing+active, got %s active=%v", s.Mode, s.Playback.Active)
	}
	if s.Playback.ScrollOffset != 0 {
		t.Fatalf("expected offset 0, got %v", s.Playback.ScrollOffset)
	}
	if !s.Controls.Visible {
		t.Fatal("expected controls visible on entering playback")
	}
	if want := clock.Now().Add(3 * time.Second); !s.Controls.IdleDeadline.Equal(want) {
		t.Fatalf("expected deadline %s, got %s", want, s.Controls.IdleDeadline)
	}
	if !pacer.armed || len(pacer.epochs) != 1 || pacer.epochs[0] != c.Epoch() {
		t.Fatalf("expected pacer armed with current epoch, got %+v", pacer.epochs)
	}

	if err := c.StartPlayback(); !errors.Is(err, domain.ErrWrongMode) {
		t.Fatalf("expected ErrWrongMode on double start, got %v", err)
	}
}

func TestTickArithmetic(t *testing.T) {
	for speed := 0; speed <= 10; speed++ {
		c, _, _ := setupController(t, nil, WithScript("line"))
		c.SetSpeed(speed)
		if err := c.StartPlayback(); err != nil {
			t.Fatalf("start: %v", err)
		}
		epoch := c.Epoch()

		const n = 25
		for i := 0; i < n; i++ {
			c.Tick(epoch)
		}

		want := float64(n) * float64(speed) * 0.5
		if got := c.Snapshot().Playback.ScrollOffset; got != want {
			t.Fatalf("speed %d: expected %v, got %v", speed, want, got)
		}
	}
}

func TestRestartResetsOffset(t *testing.T) {
	c, _, _ := setupController(t, nil, WithScript("line"))
	c.SetFontSize(64)
	c.SetMirrored(true)

	c.StartPlayback()
	c.Tick(c.Epoch())
	c.StopPlayback()
	c.StartPlayback()

	s := c.Snapshot()
	if s.Playback.ScrollOffset != 0 {
		t.Fatalf("expected offset reset, got %v", s.Playback.ScrollOffset)
	}
	if s.Playback.FontSizePx != 64 || !s.Playback.Mirrored {
		t.Fatalf("settings lost across restart: %+v", s.Playback)
	}
}

func TestStopPlayback(t *testing.T) {
	c, clock, pacer := setupController(t, nil, WithScript("Hello"))

	if err := c.StopPlayback(); !errors.Is(err, domain.ErrWrongMode) {
		t.Fatalf("expected ErrWrongMode when editing, got %v", err)
	}

	c.StartPlayback()
	epoch := c.Epoch()
	c.CheckIdle(epoch, clock.Advance(5*time.Second))
	if c.Snapshot().Controls.Visible {
		t.Fatal("precondition: controls should be hidden")
	}

	if err := c.StopPlayback(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	s := c.Snapshot()
	if s.Mode != domain.ModeEditing || s.Playback.Active {
		t.Fatalf("expected editing+inactive, got %s active=%v", s.Mode, s.Playback.Active)
	}
	if !s.Controls.Visible || !s.Controls.IdleDeadline.IsZero() {
		t.Fatalf("expected visible controls with no deadline, got %+v", s.Controls)
	}
	if pacer.armed || pacer.disarmed != 1 {
		t.Fatalf("expected pacer disarmed once, armed=%v disarmed=%d", pacer.armed, pacer.disarmed)
	}
}

func TestNoMutationAfterStop(t *testing.T) {
	c, clock, _ := setupController(t, nil, WithScript("Hello"))

	c.StartPlayback()
	staleEpoch := c.Epoch()
	c.Tick(staleEpoch)
	c.StopPlayback()
	before := c.Snapshot()

	// Messages that were already in flight when playback stopped.
	c.Tick(staleEpoch)
	c.CheckIdle(staleEpoch, clock.Advance(time.Hour))
	c.Interact()

	if after := c.Snapshot(); after != before {
		t.Fatalf("state mutated after stop:\nbefore %+v\nafter  %+v", before, after)
	}

	// A new playback ignores messages from the old one.
	c.StartPlayback()
	c.Tick(staleEpoch)
	if got := c.Snapshot().Playback.ScrollOffset; got != 0 {
		t.Fatalf("stale tick advanced new playback to %v", got)
	}
}

func TestNoMutationAfterStopWithRealPacer(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	pacer := timer.New(log,
		timer.WithScrollInterval(2*time.Millisecond),
		timer.WithIdleInterval(3*time.Millisecond),
	)
	c := New(nil, log, WithPacer(pacer), WithScript("Hello world"), WithIdleTimeout(5*time.Millisecond))
	pacer.Bind(c)
	defer c.Close()

	if err := c.StartPlayback(); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	mid := c.Snapshot()
	if mid.Playback.ScrollOffset == 0 {
		t.Fatal("expected the pacer to scroll while playing")
	}
	if mid.Controls.Visible {
		t.Fatal("expected the pacer to hide idle controls")
	}

	if err := c.StopPlayback(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	before := c.Snapshot()
	time.Sleep(30 * time.Millisecond)
	if after := c.Snapshot(); after != before {
		t.Fatalf("state mutated after stop:\nbefore %+v\nafter  %+v", before, after)
	}
	if pacer.Armed() {
		t.Fatal("pacer still armed after stop")
	}
}

func TestEditScript(t *testing.T) {
	c, _, _ := setupController(t, nil)

	if err := c.EditScript("draft one"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if c.Script() != "draft one" {
		t.Fatalf("expected script replaced, got %q", c.Script())
	}

	c.StartPlayback()
	if err := c.EditScript("changed"); !errors.Is(err, domain.ErrWrongMode) {
		t.Fatalf("expected ErrWrongMode while playing, got %v", err)
	}
	if c.Script() != "draft one" {
		t.Fatalf("script changed during playback: %q", c.Script())
	}
}
