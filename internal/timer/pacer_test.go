package timer

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/hammamikhairi/pocketprompter/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder counts the messages it receives, per epoch.
type recorder struct {
	mu     sync.Mutex
	ticks  map[uint64]int
	checks map[uint64]int
}

func newRecorder() *recorder {
	return &recorder{ticks: map[uint64]int{}, checks: map[uint64]int{}}
}

func (r *recorder) Tick(epoch uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks[epoch]++
}

func (r *recorder) CheckIdle(epoch uint64, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[epoch]++
}

func (r *recorder) counts(epoch uint64) (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks[epoch], r.checks[epoch]
}

func newPacer() *Pacer {
	return New(logger.New(logger.LevelOff, nil),
		WithScrollInterval(5*time.Millisecond),
		WithIdleInterval(10*time.Millisecond),
	)
}

func TestPacerDeliversBothMessages(t *testing.T) {
	rec := newRecorder()
	p := newPacer()
	p.Bind(rec)

	p.Arm(1)
	time.Sleep(100 * time.Millisecond)
	p.Disarm()

	ticks, checks := rec.counts(1)
	if ticks == 0 {
		t.Fatal("expected scroll ticks while armed")
	}
	if checks == 0 {
		t.Fatal("expected idle checks while armed")
	}
}

func TestPacerNothingAfterDisarm(t *testing.T) {
	rec := newRecorder()
	p := newPacer()
	p.Bind(rec)

	p.Arm(1)
	time.Sleep(30 * time.Millisecond)
	p.Disarm()

	ticks, checks := rec.counts(1)
	time.Sleep(50 * time.Millisecond)
	ticks2, checks2 := rec.counts(1)

	if ticks2 != ticks || checks2 != checks {
		t.Fatalf("messages after Disarm: ticks %d->%d, checks %d->%d", ticks, ticks2, checks, checks2)
	}
	if p.Armed() {
		t.Fatal("expected pacer disarmed")
	}
}

func TestPacerRearmSwitchesEpoch(t *testing.T) {
	rec := newRecorder()
	p := newPacer()
	p.Bind(rec)

	p.Arm(1)
	time.Sleep(20 * time.Millisecond)
	p.Arm(2)
	before, _ := rec.counts(1)
	time.Sleep(40 * time.Millisecond)
	p.Disarm()

	after, _ := rec.counts(1)
	if after != before {
		t.Fatalf("epoch 1 kept ticking after re-arm: %d -> %d", before, after)
	}
	if n, _ := rec.counts(2); n == 0 {
		t.Fatal("expected ticks for epoch 2")
	}
}

func TestPacerDisarmIdempotent(t *testing.T) {
	p := newPacer()
	p.Disarm()
	p.Bind(newRecorder())
	p.Arm(3)
	p.Disarm()
	p.Disarm()
}

func TestPacerArmWithoutTarget(t *testing.T) {
	p := newPacer()
	p.Arm(1)
	if p.Armed() {
		t.Fatal("pacer should refuse to arm without a target")
	}
}
