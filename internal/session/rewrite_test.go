package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hammamikhairi/pocketprompter/internal/domain"
	"github.com/hammamikhairi/pocketprompter/internal/logger"
	"github.com/hammamikhairi/pocketprompter/internal/writer"
)

func TestRewriteSuccessReplacesScript(t *testing.T) {
	rw := newGatedRewriter(domain.RewriteResult{Success: true, Text: "Brand new script"}, nil)
	c, _, _ := setupController(t, rw, WithScript("old script"))

	done, err := c.RequestRewrite(context.Background(), domain.ToneProfessional)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	<-rw.started
	if tone, busy := c.Rewriting(); !busy || tone != domain.ToneProfessional {
		t.Fatalf("expected busy with professional, got busy=%v tone=%s", busy, tone)
	}
	close(rw.release)

	o := waitOutcome(t, done)
	if o.Err != nil || !o.Result.Success {
		t.Fatalf("expected success, got %+v", o)
	}
	if c.Script() != "Brand new script" {
		t.Fatalf("expected script replaced, got %q", c.Script())
	}
	if _, busy := c.Rewriting(); busy {
		t.Fatal("busy marker not cleared")
	}
}

func TestRewriteBusyGate(t *testing.T) {
	rw := newGatedRewriter(domain.RewriteResult{Success: true, Text: "first result"}, nil)
	c, _, _ := setupController(t, rw, WithScript("original"))

	done, err := c.RequestRewrite(context.Background(), domain.ToneCasual)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	<-rw.started

	_, err = c.RequestRewrite(context.Background(), domain.ToneControversial)
	if !errors.Is(err, domain.ErrRewriteBusy) {
		t.Fatalf("expected ErrRewriteBusy, got %v", err)
	}
	if c.Script() != "original" {
		t.Fatalf("busy request altered script: %q", c.Script())
	}

	close(rw.release)
	waitOutcome(t, done)

	if n := rw.callCount(); n != 1 {
		t.Fatalf("expected exactly one external call, got %d", n)
	}

	// The gate reopens after completion.
	done2, err := c.RequestRewrite(context.Background(), domain.ToneCasual)
	if err != nil {
		t.Fatalf("request after completion: %v", err)
	}
	waitOutcome(t, done2)
}

func TestRewriteFailureLeavesScript(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"upstream", &domain.UpstreamError{Op: "rewrite", Err: errors.New("503 overloaded")}},
		{"configuration", domain.ErrNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const script = "  Keep me\nexactly  as is \n"
			rw := newGatedRewriter(domain.RewriteResult{ErrorMessage: tt.err.Error()}, tt.err)
			close(rw.release)
			c, _, _ := setupController(t, rw, WithScript(script))

			done, err := c.RequestRewrite(context.Background(), domain.ToneCasual)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			o := waitOutcome(t, done)

			if !errors.Is(o.Err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, o.Err)
			}
			if o.Result.ErrorMessage == "" {
				t.Fatal("expected an error message for the user")
			}
			if c.Script() != script {
				t.Fatalf("script modified on failure: %q", c.Script())
			}
			if c.Mode() != domain.ModeEditing {
				t.Fatalf("expected editing after failure, got %s", c.Mode())
			}
		})
	}
}

func TestRewritePreconditions(t *testing.T) {
	rw := newGatedRewriter(domain.RewriteResult{Success: true, Text: "x"}, nil)
	close(rw.release)

	c, _, _ := setupController(t, rw, WithScript("   "))
	if _, err := c.RequestRewrite(context.Background(), domain.ToneCasual); !errors.Is(err, domain.ErrEmptyScript) {
		t.Fatalf("expected ErrEmptyScript, got %v", err)
	}

	c.EditScript("something")
	c.StartPlayback()
	if _, err := c.RequestRewrite(context.Background(), domain.ToneCasual); !errors.Is(err, domain.ErrWrongMode) {
		t.Fatalf("expected ErrWrongMode while playing, got %v", err)
	}
	if n := rw.callCount(); n != 0 {
		t.Fatalf("expected no external call, got %d", n)
	}
}

func TestRewriteCompletingDuringPlaybackIsDiscarded(t *testing.T) {
	rw := newGatedRewriter(domain.RewriteResult{Success: true, Text: "late result"}, nil)
	c, _, _ := setupController(t, rw, WithScript("on air"))

	done, err := c.RequestRewrite(context.Background(), domain.ToneCasual)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	<-rw.started
	if err := c.StartPlayback(); err != nil {
		t.Fatalf("start: %v", err)
	}
	close(rw.release)

	o := waitOutcome(t, done)
	if !errors.Is(o.Err, domain.ErrWrongMode) || o.Result.Success {
		t.Fatalf("expected discarded result, got %+v", o)
	}
	if c.Script() != "on air" {
		t.Fatalf("script changed during playback: %q", c.Script())
	}
}

func TestRewriteNotCancelledByCaller(t *testing.T) {
	rw := newGatedRewriter(domain.RewriteResult{Success: true, Text: "finished anyway"}, nil)
	c, _, _ := setupController(t, rw, WithScript("draft"))

	ctx, cancel := context.WithCancel(context.Background())
	done, err := c.RequestRewrite(ctx, domain.ToneCasual)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	<-rw.started
	cancel()
	close(rw.release)

	if o := waitOutcome(t, done); o.Err != nil {
		t.Fatalf("expected completion despite cancel, got %v", o.Err)
	}
	if c.Script() != "finished anyway" {
		t.Fatalf("expected script replaced, got %q", c.Script())
	}
}

// recordingGenerator captures the prompt the writer builds.
type recordingGenerator struct {
	prompt string
	reply  string
}

func (r *recordingGenerator) Generate(_ context.Context, prompt string) (string, error) {
	r.prompt = prompt
	return r.reply, nil
}

func (r *recordingGenerator) Configured() bool { return true }

func TestUnknownToneEndToEnd(t *testing.T) {
	gen := &recordingGenerator{reply: "Hey, hello world!"}
	log := logger.New(logger.LevelOff, nil)
	w := writer.New(gen, log)
	c := New(w, log, WithScript("Hello world"))
	defer c.Close()

	tone, _ := domain.ParseTone("xyz")
	done, err := c.RequestRewrite(context.Background(), tone)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	var o RewriteOutcome
	select {
	case o = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	if o.Err != nil {
		t.Fatalf("unknown tone rejected: %v", o.Err)
	}
	if want := writer.StyleDescriptor(domain.ToneCasual); !strings.Contains(gen.prompt, want) {
		t.Fatalf("expected casual descriptor %q in prompt:\n%s", want, gen.prompt)
	}
	if c.Script() != "Hey, hello world!" {
		t.Fatalf("expected rewritten script, got %q", c.Script())
	}
}

func TestRewriteEmptyReplyReplacesScript(t *testing.T) {
	gen := &recordingGenerator{reply: ""}
	log := logger.New(logger.LevelOff, nil)
	c := New(writer.New(gen, log), log, WithScript("Something to shorten"))
	defer c.Close()

	done, err := c.RequestRewrite(context.Background(), domain.ToneCasual)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	o := waitOutcome(t, done)
	if o.Err != nil || !o.Result.Success {
		t.Fatalf("empty reply should count as success, got %+v", o)
	}
	if c.Script() != "" {
		t.Fatalf("expected script replaced by the empty reply, got %q", c.Script())
	}
}
