package gemini

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hammamikhairi/pocketprompter/internal/domain"
	"github.com/hammamikhairi/pocketprompter/internal/logger"
)

func TestUnconfiguredNeverDials(t *testing.T) {
	c := New("", logger.New(logger.LevelOff, nil))
	if c.Configured() {
		t.Fatal("expected unconfigured client")
	}
	_, err := c.Generate(context.Background(), "hi")
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestDefaultModel(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	if got := New("k", log).Model(); got != DefaultModel {
		t.Fatalf("expected %s, got %s", DefaultModel, got)
	}
	if got := New("k", log, WithModel("")).Model(); got != DefaultModel {
		t.Fatalf("empty model should keep default, got %s", got)
	}
	if got := New("k", log, WithModel("gemini-2.5-pro")).Model(); got != "gemini-2.5-pro" {
		t.Fatalf("expected override, got %s", got)
	}
}

func TestGenerateAgainstFakeAPI(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"rewritten script"}]}}]}`))
	}))
	defer srv.Close()

	c := New("k", logger.New(logger.LevelOff, nil), WithBaseURL(srv.URL+"/"))
	out, err := c.Generate(context.Background(), "Hello world")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "rewritten script" {
		t.Fatalf("expected %q, got %q", "rewritten script", out)
	}
	if !strings.Contains(gotPath, DefaultModel) || !strings.HasSuffix(gotPath, ":generateContent") {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	if !strings.Contains(gotBody, "Hello world") {
		t.Fatalf("prompt missing from request body: %s", gotBody)
	}
}

func fakeAPI(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateReturnsEmptyTextVerbatim(t *testing.T) {
	srv := fakeAPI(t, `{"candidates":[{"content":{"role":"model","parts":[{"text":""}]}}]}`)

	c := New("k", logger.New(logger.LevelOff, nil), WithBaseURL(srv.URL+"/"))
	out, err := c.Generate(context.Background(), "Hello world")
	if err != nil {
		t.Fatalf("empty reply should not be an error, got %v", err)
	}
	if out != "" {
		t.Fatalf("expected empty text, got %q", out)
	}
}

func TestGenerateWithoutCandidatesFails(t *testing.T) {
	srv := fakeAPI(t, `{"candidates":[]}`)

	c := New("k", logger.New(logger.LevelOff, nil), WithBaseURL(srv.URL+"/"))
	if _, err := c.Generate(context.Background(), "Hello world"); err == nil {
		t.Fatal("expected an error when the response has no candidates")
	}
}
