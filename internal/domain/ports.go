package domain

import "context"

// TextGenerator is the external generative-text collaborator. Implementations
// wrap a hosted LLM (Gemini, an OpenAI-compatible endpoint, or a test fake).
// Configured reports whether a credential is present; callers check it before
// calling Generate so no network attempt is made without one.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Configured() bool
}

// Rewriter rewrites a script in the given tone. The session controller
// depends on this rather than on the writer package directly.
type Rewriter interface {
	Rewrite(ctx context.Context, script string, tone Tone) (RewriteResult, error)
}

// Pacer drives the periodic scroll tick and idle check while playback is
// active. Arm starts both timers for the given epoch; Disarm stops them and
// returns only after no further callbacks can run.
type Pacer interface {
	Arm(epoch uint64)
	Disarm()
}
