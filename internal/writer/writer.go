// Package writer turns scripts and deal terms into prompts for the
// text-generation service and hands back what it produces. It is the
// single entry-point the session controller and the CLI call for
// AI-powered text.
package writer

import (
	"context"
	"fmt"

	"github.com/hammamikhairi/pocketprompter/internal/domain"
	"github.com/hammamikhairi/pocketprompter/internal/logger"
)

// Compile-time interface check.
var _ domain.Rewriter = (*Writer)(nil)

// Writer wraps a TextGenerator with the rewrite and contract prompts.
type Writer struct {
	gen domain.TextGenerator
	log *logger.Logger
}

// New creates a Writer backed by gen. A nil generator behaves as an
// unconfigured one.
func New(gen domain.TextGenerator, log *logger.Logger) *Writer {
	return &Writer{gen: gen, log: log}
}

// Configured reports whether a text-generation credential is available.
func (w *Writer) Configured() bool {
	return w.gen != nil && w.gen.Configured()
}

// Rewrite asks the service to rewrite script in the given tone. Failures
// are returned both as an error and as an unsuccessful RewriteResult
// carrying the user-facing message. On success the service's text is
// returned verbatim.
func (w *Writer) Rewrite(ctx context.Context, script string, tone domain.Tone) (domain.RewriteResult, error) {
	res := domain.RewriteResult{Tone: tone}

	if !w.Configured() {
		res.ErrorMessage = domain.ErrNotConfigured.Error()
		return res, domain.ErrNotConfigured
	}
	if domain.IsBlank(script) {
		res.ErrorMessage = domain.ErrEmptyInput.Error()
		return res, domain.ErrEmptyInput
	}

	prompt := buildRewritePrompt(script, tone)
	w.log.Debug("writer: rewrite tone=%s (%d chars in)", tone, len(script))

	text, err := w.gen.Generate(ctx, prompt)
	if err != nil {
		uerr := &domain.UpstreamError{Op: "rewrite", Err: err}
		w.log.Error("writer: rewrite failed: %v", err)
		res.ErrorMessage = uerr.Message()
		return res, uerr
	}

	w.log.Info("writer: rewrite tone=%s ok (%d chars out)", tone, len(text))
	res.Success = true
	res.Text = text
	return res, nil
}

// GenerateContract drafts a sponsorship contract in Markdown.
func (w *Writer) GenerateContract(ctx context.Context, req ContractRequest) (string, error) {
	if !w.Configured() {
		return "", domain.ErrNotConfigured
	}
	if field := req.missingField(); field != "" {
		return "", fmt.Errorf("contract %s: %w", field, domain.ErrEmptyInput)
	}

	w.log.Debug("writer: contract for client=%q creator=%q", req.ClientName, req.CreatorName)

	text, err := w.gen.Generate(ctx, buildContractPrompt(req))
	if err != nil {
		w.log.Error("writer: contract failed: %v", err)
		return "", &domain.UpstreamError{Op: "contract", Err: err}
	}
	return text, nil
}
