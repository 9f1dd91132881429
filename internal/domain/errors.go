package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across layers.
var (
	ErrEmptyScript   = errors.New("script is empty")
	ErrRewriteBusy   = errors.New("a rewrite is already in progress")
	ErrNotConfigured = errors.New("text generation is not configured")
	ErrEmptyInput    = errors.New("input must not be empty")
	ErrWrongMode     = errors.New("operation not valid in current mode")
	ErrUpstream      = errors.New("text generation failed")
)

// UpstreamError wraps a failure reported by the text-generation service
// or the transport in front of it. errors.Is(err, ErrUpstream) holds for
// every UpstreamError.
type UpstreamError struct {
	Op  string // "rewrite" or "contract"
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is reports ErrUpstream as a match so callers need not type-assert.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Message returns the human-readable text shown to the user.
func (e *UpstreamError) Message() string {
	if e.Err == nil {
		return ErrUpstream.Error()
	}
	return e.Err.Error()
}
