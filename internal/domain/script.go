package domain

import (
	"strings"
	"time"
)

// Mode is the session controller's top-level state.
type Mode int

const (
	ModeEditing Mode = iota
	ModePlaying
)

// String returns a human-readable mode.
func (m Mode) String() string {
	switch m {
	case ModeEditing:
		return "editing"
	case ModePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Tone selects the rewriting style sent to the text-generation service.
type Tone int

const (
	ToneCasual Tone = iota
	ToneProfessional
	ToneControversial
)

// String returns the canonical tone name.
func (t Tone) String() string {
	switch t {
	case ToneProfessional:
		return "professional"
	case ToneControversial:
		return "controversial"
	default:
		return "casual"
	}
}

// ParseTone maps a user-supplied tone name to a Tone. Unknown names fall
// back to ToneCasual; the second return value reports whether the name
// was recognised.
func ParseTone(s string) (Tone, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "casual", "fun":
		return ToneCasual, true
	case "professional", "profissional", "serious":
		return ToneProfessional, true
	case "controversial", "controvérsia", "controversia", "polemic":
		return ToneControversial, true
	default:
		return ToneCasual, false
	}
}

// Tones lists every tone in display order.
func Tones() []Tone {
	return []Tone{ToneCasual, ToneProfessional, ToneControversial}
}

// IsBlank reports whether a script has no visible content.
func IsBlank(script string) bool {
	return strings.TrimSpace(script) == ""
}

// PlaybackState is the scroll model of the teleprompter.
type PlaybackState struct {
	Active       bool
	ScrollOffset float64
	Speed        int
	FontSizePx   int
	Mirrored     bool
}

// ControlsVisibility tracks whether the on-screen controls are shown.
// A zero IdleDeadline means no hide is scheduled.
type ControlsVisibility struct {
	Visible      bool
	IdleDeadline time.Time
}

// RewriteResult is the outcome of a single rewrite request.
type RewriteResult struct {
	Tone         Tone
	Success      bool
	Text         string
	ErrorMessage string
}

// Snapshot is a read-only copy of everything a presentation layer renders.
type Snapshot struct {
	Mode      Mode
	Script    string
	Playback  PlaybackState
	Controls  ControlsVisibility
	Rewriting bool
	// RewriteTone is meaningful only while Rewriting is true.
	RewriteTone Tone
}
