// Package playback implements the teleprompter scroll model: position,
// speed, font size and mirroring. It holds no timers of its own; the
// owner calls Tick on a fixed cadence while playback is active.
package playback

import "github.com/hammamikhairi/pocketprompter/internal/domain"

// Bounds and defaults for the user-adjustable settings.
const (
	MinSpeed     = 0
	MaxSpeed     = 10
	DefaultSpeed = 5

	MinFontSize     = 20
	MaxFontSize     = 100
	DefaultFontSize = 48

	// StepPerSpeed is how far one tick advances per unit of speed.
	StepPerSpeed = 0.5
)

// Engine owns the PlaybackState. It is not safe for concurrent use; the
// session controller serialises access.
type Engine struct {
	state domain.PlaybackState
}

// Option configures the engine.
type Option func(*Engine)

// WithSpeed sets the initial speed (clamped).
func WithSpeed(v int) Option {
	return func(e *Engine) { e.state.Speed = clamp(v, MinSpeed, MaxSpeed) }
}

// WithFontSize sets the initial font size in pixels (clamped).
func WithFontSize(px int) Option {
	return func(e *Engine) { e.state.FontSizePx = clamp(px, MinFontSize, MaxFontSize) }
}

// WithMirrored sets the initial mirror flag.
func WithMirrored(m bool) Option {
	return func(e *Engine) { e.state.Mirrored = m }
}

// New creates an inactive engine with default settings.
func New(opts ...Option) *Engine {
	e := &Engine{
		state: domain.PlaybackState{
			Speed:      DefaultSpeed,
			FontSizePx: DefaultFontSize,
		},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// State returns a copy of the current state.
func (e *Engine) State() domain.PlaybackState { return e.state }

// Start activates playback from the top of the script.
func (e *Engine) Start() {
	e.state.ScrollOffset = 0
	e.state.Active = true
}

// Stop deactivates playback. The scroll position is kept until the next Start.
func (e *Engine) Stop() {
	e.state.Active = false
}

// Tick advances the scroll position by Speed*StepPerSpeed. It reports
// whether the offset moved; an inactive engine or zero speed never moves.
func (e *Engine) Tick() bool {
	if !e.state.Active || e.state.Speed == 0 {
		return false
	}
	e.state.ScrollOffset += float64(e.state.Speed) * StepPerSpeed
	return true
}

// SetSpeed changes the scroll speed, clamped to [MinSpeed, MaxSpeed].
func (e *Engine) SetSpeed(v int) { e.state.Speed = clamp(v, MinSpeed, MaxSpeed) }

// SetFontSize changes the font size, clamped to [MinFontSize, MaxFontSize].
func (e *Engine) SetFontSize(px int) { e.state.FontSizePx = clamp(px, MinFontSize, MaxFontSize) }

// SetMirrored sets the mirrored-display flag.
func (e *Engine) SetMirrored(m bool) { e.state.Mirrored = m }

// ToggleMirrored flips the mirrored-display flag and returns the new value.
func (e *Engine) ToggleMirrored() bool {
	e.state.Mirrored = !e.state.Mirrored
	return e.state.Mirrored
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
