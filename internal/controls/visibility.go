// Package controls tracks whether the on-screen playback controls are
// visible. Controls appear on any interaction and hide once the idle
// deadline passes without another one.
package controls

import (
	"time"

	"github.com/hammamikhairi/pocketprompter/internal/domain"
)

// DefaultIdleTimeout is how long controls stay up after the last interaction.
const DefaultIdleTimeout = 3 * time.Second

// Visibility owns a ControlsVisibility. Not safe for concurrent use.
type Visibility struct {
	timeout time.Duration
	state   domain.ControlsVisibility
}

// New returns visible controls with no deadline armed. A non-positive
// timeout selects DefaultIdleTimeout.
func New(timeout time.Duration) *Visibility {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	return &Visibility{
		timeout: timeout,
		state:   domain.ControlsVisibility{Visible: true},
	}
}

// Timeout returns the idle timeout.
func (v *Visibility) Timeout() time.Duration { return v.timeout }

// State returns a copy of the current visibility.
func (v *Visibility) State() domain.ControlsVisibility { return v.state }

// Show makes the controls visible and pushes the deadline to now+timeout,
// replacing any earlier one.
func (v *Visibility) Show(now time.Time) {
	v.state.Visible = true
	v.state.IdleDeadline = now.Add(v.timeout)
}

// Expire hides the controls if the armed deadline is at or before now.
// It reports whether they were hidden by this call.
func (v *Visibility) Expire(now time.Time) bool {
	if v.state.IdleDeadline.IsZero() || now.Before(v.state.IdleDeadline) {
		return false
	}
	v.state.Visible = false
	v.state.IdleDeadline = time.Time{}
	return true
}

// Reset cancels any pending deadline and forces the controls visible.
func (v *Visibility) Reset() {
	v.state = domain.ControlsVisibility{Visible: true}
}
