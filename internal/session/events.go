package session

import (
	"context"
	"fmt"
	"time"

	"github.com/hammamikhairi/pocketprompter/internal/domain"
)

// Event is a discrete trigger consumed by Dispatch. Presentation layers
// translate their input (keys, HTTP calls, timers) into events so none of
// them needs to know the controller's method set.
type Event interface {
	isEvent()
}

type (
	// StartPlayback requests the Editing -> Playing transition.
	StartPlayback struct{}
	// StopPlayback requests the Playing -> Editing transition.
	StopPlayback struct{}
	// EditScript replaces the script.
	EditScript struct{ Text string }
	// RequestRewrite asks for a rewrite; OnDone, if set, receives the outcome.
	RequestRewrite struct {
		Tone   domain.Tone
		OnDone func(RewriteOutcome)
	}
	// SetSpeed sets the absolute speed.
	SetSpeed struct{ Value int }
	// AdjustSpeed changes the speed by Delta.
	AdjustSpeed struct{ Delta int }
	// SetFontSize sets the absolute font size.
	SetFontSize struct{ Px int }
	// AdjustFontSize changes the font size by Delta.
	AdjustFontSize struct{ Delta int }
	// SetMirrored sets the mirror flag.
	SetMirrored struct{ On bool }
	// ToggleMirrored flips the mirror flag.
	ToggleMirrored struct{}
	// Interact is a pointer or touch signal.
	Interact struct{}
	// Tick is a scroll tick for the given epoch.
	Tick struct{ Epoch uint64 }
	// IdleCheck is an idle-deadline check for the given epoch.
	IdleCheck struct {
		Epoch uint64
		At    time.Time
	}
)

func (StartPlayback) isEvent()  {}
func (StopPlayback) isEvent()   {}
func (EditScript) isEvent()     {}
func (RequestRewrite) isEvent() {}
func (SetSpeed) isEvent()       {}
func (AdjustSpeed) isEvent()    {}
func (SetFontSize) isEvent()    {}
func (AdjustFontSize) isEvent() {}
func (SetMirrored) isEvent()    {}
func (ToggleMirrored) isEvent() {}
func (Interact) isEvent()       {}
func (Tick) isEvent()           {}
func (IdleCheck) isEvent()      {}

// Dispatch applies ev and returns the synchronous error, if any.
func (c *Controller) Dispatch(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case StartPlayback:
		return c.StartPlayback()
	case StopPlayback:
		return c.StopPlayback()
	case EditScript:
		return c.EditScript(e.Text)
	case RequestRewrite:
		done, err := c.RequestRewrite(ctx, e.Tone)
		if err != nil {
			return err
		}
		if e.OnDone != nil {
			go func() {
				for o := range done {
					e.OnDone(o)
				}
			}()
		}
		return nil
	case SetSpeed:
		c.SetSpeed(e.Value)
	case AdjustSpeed:
		c.AdjustSpeed(e.Delta)
	case SetFontSize:
		c.SetFontSize(e.Px)
	case AdjustFontSize:
		c.AdjustFontSize(e.Delta)
	case SetMirrored:
		c.SetMirrored(e.On)
	case ToggleMirrored:
		c.ToggleMirrored()
	case Interact:
		c.Interact()
	case Tick:
		c.Tick(e.Epoch)
	case IdleCheck:
		c.CheckIdle(e.Epoch, e.At)
	default:
		return fmt.Errorf("session: unknown event %T", ev)
	}
	return nil
}
