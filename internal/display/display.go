// Package display provides the terminal UI using Bubble Tea.
//
// The [UI] renders a [session.Controller]: an editor with AI rewrite
// while editing, and a full-screen scrolling prompter while playing.
// All state lives in the controller; the model re-renders from a
// snapshot whenever the controller signals a change.
package display

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/pocketprompter/internal/domain"
	"github.com/hammamikhairi/pocketprompter/internal/logger"
	"github.com/hammamikhairi/pocketprompter/internal/session"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	// BannerStyle: muted slate for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	scriptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fafafa")).
			Bold(true)

	toneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	urgentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))
)

// ── UI ───────────────────────────────────────────────────────────

// UI runs the terminal front end for one controller.
type UI struct {
	ctrl    *session.Controller
	log     *logger.Logger
	program *tea.Program
	done    atomic.Bool
}

// NewUI creates the display. Call Run to start.
func NewUI(ctrl *session.Controller, log *logger.Logger) *UI {
	return &UI{ctrl: ctrl, log: log}
}

// Run starts the Bubble Tea event loop. Blocks until the user quits or
// ctx is cancelled. Playback is stopped on the way out.
func (u *UI) Run(ctx context.Context) error {
	changes, unsubscribe := u.ctrl.Subscribe()
	defer unsubscribe()

	m := newModel(u.ctrl, changes)
	m.send = func(msg tea.Msg) {
		if u.program != nil && !u.done.Load() {
			u.program.Send(msg)
		}
	}

	u.program = tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	_, err := u.program.Run()
	u.done.Store(true)

	if stopErr := u.ctrl.StopPlayback(); stopErr == nil {
		u.log.Debug("display: playback stopped on exit")
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	ctrl    *session.Controller
	changes <-chan struct{}
	send    func(tea.Msg)

	snap    domain.Snapshot
	editor  textarea.Model
	spinner spinner.Model
	synced  string // script text last exchanged with the controller
	tone    domain.Tone
	status  string
	failed  bool
	width   int
	height  int
}

// Messages.
type (
	changedMsg     struct{}
	rewriteDoneMsg session.RewriteOutcome
)

func newModel(ctrl *session.Controller, changes <-chan struct{}) model {
	ta := textarea.New()
	ta.Placeholder = "Type or paste your script..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.SetWidth(80)
	ta.SetHeight(12)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = toneStyle

	snap := ctrl.Snapshot()
	ta.SetValue(snap.Script)

	return model{
		ctrl:    ctrl,
		changes: changes,
		send:    func(tea.Msg) {},
		snap:    snap,
		editor:  ta,
		spinner: sp,
		synced:  snap.Script,
		tone:    domain.ToneCasual,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		waitForChange(m.changes),
		tea.SetWindowTitle("Prompter"),
	)
}

// waitForChange blocks until the controller signals. A closed channel
// ends the loop.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.editor.SetWidth(max(msg.Width-4, 20))
		m.editor.SetHeight(max(msg.Height-bannerHeight()-6, 5))
		return m, nil

	case changedMsg:
		m.refresh()
		return m, waitForChange(m.changes)

	case rewriteDoneMsg:
		m.refresh()
		if msg.Err != nil {
			m.setError(msg.Result.ErrorMessage)
		} else {
			m.setStatus(fmt.Sprintf("Script rewritten (%s).", msg.Result.Tone))
		}
		return m, nil

	case spinner.TickMsg:
		if !m.snap.Rewriting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		if m.snap.Mode == domain.ModePlaying {
			m.ctrl.Interact()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.snap.Mode == domain.ModePlaying {
			return m.updatePlaying(msg)
		}
		return m.updateEditing(msg)
	}

	if m.snap.Mode == domain.ModeEditing {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}
	return m, nil
}

// refresh pulls a new snapshot and brings the editor in line with
// script changes made elsewhere (a rewrite, the server, a file watcher).
func (m *model) refresh() {
	m.snap = m.ctrl.Snapshot()
	if m.snap.Script != m.synced {
		m.editor.SetValue(m.snap.Script)
		m.synced = m.snap.Script
	}
}

func (m *model) setStatus(s string) { m.status, m.failed = s, false }
func (m *model) setError(s string)  { m.status, m.failed = s, true }

func (m model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+p":
		m.pushEdits()
		if err := m.ctrl.StartPlayback(); err != nil {
			m.setError(userMessage(err))
			return m, nil
		}
		m.setStatus("")
		m.refresh()
		return m, nil

	case "ctrl+t":
		m.tone = nextTone(m.tone)
		return m, nil

	case "ctrl+r":
		m.pushEdits()
		send := m.send
		err := m.ctrl.Dispatch(context.Background(), session.RequestRewrite{
			Tone:   m.tone,
			OnDone: func(o session.RewriteOutcome) { send(rewriteDoneMsg(o)) },
		})
		if err != nil {
			m.setError(userMessage(err))
			return m, nil
		}
		m.setStatus("")
		m.refresh()
		return m, m.spinner.Tick
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	m.pushEdits()
	return m, cmd
}

// pushEdits sends the editor contents to the controller if they changed.
func (m *model) pushEdits() {
	v := m.editor.Value()
	if v == m.synced {
		return
	}
	if err := m.ctrl.EditScript(v); err != nil {
		m.setError(userMessage(err))
		return
	}
	m.synced = v
}

func (m model) updatePlaying(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.ctrl.Interact()

	switch msg.String() {
	case "esc", "q":
		if err := m.ctrl.StopPlayback(); err != nil {
			m.setError(userMessage(err))
		}
	case "up", "+", "=":
		m.ctrl.AdjustSpeed(1)
	case "down", "-":
		m.ctrl.AdjustSpeed(-1)
	case "]":
		m.ctrl.AdjustFontSize(4)
	case "[":
		m.ctrl.AdjustFontSize(-4)
	case "m":
		m.ctrl.ToggleMirrored()
	}
	m.refresh()
	return m, nil
}

func nextTone(t domain.Tone) domain.Tone {
	tones := domain.Tones()
	for i, v := range tones {
		if v == t {
			return tones[(i+1)%len(tones)]
		}
	}
	return tones[0]
}

// userMessage turns a controller error into a line for the status bar.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyScript):
		return "Script is empty."
	case errors.Is(err, domain.ErrRewriteBusy):
		return "A rewrite is already running."
	case errors.Is(err, domain.ErrWrongMode):
		return "Not available during playback."
	default:
		return err.Error()
	}
}

// ── Views ────────────────────────────────────────────────────────

func (m model) View() string {
	if m.snap.Mode == domain.ModePlaying {
		return m.viewPlaying()
	}
	return m.viewEditing()
}

func (m model) viewEditing() string {
	var b strings.Builder
	b.WriteString(RenderBanner())
	b.WriteByte('\n')
	b.WriteString(m.editor.View())
	b.WriteString("\n\n")

	switch {
	case m.snap.Rewriting:
		b.WriteString(m.spinner.View() + toneStyle.Render(" Rewriting ("+m.snap.RewriteTone.String()+")..."))
	case m.status != "" && m.failed:
		b.WriteString(urgentStyle.Render(m.status))
	case m.status != "":
		b.WriteString(successStyle.Render(m.status))
	}
	b.WriteByte('\n')

	b.WriteString(secondaryStyle.Render("ctrl+p play  ctrl+t tone: "))
	b.WriteString(toneStyle.Render(m.tone.String()))
	b.WriteString(secondaryStyle.Render("  ctrl+r rewrite  ctrl+c quit"))
	return b.String()
}

func (m model) viewPlaying() string {
	width, height := m.width, m.height
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}

	pb := m.snap.Playback
	rows := height
	if m.snap.Controls.Visible {
		rows--
	}

	lines := layoutScript(m.snap.Script, wrapWidth(width, pb.FontSizePx))
	window := visibleWindow(lines, pb.ScrollOffset, pb.FontSizePx, rows)

	var b strings.Builder
	for i, l := range window {
		if pb.Mirrored {
			l = mirrorLine(l)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, scriptStyle.Render(l)))
		if i < len(window)-1 {
			b.WriteByte('\n')
		}
	}

	if m.snap.Controls.Visible {
		b.WriteByte('\n')
		b.WriteString(m.renderControls(width))
	}
	return b.String()
}

func (m model) renderControls(width int) string {
	pb := m.snap.Playback
	mirror := "off"
	if pb.Mirrored {
		mirror = "on"
	}
	parts := []string{
		labelStyle.Render("speed ") + valueStyle.Render(fmt.Sprintf("%d", pb.Speed)) + labelStyle.Render(" (↑/↓)"),
		labelStyle.Render("font ") + valueStyle.Render(fmt.Sprintf("%dpx", pb.FontSizePx)) + labelStyle.Render(" ([/])"),
		labelStyle.Render("mirror ") + valueStyle.Render(mirror) + labelStyle.Render(" (m)"),
		labelStyle.Render("stop (esc)"),
	}
	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "
	return barBg.Width(width).Render(content)
}
