package display

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/pocketprompter/internal/playback"
)

// lineHeightRatio matches a relaxed text leading: one rendered line is
// fontSize*lineHeightRatio pixels tall.
const lineHeightRatio = 1.625

// minWrapWidth keeps huge fonts on narrow terminals readable.
const minWrapWidth = 12

// wrapWidth maps the pixel font size onto a column budget. At the default
// size the script uses the whole terminal width; larger fonts get fewer
// columns per line, smaller ones get more but never exceed the terminal.
func wrapWidth(termWidth, fontSize int) int {
	if termWidth <= 0 {
		termWidth = 80
	}
	if fontSize <= 0 {
		fontSize = playback.DefaultFontSize
	}
	w := termWidth * playback.DefaultFontSize / fontSize
	if w > termWidth {
		w = termWidth
	}
	if w < minWrapWidth {
		w = minWrapWidth
	}
	return w
}

// layoutScript word-wraps the script to width columns, keeping the
// script's own line breaks and blank lines.
func layoutScript(script string, width int) []string {
	if script == "" {
		return nil
	}
	wrapped := lipgloss.NewStyle().Width(width).Render(script)
	lines := strings.Split(wrapped, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return lines
}

// scrolledRows converts a pixel scroll offset into whole terminal rows.
func scrolledRows(offset float64, fontSize int) int {
	if offset <= 0 || fontSize <= 0 {
		return 0
	}
	return int(offset / (float64(fontSize) * lineHeightRatio))
}

// visibleWindow returns height rows starting at the scrolled position.
// Rows past the end of the script are blank, so the text scrolls off the
// top of the screen instead of stopping.
func visibleWindow(lines []string, offset float64, fontSize, height int) []string {
	if height <= 0 {
		return nil
	}
	start := scrolledRows(offset, fontSize)
	out := make([]string, height)
	for i := range out {
		if idx := start + i; idx < len(lines) {
			out[i] = lines[idx]
		}
	}
	return out
}

// mirrorLine reverses a line so it reads correctly in a beam-splitter
// mirror.
func mirrorLine(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
