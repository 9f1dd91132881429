package display

import (
	_ "embed"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
)

//go:embed banner.txt
var bannerRaw string

func bannerLines() []string {
	return strings.Split(strings.TrimRight(bannerRaw, "\n"), "\n")
}

// bannerHeight is the number of rows RenderBanner occupies.
func bannerHeight() int { return len(bannerLines()) }

// RenderBanner returns the banner art horizontally centred for the
// current terminal width, at its native size.
func RenderBanner() string {
	width := termWidth()
	lines := bannerLines()

	maxW := 0
	for _, l := range lines {
		if len(l) > maxW {
			maxW = len(l)
		}
	}

	var b strings.Builder
	for _, l := range lines {
		if pad := (width - maxW) / 2; pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		b.WriteString(BannerStyle.Render(l))
		b.WriteByte('\n')
	}
	return b.String()
}

// termWidth returns the current terminal column count, or 80 as fallback.
func termWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return 80
}
