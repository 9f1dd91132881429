package display

import (
	"strings"
	"testing"
)

func TestWrapWidth(t *testing.T) {
	tests := []struct {
		term, font, want int
	}{
		{80, 48, 80},
		{80, 96, 40},
		{80, 20, 80}, // never wider than the terminal
		{20, 100, minWrapWidth},
		{0, 48, 80},
		{80, 0, 80},
	}
	for _, tt := range tests {
		if got := wrapWidth(tt.term, tt.font); got != tt.want {
			t.Errorf("wrapWidth(%d, %d) = %d, want %d", tt.term, tt.font, got, tt.want)
		}
	}
}

func TestLayoutScriptKeepsLineBreaks(t *testing.T) {
	lines := layoutScript("one two three four\n\nfive", 9)
	if len(lines) < 4 {
		t.Fatalf("expected wrapped lines, got %q", lines)
	}
	for _, l := range lines {
		if len([]rune(l)) > 9 {
			t.Errorf("line %q exceeds width", l)
		}
	}
	if lines[len(lines)-1] != "five" {
		t.Errorf("expected last line %q, got %q", "five", lines[len(lines)-1])
	}
	if layoutScript("", 10) != nil {
		t.Error("empty script should have no lines")
	}
}

func TestScrolledRows(t *testing.T) {
	// One row at 48px is 78px tall.
	tests := []struct {
		offset float64
		font   int
		want   int
	}{
		{0, 48, 0},
		{77.9, 48, 0},
		{78, 48, 1},
		{780, 48, 10},
		{-5, 48, 0},
	}
	for _, tt := range tests {
		if got := scrolledRows(tt.offset, tt.font); got != tt.want {
			t.Errorf("scrolledRows(%v, %d) = %d, want %d", tt.offset, tt.font, got, tt.want)
		}
	}
}

func TestVisibleWindowScrollsPastEnd(t *testing.T) {
	lines := []string{"a", "b", "c"}

	w := visibleWindow(lines, 0, 48, 2)
	if strings.Join(w, ",") != "a,b" {
		t.Errorf("top window = %q", w)
	}

	w = visibleWindow(lines, 78*2, 48, 3)
	if strings.Join(w, ",") != "c,," {
		t.Errorf("scrolled window = %q", w)
	}

	w = visibleWindow(lines, 78*10, 48, 2)
	if strings.Join(w, ",") != "," {
		t.Errorf("past-end window = %q", w)
	}
}

func TestMirrorLine(t *testing.T) {
	if got := mirrorLine("Olá mundo"); got != "odnum álO" {
		t.Errorf("mirrorLine = %q", got)
	}
	if mirrorLine("") != "" {
		t.Error("empty line should stay empty")
	}
}
