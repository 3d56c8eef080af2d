package render

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func TestTruncateDisplayWidth(t *testing.T) {
	tests := []struct {
		value string
		width int
		want  string
	}{
		{value: "BBCA", width: 10, want: "BBCA"},
		{value: "Bank Central Asia", width: 8, want: "Bank Ce…"},
		{value: "Bank", width: 1, want: "…"},
		{value: "Bank", width: 0, want: ""},
	}
	for _, tt := range tests {
		if got := TruncateDisplayWidth(tt.value, tt.width); got != tt.want {
			t.Fatalf("TruncateDisplayWidth(%q, %d) = %q, want %q", tt.value, tt.width, got, tt.want)
		}
	}
}

func TestFrameHeightPadsAndCuts(t *testing.T) {
	style := lipgloss.NewStyle().Border(lipgloss.NormalBorder())
	padded := FrameHeight("one", 12, 3, style)
	if got := len(strings.Split(padded, "\n")); got != 5 {
		t.Fatalf("padded frame has %d lines, want 5", got)
	}
	cut := FrameHeight("1\n2\n3\n4", 12, 2, style)
	if strings.Contains(ansi.Strip(cut), "3") {
		t.Fatalf("cut frame still shows line 3:\n%s", cut)
	}
}
