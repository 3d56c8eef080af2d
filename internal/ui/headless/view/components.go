package view

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"

	"sunstock-dashboard/internal/ui/headless/health"
	"sunstock-dashboard/internal/ui/headless/theme"
)

const (
	StatusIdle = iota
	StatusConnecting
	StatusConnected
	StatusStopping
	StatusError
)

const (
	minComponentWidth = 1
	scrollbarMinThumb = 0
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

func RenderTabs(activeTab int, hoverZone string) string {
	tab := func(id, label string, active bool) string {
		style := theme.TabInactiveStyle
		if hoverZone == id {
			style = theme.TabHoverStyle
		}
		if active {
			style = theme.TabActiveStyle
		}
		return zone.Mark(id, style.Render(" "+label+" "))
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom,
		tab(zoneTabDashboard, "Dashboard", activeTab == TabDashboard),
		tab(zoneTabAccount, "Account", activeTab == TabAccount),
	)
}

func RenderStatus(status string, kind int) string {
	switch kind {
	case StatusConnected:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(status)
	case StatusConnecting:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Render(status)
	case StatusStopping:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render(status)
	case StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render(status)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(status)
	}
}

func RenderActionsRow(segments []string, maxWidth int) string {
	if maxWidth <= 0 {
		maxWidth = minComponentWidth
	}
	lines := make([]string, 0, len(segments))
	rowParts := make([]string, 0, len(segments))
	joinRow := func(parts []string) string {
		if len(parts) == 0 {
			return ""
		}
		row := parts[0]
		for i := 1; i < len(parts); i++ {
			row = lipgloss.JoinHorizontal(lipgloss.Top, row, " ", parts[i])
		}
		return row
	}
	for _, seg := range segments {
		if len(rowParts) == 0 {
			rowParts = append(rowParts, seg)
			continue
		}
		candidateParts := append(append([]string(nil), rowParts...), seg)
		candidate := joinRow(candidateParts)
		if lipgloss.Width(candidate) <= maxWidth {
			rowParts = candidateParts
			continue
		}
		lines = append(lines, joinRow(rowParts))
		rowParts = []string{seg}
	}
	if len(rowParts) > 0 {
		lines = append(lines, joinRow(rowParts))
	}
	return strings.Join(lines, "\n")
}

func FeedDotStyle(kind health.Kind) (string, lipgloss.Style) {
	dot := "●"
	switch kind {
	case health.Active:
		return dot, lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	case health.Warn:
		return dot, lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	case health.Stale:
		return dot, lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	default:
		return dot, lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	}
}

// ChangeStyle colors a value by sign.
func ChangeStyle(value float64) lipgloss.Style {
	switch {
	case value > 0:
		return theme.UpStyle
	case value < 0:
		return theme.DownStyle
	default:
		return lipgloss.NewStyle()
	}
}

func FormatSigned(value float64) string {
	return fmt.Sprintf("%+.2f", value)
}

// Sparkline draws the last width values scaled between their min and max.
func Sparkline(values []float64, width int) string {
	if width <= 0 || len(values) == 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	low, high := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		low = math.Min(low, v)
		high = math.Max(high, v)
	}
	span := high - low
	var b strings.Builder
	for _, v := range values {
		idx := len(sparkRunes) / 2
		if span > 0 {
			idx = int((v - low) / span * float64(len(sparkRunes)-1))
		}
		b.WriteRune(sparkRunes[idx])
	}
	return b.String()
}

func WithScrollBar(content string, width int, height int, percent float64) string {
	if height <= 0 {
		return content
	}
	width = max(width, minComponentWidth)
	lines := strings.Split(content, "\n")
	if len(lines) < height {
		pad := make([]string, 0, height-len(lines))
		for range height - len(lines) {
			pad = append(pad, "")
		}
		lines = append(lines, pad...)
	}
	if len(lines) > height {
		lines = lines[:height]
	}

	thumb := int(percent * float64(height-1))
	thumb = max(thumb, scrollbarMinThumb)
	if thumb >= height {
		thumb = height - 1
	}
	barInactive := lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Render("┊")
	barActive := lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Render("▯")

	out := make([]string, 0, height)
	for i := range height {
		bar := barInactive
		if i == thumb {
			bar = barActive
		}
		text := ansi.Cut(lines[i], 0, width)
		if pad := width - ansi.StringWidth(text); pad > 0 {
			text += strings.Repeat(" ", pad)
		}
		out = append(out, text+" "+bar)
	}
	return strings.Join(out, "\n")
}
