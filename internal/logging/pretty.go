package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type palette struct {
	timestamp lipgloss.Style
	message   lipgloss.Style
	key       lipgloss.Style
	value     lipgloss.Style
	sep       lipgloss.Style
	punct     lipgloss.Style
	border    lipgloss.Color
}

var ansiPalette = palette{
	timestamp: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	message:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")),
	key:       lipgloss.NewStyle().Foreground(lipgloss.Color("117")),
	value:     lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
	sep:       lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	punct:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	border:    lipgloss.Color("245"),
}

func shouldPrettyPrint() bool {
	term := strings.TrimSpace(os.Getenv("TERM"))
	if term == "" || term == "dumb" {
		return false
	}
	return os.Getenv("NO_COLOR") == ""
}

func levelBadge(level slog.Level) (string, lipgloss.Style) {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch {
	case level <= slog.LevelDebug:
		return "DEBUG", base.Foreground(lipgloss.Color("255")).Background(lipgloss.Color("240"))
	case level <= slog.LevelInfo:
		return "INFO", base.Foreground(lipgloss.Color("230")).Background(lipgloss.Color("28"))
	case level <= slog.LevelWarn:
		return "WARN", base.Foreground(lipgloss.Color("234")).Background(lipgloss.Color("214"))
	default:
		return "ERROR", base.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160"))
	}
}
