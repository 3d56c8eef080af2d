package logging

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var forceColorOnce sync.Once

func ensureColorOutput() {
	forceColorOnce.Do(func() {
		lipgloss.SetColorProfile(termenv.TrueColor)
	})
}

// FormatEventANSI renders one event with ANSI styling. JSON-shaped fields
// are drawn as boxed blocks beneath the header line.
func FormatEventANSI(event Event) string {
	ensureColorOutput()
	p := ansiPalette
	label, badge := levelBadge(event.Level)
	line := lipgloss.JoinHorizontal(lipgloss.Center,
		p.timestamp.Render(event.Time.Format("15:04:05.000")),
		" ",
		badge.Render(label),
		" ",
		p.message.Render(event.Message),
	)
	if len(event.Fields) == 0 {
		return line + "\n"
	}

	inline := make([]string, 0, len(event.Fields))
	var blocks []string
	for _, key := range orderedFieldKeys(event.Level, event.Fields) {
		if pretty, ok := prettyJSONString(event.Fields[key]); ok {
			blocks = append(blocks, p.jsonBlock(key, pretty))
			continue
		}
		inline = append(inline, p.key.Render(key)+p.sep.Render("=")+p.value.Render(formatFieldValue(event.Fields[key])))
	}
	var b strings.Builder
	b.WriteString(line)
	if len(inline) > 0 {
		b.WriteString("  ")
		b.WriteString(strings.Join(inline, " "))
	}
	for _, block := range blocks {
		b.WriteString("\n  ")
		b.WriteString(block)
	}
	b.WriteString("\n")
	return b.String()
}

func (p palette) jsonBlock(key string, pretty string) string {
	lines := strings.Split(pretty, "\n")
	for i, line := range lines {
		lines[i] = p.colorizeJSONLine(line)
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.border).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
	return p.key.Render(key) + p.sep.Render("=") + "\n" + box
}

func (p palette) colorizeJSONLine(line string) string {
	var b strings.Builder
	inString := false
	escaped := false
	for _, r := range line {
		switch {
		case r == '"':
			b.WriteString(p.punct.Render(string(r)))
			if !escaped {
				inString = !inString
			}
			escaped = false
		case inString && r == '\\':
			b.WriteString(p.value.Render(string(r)))
			escaped = !escaped
		case !inString && strings.ContainsRune("{}[]:,", r):
			b.WriteString(p.punct.Render(string(r)))
			escaped = false
		case r == ' ' || r == '\t':
			b.WriteRune(r)
			escaped = false
		default:
			b.WriteString(p.value.Render(string(r)))
			escaped = false
		}
	}
	return b.String()
}
