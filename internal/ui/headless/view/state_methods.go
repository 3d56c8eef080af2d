package view

import (
	"runtime"
	"strings"

	"sunstock-dashboard/internal/ui/headless/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	TabDashboard = iota
	TabAccount
)

const (
	DefaultNonLogLayoutReserveMin = 24
	DefaultMinLogPanelHeight      = 6
	ConfirmQuitChoiceCancel       = 0
)

const (
	symbolsControlIndex = iota
	pushControlIndex
	logsControlIndex
	quitControlIndex
	logsDebugControlIndex
)

const (
	dashboardFocusCountWithoutLogs = 4
	dashboardFocusCountWithLogs    = 5
	accountExtraFocusSlots         = 2
)

const (
	minPageWidth = 24
)

const (
	logPanelHorizontalInset = 8
	minViewportDimension    = 1
	minLogViewportWidth     = 20
	logViewportHeightOffset = 3
	minLogViewportHeight    = 3
	panelFrameOverhead      = 4
	borderRows              = 2
	sectionGapRows          = 2
)

func (s *State) ApplyFocus() {
	for i := range s.Inputs {
		if s.Tab == TabAccount && i == s.Focus {
			s.Inputs[i].Focus()
		} else {
			s.Inputs[i].Blur()
		}
	}
}

func (s State) FocusCount() int {
	if s.Tab == TabDashboard {
		if s.ShowLogs {
			return dashboardFocusCountWithLogs
		}
		return dashboardFocusCountWithoutLogs
	}
	return len(s.Inputs) + accountExtraFocusSlots
}

func (s State) SymbolsIndex() int   { return symbolsControlIndex }
func (s State) PushIndex() int      { return pushControlIndex }
func (s State) LogsIndex() int      { return logsControlIndex }
func (s State) QuitIndex() int      { return quitControlIndex }
func (s State) LogsDebugIndex() int { return logsDebugControlIndex }
func (s State) SignInIndex() int    { return len(s.Inputs) }
func (s State) SaveIndex() int      { return len(s.Inputs) + 1 }

func (s State) ContentWidth() int {
	width := max(s.Width, 1)
	// Some Windows terminals wrap when a styled line lands exactly on the
	// reported last column.
	if runtime.GOOS == "windows" && width > 1 {
		width--
	}
	return width
}

func (s State) PageWidth() int {
	return max(s.ContentWidth()-theme.PanelStyle.GetHorizontalFrameSize(), minPageWidth)
}

func (s State) LogPanelHeight(nonLogLayoutReserveMin int, minLogPanelHeight int) int {
	available := s.Height - nonLogLayoutReserveMin
	if available < minLogPanelHeight {
		return minLogPanelHeight
	}
	return available
}

func (s *State) SetLogViewportContent() {
	width := max(s.LogView.Width, minViewportDimension)
	s.LogView.SetContent(wrapLogText(s.LogText, width))
}

func (s *State) ResizeLogs(nonLogLayoutReserveMin int, minLogPanelHeight int) {
	w := max(s.PageWidth()-logPanelHorizontalInset, minLogViewportWidth)
	h := max(s.LogPanelHeight(nonLogLayoutReserveMin, minLogPanelHeight)-logViewportHeightOffset, minLogViewportHeight)
	s.LogView.Width = w
	s.LogView.Height = h
	s.SetLogViewportContent()
}

func (s *State) FitLogViewportHeight(nonLogSections []string, nonLogLayoutReserveMin int, minLogPanelHeight int) {
	if s.Height <= 0 {
		return
	}
	desired := max(s.LogPanelHeight(nonLogLayoutReserveMin, minLogPanelHeight)-logViewportHeightOffset, minLogViewportHeight)
	nonLogHeight := lipgloss.Height(strings.Join(nonLogSections, "\n\n"))
	availablePanel := s.Height - borderRows - nonLogHeight - sectionGapRows
	maxLogHeight := max(availablePanel-panelFrameOverhead, minLogViewportHeight)
	if desired > maxLogHeight {
		desired = maxLogHeight
	}
	s.LogView.Height = desired
}

func wrapLogText(text string, width int) string {
	if width <= 0 || text == "" {
		return text
	}
	return ansi.Wrap(text, width, "")
}
