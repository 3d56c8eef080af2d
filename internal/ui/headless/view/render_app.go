package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"

	"sunstock-dashboard/internal/client"
	"sunstock-dashboard/internal/push"
	"sunstock-dashboard/internal/stream"
	"sunstock-dashboard/internal/ui/headless/health"
	"sunstock-dashboard/internal/ui/headless/render"
	"sunstock-dashboard/internal/ui/headless/theme"
)

type Runtime struct {
	BuildVersion string
	Running      bool
	Connecting   bool
	Status       string
	StatusKind   int
	Stocks       []client.Stock
	Symbol       string
	Quotes       []client.StockQuote
	Daily        []client.StockQuote
	Alerts       []stream.Alert
	News         []client.CompanyNews
	Feeds        []health.Row
	PushState    push.State
}

const (
	outerPaneGap              = 2
	frameInnerInset           = 4
	symbolPaneMinWidth        = 18
	symbolPaneMaxWidth        = 34
	detailPaneMinWidth        = 36
	sideBySideMinTotalWidth   = 72
	paneInnerMinWidth         = 1
	defaultPaneRows           = 10
	largePaneRows             = 16
	largePaneHeightCutover    = 40
	accountLabelWidth         = 9
	accountControlMinWidth    = 16
	accountButtonsPaddingLeft = accountLabelWidth + 1
	dialogHorizontalInset     = 8
	quitDialogWidth           = 64
	errorDialogWidth          = 78
	permissionDialogWidth     = 64
	maxNewsItems              = 5
	placeholderMinHeight      = 3
)

func RenderApp(state *State, rt Runtime) string {
	if state.Width == 0 {
		return "initializing..."
	}

	base := renderBase(state, rt)
	switch {
	case state.ErrorModalText != "":
		return renderModalOverlay(state, base, renderErrorDialog(state))
	case state.PermissionPrompt:
		return renderModalOverlay(state, base, renderPermissionDialog(state))
	case state.NoticeText != "":
		return renderModalOverlay(state, base, renderNoticeDialog(state))
	case state.ConfirmQuit:
		return renderModalOverlay(state, base, renderQuitConfirmDialog(state))
	}
	return base
}

func renderBase(state *State, rt Runtime) string {
	header := theme.TitleStyle.Render("Sun Stock Dashboard (" + rt.BuildVersion + ")")
	tabs := RenderTabs(state.Tab, state.HoverZone)

	var content string
	if state.Tab == TabDashboard {
		content = renderDashboard(state, rt)
	} else {
		content = renderAccount(state, rt)
	}

	helpText := state.HelpView.View(state.Keys)
	if state.Tab == TabAccount {
		helpText += " • ctrl+s save"
	}

	sections := []string{header, tabs, content}
	if state.Tab == TabDashboard && state.ShowLogs {
		state.FitLogViewportHeight([]string{header, tabs, content, helpText}, DefaultNonLogLayoutReserveMin, DefaultMinLogPanelHeight)
		sections = append(sections, renderLogPanel(state))
	}

	sections = append(sections, theme.HelpStyle.Render(helpText))
	return render.Frame(strings.Join(sections, "\n\n"), state.ContentWidth(), theme.PanelStyle)
}

func renderDashboard(state *State, rt Runtime) string {
	total := state.PageWidth()
	ResizePaneViewports(state, rt)

	statusLine := "Status: " + RenderStatus(rt.Status, rt.StatusKind) +
		"   Notifications: " + renderPushState(rt.PushState)
	actions := RenderActionsRow([]string{
		renderPushButton(state, rt),
		renderLogsButton(state),
		renderQuitButton(state),
	}, max(total-frameInnerInset, paneInnerMinWidth))
	controls := render.Frame(statusLine+"\n"+actions, total, theme.PanelStyle)

	state.SymbolView.SetContent(renderSymbolList(state, rt, state.SymbolView.Width))
	keepCursorVisible(state)
	symbols := render.Frame(theme.TitleStyle.Render("Stocks")+"\n"+state.SymbolView.View(), state.SymbolView.Width+frameInnerInset, theme.PanelStyle)

	state.DetailView.SetContent(renderDetail(rt, state.DetailView.Width))
	detailBody := WithScrollBar(state.DetailView.View(), state.DetailView.Width, state.DetailView.Height, state.DetailView.ScrollPercent())
	detail := render.Frame(detailBody, state.DetailView.Width+frameInnerInset+outerPaneGap, theme.PanelStyle)

	var panes string
	if _, _, stacked := dashboardPaneLayout(total); stacked {
		panes = symbols + "\n" + detail
	} else {
		panes = lipgloss.JoinHorizontal(lipgloss.Top, symbols, strings.Repeat(" ", outerPaneGap), detail)
	}
	return lipgloss.NewStyle().Width(total).Render(controls + "\n" + panes)
}

func renderPushState(state push.State) string {
	switch state {
	case push.StateSubscribed:
		return theme.UpStyle.Render("on")
	case push.StateSubscribing, push.StateUnsubscribing:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Render(string(state))
	case push.StateUnsupported, "":
		return theme.HelpStyle.Render("unavailable")
	default:
		return theme.HelpStyle.Render("off")
	}
}

func renderPushButton(state *State, rt Runtime) string {
	on := theme.SegmentOffStyle.Render("Alerts on")
	off := theme.SegmentOffStyle.Render("Alerts off")
	if rt.PushState == push.StateSubscribed {
		on = theme.SegmentOnStyle.Render("Alerts on")
	} else {
		off = theme.SegmentOnStyle.Render("Alerts off")
	}
	content := on + theme.SegmentBaseStyle.Render("|") + off
	disabled := !rt.Running || rt.PushState == push.StateUnsupported || rt.PushState == ""
	focused := state.Focus == state.PushIndex()
	var button string
	switch {
	case disabled && focused:
		button = theme.ButtonDisabledFocusedStyle.Render(ansi.Strip(content))
	case disabled:
		button = theme.ButtonDisabledStyle.Render(ansi.Strip(content))
	case focused:
		button = theme.ButtonFocusedStyle.Render(content)
	default:
		button = theme.ButtonStyle.Render(content)
	}
	return zone.Mark(zoneDashboardPush, button)
}

func renderLogsButton(state *State) string {
	label := "Logs"
	if state.ShowLogs {
		label = "Hide Logs"
	}
	button := theme.ButtonStyle.Render(label)
	if state.Focus == state.LogsIndex() {
		button = theme.ButtonFocusedStyle.Render(label)
	}
	return zone.Mark(zoneDashboardLogs, button)
}

func renderQuitButton(state *State) string {
	button := theme.ButtonStyle.Render("Quit")
	if state.Focus == state.QuitIndex() {
		button = theme.ButtonFocusedStyle.Render("Quit")
	}
	return zone.Mark(zoneDashboardQuit, button)
}

func renderSymbolList(state *State, rt Runtime, width int) string {
	if len(rt.Stocks) == 0 {
		placeholder := "Not signed in"
		if rt.Running || rt.Connecting {
			placeholder = "Loading..."
		}
		return renderPlaceholder(placeholder, width, max(state.SymbolView.Height, placeholderMinHeight))
	}
	width = max(width, symbolPaneMinWidth-frameInnerInset)
	focused := state.Focus == state.SymbolsIndex()
	lines := make([]string, 0, len(rt.Stocks))
	for i, stock := range rt.Stocks {
		marker := "  "
		if i == state.Cursor {
			marker = "› "
			if focused {
				marker = theme.CursorStyle.Render("› ")
			}
		}
		label := stock.Symbol
		if name := strings.TrimSpace(stock.Name); name != "" {
			label += " " + theme.HelpStyle.Render(name)
		}
		label = render.TruncateDisplayWidth(label, max(width-ansi.StringWidth(marker), 1))
		if strings.EqualFold(stock.Symbol, rt.Symbol) {
			label = theme.SelectedStyle.Render(ansi.Strip(label))
		}
		lines = append(lines, zone.Mark(zoneSymbol(i), marker+label))
	}
	return strings.Join(lines, "\n")
}

func keepCursorVisible(state *State) {
	h := state.SymbolView.Height
	if h <= 0 {
		return
	}
	switch {
	case state.Cursor < state.SymbolView.YOffset:
		state.SymbolView.SetYOffset(state.Cursor)
	case state.Cursor >= state.SymbolView.YOffset+h:
		state.SymbolView.SetYOffset(state.Cursor - h + 1)
	}
}

func renderDetail(rt Runtime, width int) string {
	if rt.Symbol == "" {
		return renderPlaceholder("Select a stock", width, placeholderMinHeight)
	}

	title := rt.Symbol
	for _, s := range rt.Stocks {
		if strings.EqualFold(s.Symbol, rt.Symbol) && s.Name != "" {
			title += " · " + s.Name
			break
		}
	}
	rows := []string{theme.TitleStyle.Render(render.TruncateDisplayWidth(title, width))}
	rows = append(rows, renderQuoteStats(rt.Quotes, width)...)
	rows = append(rows, "", renderAlertPanel(rt.Alerts, width))

	rows = append(rows, "", theme.LabelStyle.Render("News"))
	if len(rt.News) == 0 {
		rows = append(rows, theme.HelpStyle.Render("No recent news"))
	}
	for i, n := range rt.News {
		if i == maxNewsItems {
			rows = append(rows, theme.HelpStyle.Render(fmt.Sprintf("+%d more", len(rt.News)-maxNewsItems)))
			break
		}
		rows = append(rows, "• "+render.TruncateDisplayWidth(n.Headline, max(width-2, 1)))
		meta := strings.TrimSpace(strings.Join([]string{n.Source, n.CreatedAt}, "  "))
		if meta != "" {
			rows = append(rows, "  "+theme.HelpStyle.Render(render.TruncateDisplayWidth(meta, max(width-2, 1))))
		}
	}

	if len(rt.Feeds) > 0 {
		rows = append(rows, "", theme.LabelStyle.Render("Feeds"))
		for _, row := range rt.Feeds {
			dot, style := FeedDotStyle(row.Kind)
			line := style.Render(dot) + " " + row.Name
			if row.Reason != "" {
				line += " " + theme.HelpStyle.Render(row.Reason)
			}
			rows = append(rows, line)
		}
	}

	if len(rt.Daily) > 0 {
		closes := make([]float64, 0, len(rt.Daily))
		for _, q := range rt.Daily {
			closes = append(closes, q.PriceCurrent)
		}
		rows = append(rows, "", theme.LabelStyle.Render(fmt.Sprintf("Daily (%d samples)", len(rt.Daily))))
		rows = append(rows, theme.SparkStyle.Render(Sparkline(closes, width)))
	}
	return strings.Join(rows, "\n")
}

func renderQuoteStats(quotes []client.StockQuote, width int) []string {
	if len(quotes) == 0 {
		return []string{theme.HelpStyle.Render("No quotes yet")}
	}
	latest := quotes[len(quotes)-1]
	change := ChangeStyle(latest.ChangePrice)
	prices := make([]float64, 0, len(quotes))
	for _, q := range quotes {
		prices = append(prices, q.PriceCurrent)
	}
	return []string{
		fmt.Sprintf("Price: %.2f  %s", latest.PriceCurrent,
			change.Render(fmt.Sprintf("%s (%s%%)", FormatSigned(latest.ChangePrice), FormatSigned(latest.ChangePercent)))),
		"Latest Change Percent: " + change.Render(fmt.Sprintf("%.2f%%", latest.ChangePercent)),
		"Latest Change Price: " + change.Render(fmt.Sprintf("%g USD", latest.ChangePrice)),
		theme.HelpStyle.Render(fmt.Sprintf("EMA20 %.2f  EMA100 %.2f  tanh %.4f", latest.EMA20, latest.EMA100, latest.TanhEMA)),
		theme.SparkStyle.Render(Sparkline(prices, width)),
		theme.HelpStyle.Render("updated " + latest.CreatedAt),
	}
}

// renderAlertPanel shows the newest alert, or "Stable" when there is none.
func renderAlertPanel(alerts []stream.Alert, width int) string {
	message := "Stable"
	var event *stream.AlertEvent
	if len(alerts) > 0 {
		if m := strings.TrimSpace(alerts[0].Message); m != "" {
			message = m
		}
		event = alerts[0].Event
	}
	var scoreEMA, trendEMA20, trendTanh, scoreCross *float64
	if event != nil {
		scoreEMA, trendEMA20, trendTanh, scoreCross = event.ScoreEMA, event.TrendEMA20, event.TrendTanhEMA, event.ScorePCrossEMA
	}
	scoreStyle := lipgloss.NewStyle()
	if scoreEMA != nil {
		scoreStyle = ChangeStyle(*scoreEMA)
	}
	body := strings.Join([]string{
		theme.TitleStyle.Render(message),
		scoreStyle.Render(fmt.Sprintf("score ema: %s (%s, %s)", formatOptional(scoreEMA), formatOptional(trendEMA20), formatOptional(trendTanh))),
		"score price cross ema: " + formatOptional(scoreCross),
	}, "\n")
	innerWidth := max(width-theme.AlertBoxStyle.GetHorizontalFrameSize(), paneInnerMinWidth)
	return theme.AlertBoxStyle.Width(innerWidth).Render(body)
}

func formatOptional(value *float64) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *value)
}

func renderPlaceholder(text string, width int, height int) string {
	return lipgloss.NewStyle().
		Width(max(width, paneInnerMinWidth)).
		Height(max(height-1, 1)).
		AlignHorizontal(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Foreground(lipgloss.Color("245")).
		Render(text)
}

func renderAccount(state *State, rt Runtime) string {
	labels := []string{"Base URL", "Email", "Password"}
	rows := make([]string, 0, len(state.Inputs)+3)
	controlWidth := max(state.PageWidth()-frameInnerInset-accountLabelWidth-outerPaneGap, accountControlMinWidth)
	for i := range state.Inputs {
		label := labels[i]
		if state.Focus == i {
			label = theme.FocusStyle.Render("-> " + label)
		}
		state.Inputs[i].Width = controlWidth
		row := fmt.Sprintf("%-*s %s", accountLabelWidth, label+":", state.Inputs[i].View())
		rows = append(rows, zone.Mark(zoneAccountInput(i), row))
	}

	signLabel := "Sign in"
	switch {
	case rt.Running:
		signLabel = "Sign out"
	case rt.Connecting:
		signLabel = "Signing in..."
	}
	signIn := theme.ButtonStyle.Render(signLabel)
	if rt.Connecting {
		signIn = theme.ButtonDisabledStyle.Render(signLabel)
	}
	if state.Focus == state.SignInIndex() {
		signIn = theme.ButtonFocusedStyle.Render(signLabel)
	}
	save := theme.ButtonStyle.Render("Save")
	if state.Focus == state.SaveIndex() {
		save = theme.ButtonFocusedStyle.Render("Save")
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Top, zone.Mark(zoneAccountSignIn, signIn), " ", zone.Mark(zoneAccountSave, save))
	rows = append(rows, "", lipgloss.NewStyle().PaddingLeft(accountButtonsPaddingLeft).Render(buttons))
	rows = append(rows, theme.HelpStyle.Render("Save keeps the base URL for the next start. Passwords are never stored."))

	return render.Frame(strings.Join(rows, "\n"), state.PageWidth(), theme.PanelStyle)
}

func renderLogPanel(state *State) string {
	check := "[ ] Debug"
	if state.DebugOn {
		check = "[x] Debug"
	}
	debug := theme.ButtonStyle.Render(check)
	if state.Focus == state.LogsDebugIndex() {
		debug = theme.ButtonFocusedStyle.Render(check)
	}
	followHint := theme.HelpStyle.Render("ctrl+f follow")
	toolbar := lipgloss.JoinHorizontal(lipgloss.Center, theme.TitleStyle.Render("Logs"), "  ", zone.Mark(zoneDashboardLogsDebug, debug), "  ", followHint)
	withBar := WithScrollBar(state.LogView.View(), state.LogView.Width, state.LogView.Height, state.LogView.ScrollPercent())
	return render.Frame(toolbar+"\n"+withBar, state.PageWidth(), theme.PanelStyle)
}

func renderChoiceDialog(state *State, title string, text string, first, second string, firstZone, secondZone string, choice int, width int) string {
	firstButton := theme.ButtonStyle.Render(first)
	secondButton := theme.ButtonStyle.Render(second)
	if choice == ChoiceFirst {
		firstButton = theme.ButtonFocusedStyle.Render(first)
	} else {
		secondButton = theme.ButtonFocusedStyle.Render(second)
	}
	buttonRow := lipgloss.JoinHorizontal(lipgloss.Top, zone.Mark(firstZone, firstButton), "  ", zone.Mark(secondZone, secondButton))
	dialogWidth := min(state.ContentWidth()-dialogHorizontalInset, width)
	buttonLine := lipgloss.NewStyle().
		Width(max(dialogWidth-frameInnerInset, 1)).
		AlignHorizontal(lipgloss.Center).
		Render(buttonRow)

	body := strings.Join([]string{
		theme.TitleStyle.Render(title),
		text,
		buttonLine,
		theme.HelpStyle.Render("tab/arrow switch • enter confirms"),
	}, "\n")
	return render.Frame(body, dialogWidth, theme.PanelStyle)
}

func renderQuitConfirmDialog(state *State) string {
	return renderChoiceDialog(state, "Quit the dashboard?", "Live quote and alert streams will be closed.",
		"Cancel", "Quit", zoneDialogQuitCancel, zoneDialogQuitAccept, state.ConfirmQuitChoice, quitDialogWidth)
}

func renderPermissionDialog(state *State) string {
	return renderChoiceDialog(state, "Allow notifications?", "The dashboard will show a notification for every price alert.",
		"Block", "Allow", zoneDialogPermissionDeny, zoneDialogPermissionAllow, state.PermissionChoice, permissionDialogWidth)
}

func renderErrorDialog(state *State) string {
	body := strings.Join([]string{
		theme.ErrorStyle.Render("Error"),
		state.ErrorModalText,
		theme.HelpStyle.Render("Press Enter or Esc to close"),
	}, "\n")
	return render.Frame(body, min(state.ContentWidth()-dialogHorizontalInset, errorDialogWidth), theme.PanelStyle)
}

func renderNoticeDialog(state *State) string {
	body := strings.Join([]string{
		theme.TitleStyle.Render("Notice"),
		state.NoticeText,
		theme.HelpStyle.Render("Press Enter or Esc to close"),
	}, "\n")
	return render.Frame(body, min(state.ContentWidth()-dialogHorizontalInset, errorDialogWidth), theme.PanelStyle)
}

func renderModalOverlay(state *State, base string, dialog string) string {
	faded := theme.ModalBackdrop.Render(ansi.Strip(base))
	overlay := lipgloss.Place(state.Width, state.Height, lipgloss.Center, lipgloss.Center, dialog)
	return faded + "\n" + overlay
}

// dashboardPaneLayout splits the page into the symbol list and the detail
// pane, stacking them when the terminal is too narrow.
func dashboardPaneLayout(total int) (int, int, bool) {
	left := min(max(total/3, symbolPaneMinWidth), symbolPaneMaxWidth)
	right := total - left - outerPaneGap
	if total < sideBySideMinTotalWidth || right < detailPaneMinWidth {
		return total, total, true
	}
	return left, right, false
}

func ResizePaneViewports(state *State, rt Runtime) {
	total := state.PageWidth()
	left, right, stacked := dashboardPaneLayout(total)
	rows := defaultPaneRows
	if state.Height >= largePaneHeightCutover {
		rows = largePaneRows
	}
	symbolRows := rows
	if stacked {
		symbolRows = min(rows, max(len(rt.Stocks), placeholderMinHeight))
	}
	state.SymbolView.Width = max(left-frameInnerInset, paneInnerMinWidth)
	state.SymbolView.Height = symbolRows
	state.DetailView.Width = max(right-frameInnerInset-outerPaneGap, paneInnerMinWidth)
	state.DetailView.Height = rows
}
