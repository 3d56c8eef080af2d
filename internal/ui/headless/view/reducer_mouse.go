package view

import (
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
)

type MouseEffect int

const (
	MouseEffectNone MouseEffect = iota
	MouseEffectActivateFocused
	MouseEffectConfirmQuitAccept
	MouseEffectSelectSymbol
	MouseEffectPermissionAnswered
)

func inZone(id string, msg tea.MouseMsg) bool {
	return zone.Get(id).InBounds(msg)
}

// ReduceMouse scrolls the viewports under the pointer and resolves clicks
// against the zones marked by the last render.
func ReduceMouse(state State, msg tea.MouseMsg, symbolCount int) (State, tea.Cmd, MouseEffect) {
	if msg.Action == tea.MouseActionMotion {
		state.HoverZone = ""
		for _, id := range []string{zoneTabDashboard, zoneTabAccount} {
			if inZone(id, msg) {
				state.HoverZone = id
			}
		}
		return state, nil, MouseEffectNone
	}

	if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionRelease {
		next, effect := reduceClick(state, msg, symbolCount)
		return next, nil, effect
	}

	if state.modalOpen() {
		return state, nil, MouseEffectNone
	}

	var cmds []tea.Cmd
	if state.Tab == TabDashboard {
		var cmd tea.Cmd
		state.SymbolView, cmd = state.SymbolView.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		state.DetailView, cmd = state.DetailView.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if state.ShowLogs {
		var cmd tea.Cmd
		state.LogView, cmd = state.LogView.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		state.FollowLogs = state.LogView.AtBottom()
	}
	return state, tea.Batch(cmds...), MouseEffectNone
}

func (s State) modalOpen() bool {
	return s.ErrorModalText != "" || s.NoticeText != "" || s.PermissionPrompt || s.ConfirmQuit
}

func reduceClick(state State, msg tea.MouseMsg, symbolCount int) (State, MouseEffect) {
	switch {
	case state.ErrorModalText != "":
		state.ErrorModalText = ""
		return state, MouseEffectNone
	case state.PermissionPrompt:
		switch {
		case inZone(zoneDialogPermissionAllow, msg):
			state.PermissionChoice = PermissionChoiceAllow
		case inZone(zoneDialogPermissionDeny, msg):
			state.PermissionChoice = PermissionChoiceBlock
		default:
			return state, MouseEffectNone
		}
		state.PermissionPrompt = false
		return state, MouseEffectPermissionAnswered
	case state.NoticeText != "":
		state.NoticeText = ""
		return state, MouseEffectNone
	case state.ConfirmQuit:
		switch {
		case inZone(zoneDialogQuitAccept, msg):
			return state, MouseEffectConfirmQuitAccept
		case inZone(zoneDialogQuitCancel, msg):
			state.ConfirmQuit = false
		}
		return state, MouseEffectNone
	}

	switch {
	case inZone(zoneTabDashboard, msg):
		state.Tab = TabDashboard
		state.Focus = 0
		state.ApplyFocus()
		return state, MouseEffectNone
	case inZone(zoneTabAccount, msg):
		state.Tab = TabAccount
		state.Focus = 0
		state.ApplyFocus()
		return state, MouseEffectNone
	}

	if state.Tab == TabDashboard {
		for i := range symbolCount {
			if !inZone(zoneSymbol(i), msg) {
				continue
			}
			state.Focus = state.SymbolsIndex()
			if i == state.Cursor {
				return state, MouseEffectNone
			}
			state.Cursor = i
			return state, MouseEffectSelectSymbol
		}
		controls := []struct {
			id    string
			focus int
		}{
			{id: zoneDashboardPush, focus: state.PushIndex()},
			{id: zoneDashboardLogs, focus: state.LogsIndex()},
			{id: zoneDashboardQuit, focus: state.QuitIndex()},
			{id: zoneDashboardLogsDebug, focus: state.LogsDebugIndex()},
		}
		for _, c := range controls {
			if inZone(c.id, msg) {
				state.Focus = c.focus
				return state, MouseEffectActivateFocused
			}
		}
		return state, MouseEffectNone
	}

	for i := range state.Inputs {
		if inZone(zoneAccountInput(i), msg) {
			state.Focus = i
			state.ApplyFocus()
			return state, MouseEffectNone
		}
	}
	switch {
	case inZone(zoneAccountSignIn, msg):
		state.Focus = state.SignInIndex()
		state.ApplyFocus()
		return state, MouseEffectActivateFocused
	case inZone(zoneAccountSave, msg):
		state.Focus = state.SaveIndex()
		state.ApplyFocus()
		return state, MouseEffectActivateFocused
	}
	return state, MouseEffectNone
}
