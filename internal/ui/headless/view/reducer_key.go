package view

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type KeyEffect int

const (
	KeyEffectNone KeyEffect = iota
	KeyEffectRequestQuit
	KeyEffectActivateFocused
	KeyEffectSaveSettings
	KeyEffectConfirmQuitAccept
	KeyEffectTogglePush
	KeyEffectLogout
	KeyEffectSelectSymbol
	KeyEffectPermissionAnswered
	KeyEffectNoticeAccepted
)

const confirmChoiceCount = 2

const (
	confirmChoiceQuit      = ChoiceSecond
	PermissionChoiceAllow  = ChoiceSecond
	PermissionChoiceBlock  = ChoiceFirst
	permissionChoiceOnOpen = PermissionChoiceAllow
)

// ReduceKey applies a key press to state. symbolCount bounds the symbol
// cursor on the dashboard tab.
func ReduceKey(state State, msg tea.KeyMsg, symbolCount int) (State, KeyEffect) {
	if state.ErrorModalText != "" {
		if msg.String() == "esc" || key.Matches(msg, state.Keys.Activate) {
			state.ErrorModalText = ""
		}
		return state, KeyEffectNone
	}

	if state.PermissionPrompt {
		switch {
		case msg.String() == "esc":
			state.PermissionPrompt = false
			state.PermissionChoice = PermissionChoiceBlock
			return state, KeyEffectPermissionAnswered
		case key.Matches(msg, state.Keys.ModalToggle):
			state.PermissionChoice = (state.PermissionChoice + 1) % confirmChoiceCount
			return state, KeyEffectNone
		case key.Matches(msg, state.Keys.Activate):
			state.PermissionPrompt = false
			return state, KeyEffectPermissionAnswered
		default:
			return state, KeyEffectNone
		}
	}

	if state.NoticeText != "" {
		switch {
		case msg.String() == "esc":
			state.NoticeText = ""
		case key.Matches(msg, state.Keys.Activate):
			state.NoticeText = ""
			return state, KeyEffectNoticeAccepted
		}
		return state, KeyEffectNone
	}

	if state.ConfirmQuit {
		switch {
		case msg.String() == "esc":
			state.ConfirmQuit = false
			return state, KeyEffectNone
		case key.Matches(msg, state.Keys.ModalToggle):
			state.ConfirmQuitChoice = (state.ConfirmQuitChoice + 1) % confirmChoiceCount
			return state, KeyEffectNone
		case key.Matches(msg, state.Keys.Activate):
			if state.ConfirmQuitChoice == confirmChoiceQuit {
				return state, KeyEffectConfirmQuitAccept
			}
			state.ConfirmQuit = false
			return state, KeyEffectNone
		default:
			return state, KeyEffectNone
		}
	}

	switch {
	case key.Matches(msg, state.Keys.Quit):
		return state, KeyEffectRequestQuit
	case key.Matches(msg, state.Keys.Logout):
		return state, KeyEffectLogout
	case msg.String() == "ctrl+f" && state.Tab == TabDashboard && state.ShowLogs:
		state.FollowLogs = true
		state.LogView.GotoBottom()
		return state, KeyEffectNone
	case msg.String() == "ctrl+s" && state.Tab == TabAccount:
		return state, KeyEffectSaveSettings
	case state.Tab == TabDashboard && key.Matches(msg, state.Keys.Push):
		return state, KeyEffectTogglePush
	case state.Tab == TabDashboard && key.Matches(msg, state.Keys.SymbolUp):
		return moveCursor(state, -1, symbolCount)
	case state.Tab == TabDashboard && key.Matches(msg, state.Keys.SymbolDown):
		return moveCursor(state, 1, symbolCount)
	case key.Matches(msg, state.Keys.PrevTab):
		state.Tab = TabDashboard
		state.Focus = 0
		state.ApplyFocus()
		return state, KeyEffectNone
	case key.Matches(msg, state.Keys.NextTab):
		state.Tab = TabAccount
		state.Focus = 0
		state.ApplyFocus()
		return state, KeyEffectNone
	case key.Matches(msg, state.Keys.NextFocus):
		state.Focus = (state.Focus + 1) % state.FocusCount()
		state.ApplyFocus()
		return state, KeyEffectNone
	case key.Matches(msg, state.Keys.PrevFocus):
		state.Focus = (state.Focus + state.FocusCount() - 1) % state.FocusCount()
		state.ApplyFocus()
		return state, KeyEffectNone
	case key.Matches(msg, state.Keys.Activate):
		if state.Tab == TabDashboard || state.Focus >= len(state.Inputs) {
			return state, KeyEffectActivateFocused
		}
		if msg.String() == "enter" && state.Focus == PasswordInputIndex {
			return state, KeyEffectActivateFocused
		}
	}

	return state, KeyEffectNone
}

// OpenPermissionPrompt shows the notification permission dialog.
func (s State) OpenPermissionPrompt() State {
	s.PermissionPrompt = true
	s.PermissionChoice = permissionChoiceOnOpen
	return s
}

func moveCursor(state State, delta int, count int) (State, KeyEffect) {
	if count == 0 {
		return state, KeyEffectNone
	}
	prev := state.Cursor
	state = state.WithCursor(state.Cursor+delta, count)
	state.Focus = state.SymbolsIndex()
	if state.Cursor == prev {
		return state, KeyEffectNone
	}
	return state, KeyEffectSelectSymbol
}
