package view

type ActivateEffect int

const (
	ActivateEffectNone ActivateEffect = iota
	ActivateEffectSelectSymbol
	ActivateEffectTogglePush
	ActivateEffectRequestQuit
	ActivateEffectSignIn
	ActivateEffectLogout
	ActivateEffectSaveSettings
	ActivateEffectDebugLevelChanged
)

// ReduceActivate resolves the focused control. running reports whether a
// dashboard session is live, which turns Sign in into Sign out.
func ReduceActivate(state State, running bool, connecting bool) (State, ActivateEffect) {
	if state.Tab == TabDashboard {
		switch state.Focus {
		case state.SymbolsIndex():
			if !running {
				return state, ActivateEffectNone
			}
			return state, ActivateEffectSelectSymbol
		case state.PushIndex():
			if !running {
				state.NoticeText = "Sign in before enabling notifications."
				return state, ActivateEffectNone
			}
			return state, ActivateEffectTogglePush
		case state.LogsIndex():
			state.ShowLogs = !state.ShowLogs
			if state.ShowLogs {
				state.FollowLogs = true
				state.LogView.GotoBottom()
			}
			if !state.ShowLogs && state.Focus >= state.FocusCount() {
				state.Focus = state.FocusCount() - 1
			}
			return state, ActivateEffectNone
		case state.QuitIndex():
			return state, ActivateEffectRequestQuit
		case state.LogsDebugIndex():
			state.DebugOn = !state.DebugOn
			return state, ActivateEffectDebugLevelChanged
		default:
			return state, ActivateEffectNone
		}
	}

	switch state.Focus {
	case PasswordInputIndex, state.SignInIndex():
		if connecting {
			return state, ActivateEffectNone
		}
		if running {
			if state.Focus == PasswordInputIndex {
				return state, ActivateEffectNone
			}
			return state, ActivateEffectLogout
		}
		_, email, password := state.Credentials()
		if email == "" || password == "" {
			state.ErrorModalText = "Email and password are required."
			return state, ActivateEffectNone
		}
		return state, ActivateEffectSignIn
	case state.SaveIndex():
		return state, ActivateEffectSaveSettings
	default:
		return state, ActivateEffectNone
	}
}
