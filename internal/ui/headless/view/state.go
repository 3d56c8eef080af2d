package view

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"sunstock-dashboard/internal/config"
	"sunstock-dashboard/internal/ui/headless/keyboard"
)

const (
	inputCount            = 3
	defaultInputCharLimit = 2048
	defaultInputWidth     = 60
	BaseURLInputIndex     = 0
	EmailInputIndex       = 1
	PasswordInputIndex    = 2
	defaultTab            = TabDashboard
	defaultAnimPhase      = 0
	defaultLogViewWidth   = 80
	defaultLogViewHeight  = 12
	defaultPaneWidth      = 24
	defaultPaneHeight     = 12
	maxAnimPhaseValue     = 1_000_000_000
)

const (
	ChoiceFirst  = 0
	ChoiceSecond = 1
)

type State struct {
	Inputs []textinput.Model
	Focus  int
	Tab    int
	Cursor int

	HelpView help.Model
	Keys     keyboard.Map

	ShowLogs   bool
	FollowLogs bool
	DebugOn    bool

	LogText    string
	LogView    viewport.Model
	SymbolView viewport.Model
	DetailView viewport.Model

	Width     int
	Height    int
	AnimPhase int

	ConfirmQuit       bool
	ConfirmQuitChoice int
	PermissionPrompt  bool
	PermissionChoice  int
	ErrorModalText    string
	NoticeText        string
	HoverZone         string
}

func NewState(opts config.Options) State {
	inputs := make([]textinput.Model, inputCount)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].CharLimit = defaultInputCharLimit
		inputs[i].Width = defaultInputWidth
		inputs[i].Prompt = ""
	}
	inputs[BaseURLInputIndex].Placeholder = config.DefaultBaseURL
	inputs[BaseURLInputIndex].SetValue(strings.TrimSpace(opts.BaseURL))
	inputs[EmailInputIndex].Placeholder = "you@example.com"
	inputs[EmailInputIndex].SetValue(strings.TrimSpace(opts.Email))
	inputs[PasswordInputIndex].Placeholder = "Password"
	inputs[PasswordInputIndex].EchoMode = textinput.EchoPassword
	inputs[PasswordInputIndex].EchoCharacter = '•'
	inputs[PasswordInputIndex].SetValue(opts.Password)

	helpView := help.New()
	helpView.Styles.ShortKey = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	helpView.Styles.FullKey = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	helpView.Styles.ShortDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpView.Styles.FullDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpView.Styles.ShortSeparator = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	helpView.Styles.FullSeparator = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	helpView.Styles.Ellipsis = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	return State{
		Inputs:     inputs,
		Tab:        defaultTab,
		HelpView:   helpView,
		Keys:       keyboard.New(),
		DebugOn:    opts.Debug,
		FollowLogs: true,
		AnimPhase:  defaultAnimPhase,
		LogView:    viewport.New(defaultLogViewWidth, defaultLogViewHeight),
		SymbolView: viewport.New(defaultPaneWidth, defaultPaneHeight),
		DetailView: viewport.New(defaultLogViewWidth, defaultPaneHeight),
	}
}

func (s State) WithWindowSize(width int, height int) State {
	s.Width = width
	s.Height = height
	return s
}

func (s State) WithTick() State {
	s.AnimPhase++
	if s.AnimPhase > maxAnimPhaseValue {
		s.AnimPhase = defaultAnimPhase
	}
	return s
}

// Credentials returns the account form values.
func (s State) Credentials() (baseURL, email, password string) {
	return strings.TrimSpace(s.Inputs[BaseURLInputIndex].Value()),
		strings.TrimSpace(s.Inputs[EmailInputIndex].Value()),
		s.Inputs[PasswordInputIndex].Value()
}

// WithPasswordCleared drops the password once it has been used.
func (s State) WithPasswordCleared() State {
	s.Inputs[PasswordInputIndex].SetValue("")
	return s
}

// WithCursor clamps the symbol cursor to count rows.
func (s State) WithCursor(cursor int, count int) State {
	if count <= 0 {
		s.Cursor = 0
		return s
	}
	s.Cursor = min(max(cursor, 0), count-1)
	return s
}
