package headless

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"sunstock-dashboard/internal/config"
	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/runtime"
	"sunstock-dashboard/internal/ui/headless/health"
	headlessview "sunstock-dashboard/internal/ui/headless/view"
)

const (
	logChannelBufferSize    = 512
	statusChannelBufferSize = 16
	updateTickInterval      = 120 * time.Millisecond
	shutdownTimeout         = 3 * time.Second
	runErrorExitCode        = 1
)

func Run(rootCtx context.Context, buildVersion string, opts config.Options) {
	defer forceDisableMouseTracking()

	if saved, loadErr := config.LoadSettings(); loadErr == nil {
		opts = config.MergeOptionsWithSettings(opts, saved)
	}
	opts = config.ApplyDefaults(opts)

	logger := logging.New(false)
	if logger == nil {
		panic("headless.Run: logging.New returned nil")
	}
	logger.SetDebugEnabled(opts.Debug)
	if err := logger.EnableFilePersistence("", 0); err != nil {
		logger.Warn("failed to enable file log persistence", logging.Field("error", err))
	}
	logger.SetTerminalOutputEnabled(false)
	logger.Info("starting dashboard TUI", logging.Field("version", buildVersion))

	m := newHeadlessModel(rootCtx, buildVersion, opts, logger)
	zone.NewGlobal()
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())
	m.program = program
	result, runErr := program.Run()
	model, _ := result.(*headlessModel)
	if model != nil {
		model.cleanup()
	}
	_ = logger.Close()
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		os.Exit(runErrorExitCode)
	}
}

func forceDisableMouseTracking() {
	_, _ = os.Stdout.WriteString("\x1b[?1000l\x1b[?1002l\x1b[?1003l\x1b[?1006l\x1b[?1015l")
}

func newHeadlessModel(rootCtx context.Context, buildVersion string, opts config.Options, logger *logging.Logger) *headlessModel {
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	runCtx, runCancel := context.WithCancel(rootCtx)

	m := &headlessModel{
		buildVersion: buildVersion,
		modelDeps: modelDeps{
			runner:     runtime.NewController(runCtx, buildVersion),
			logger:     logger,
			rootCtx:    runCtx,
			rootCancel: runCancel,
		},
		modelChannels: modelChannels{
			logCh:    make(chan string, logChannelBufferSize),
			statusCh: make(chan string, statusChannelBufferSize),
		},
		modelRuntime: modelRuntime{
			opts:   opts,
			status: "Idle",
			kind:   statusIdle,
			feeds:  map[string]health.Feed{},
		},
		ui: headlessview.NewState(opts),
	}

	m.unsubscribe = logger.Subscribe(func(event logging.Event) {
		line := logging.FormatEventANSI(event)
		select {
		case m.logCh <- line:
		default:
			select {
			case <-m.logCh:
			default:
			}
			m.logCh <- line
		}
	})

	return m
}

func (m *headlessModel) Init() tea.Cmd {
	return tea.Batch(
		waitForLog(m.logCh),
		waitForStatus(m.statusCh),
		tickCmd(),
		m.watchSettingsCmd(),
		m.startDashboardCmd(true),
	)
}

// send delivers msg to the running program. Runtime callbacks fire from
// their own goroutines, so they never touch model state directly.
func (m *headlessModel) send(msg tea.Msg) {
	if m.program == nil {
		return
	}
	m.program.Send(msg)
}

func (m *headlessModel) watchSettingsCmd() tea.Cmd {
	ctx := m.rootCtx
	return func() tea.Msg {
		go func() {
			err := config.WatchSettings(ctx, m.logger, func(settings config.DashboardSettings) {
				m.send(settingsChangedMsg(settings))
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Warn("settings watcher stopped", logging.Field("error", err))
			}
		}()
		return nil
	}
}

func waitForLog(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-ch
		if !ok {
			return nil
		}
		return logMsg(line)
	}
}

func waitForStatus(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		status, ok := <-ch
		if !ok {
			return nil
		}
		return statusMsg(status)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(updateTickInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}
