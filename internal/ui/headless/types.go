package headless

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"sunstock-dashboard/internal/client"
	"sunstock-dashboard/internal/config"
	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/push"
	"sunstock-dashboard/internal/runtime"
	"sunstock-dashboard/internal/stream"
	"sunstock-dashboard/internal/ui/headless/health"
	headlessview "sunstock-dashboard/internal/ui/headless/view"
	"sunstock-dashboard/internal/worker"
)

const headlessLogLineLimit = 5_000

const (
	minLogPanelHeight      = 8
	nonLogLayoutReserveMin = 24
)

type logMsg string
type statusMsg string
type tickMsg struct{}
type quitNowMsg struct{}

type runDoneMsg struct {
	err error
}

type startResultMsg struct {
	err error
}

type stocksMsg []client.Stock
type symbolMsg string
type alertsMsg []stream.Alert
type pushStateMsg push.State
type loginNoticeMsg struct{}
type focusMsg struct{}
type notificationMsg worker.Notification
type settingsChangedMsg config.DashboardSettings

type quotesMsg struct {
	symbol string
	quotes []client.StockQuote
}

type dailyMsg struct {
	symbol string
	daily  []client.StockQuote
}

type newsMsg struct {
	symbol string
	news   []client.CompanyNews
}

type streamStateMsg struct {
	name  string
	state stream.State
	at    time.Time
}

type permissionRequestMsg struct {
	reply chan<- push.Permission
}

type pushResultMsg struct {
	state push.State
	err   error
}

type actionResultMsg struct {
	action string
	err    error
}

type statusKind int

const (
	statusIdle statusKind = iota
	statusConnecting
	statusConnected
	statusStopping
	statusError
)

type modelDeps struct {
	runner      *runtime.Controller
	logger      *logging.Logger
	unsubscribe func()
	rootCtx     context.Context
	rootCancel  context.CancelFunc
	program     *tea.Program
}

type modelChannels struct {
	logCh    chan string
	statusCh chan string
}

type modelRuntime struct {
	opts       config.Options
	running    bool
	connecting bool
	quitting   bool
	status     string
	kind       statusKind

	stocks []client.Stock
	symbol string
	quotes []client.StockQuote
	daily  []client.StockQuote
	alerts []stream.Alert
	news   []client.CompanyNews

	pushState         push.State
	permissionReply   chan<- push.Permission
	lastNotification  *worker.Notification
	feeds             map[string]health.Feed
	feedRows          []health.Row
	lastHealthRefresh time.Time
}

type headlessModel struct {
	buildVersion string
	modelDeps
	modelChannels
	modelRuntime
	cleanupOnce sync.Once
	ui          headlessview.State
}
