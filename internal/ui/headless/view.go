package headless

import (
	zone "github.com/lrstanley/bubblezone"

	headlessview "sunstock-dashboard/internal/ui/headless/view"
)

// runtimeView projects mutable runtime state into the render DTO consumed by the view package.
func (m *headlessModel) runtimeView() headlessview.Runtime {
	return headlessview.Runtime{
		BuildVersion: m.buildVersion,
		Running:      m.running,
		Connecting:   m.connecting,
		Status:       m.status,
		StatusKind:   int(m.kind),
		Stocks:       m.stocks,
		Symbol:       m.symbol,
		Quotes:       m.quotes,
		Daily:        m.daily,
		Alerts:       m.alerts,
		News:         m.news,
		Feeds:        m.feedRows,
		PushState:    m.pushState,
	}
}

// View is the Bubble Tea render entrypoint; rendering is delegated to the pure view package.
func (m *headlessModel) View() string {
	return zone.Scan(headlessview.RenderApp(&m.ui, m.runtimeView()))
}
