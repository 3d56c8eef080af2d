//go:build !headless

package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"sunstock-dashboard/internal/push"
)

func (c *controller) setupTray() {
	if _, ok := c.app.(desktop.App); !ok {
		return
	}
	c.refreshTrayMenu()
}

func (c *controller) refreshTrayMenu() {
	if c.shuttingDown {
		return
	}
	desk, ok := c.app.(desktop.App)
	if !ok {
		return
	}

	desk.SetSystemTrayIcon(dashboardIconResource())

	openItem := fyne.NewMenuItem("Open Window", func() {
		c.win.Show()
		c.win.RequestFocus()
	})

	pushItem := fyne.NewMenuItem("Notifications", c.togglePush)
	pushItem.Checked = c.pushState == push.StateSubscribed
	pushItem.Disabled = !c.running || c.pushState == push.StateUnsupported || c.pushState == ""

	browserItem := fyne.NewMenuItem("Open in browser", c.openInBrowser)
	browserItem.Disabled = !c.running

	alertItem := fyne.NewMenuItem("Open latest alert", c.clickNotification)
	alertItem.Disabled = !c.running || c.lastNotification == nil

	showLogsItem := fyne.NewMenuItem("Show Logs", func() {
		c.setLogVisibility(!c.logWindowOpen)
		c.refreshTrayMenu()
	})
	showLogsItem.Checked = c.logWindowOpen

	signOutItem := fyne.NewMenuItem("Sign out", c.logout)
	signOutItem.Disabled = !c.running && !c.connecting

	exitItem := fyne.NewMenuItem("Exit", c.requestQuit)

	tray := fyne.NewMenu("Sun Stock Dashboard",
		openItem,
		pushItem,
		browserItem,
		alertItem,
		fyne.NewMenuItemSeparator(),
		showLogsItem,
		signOutItem,
		fyne.NewMenuItemSeparator(),
		exitItem,
	)
	desk.SetSystemTrayMenu(tray)
}
