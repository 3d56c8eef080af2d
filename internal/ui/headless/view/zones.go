package view

import "fmt"

const (
	zoneTabDashboard = "tab-dashboard"
	zoneTabAccount   = "tab-account"

	zoneDashboardPush      = "dashboard-push"
	zoneDashboardLogs      = "dashboard-logs"
	zoneDashboardQuit      = "dashboard-quit"
	zoneDashboardLogsDebug = "dashboard-logs-debug"

	zoneAccountSignIn = "account-sign-in"
	zoneAccountSave   = "account-save"

	zoneDialogQuitCancel      = "dialog-quit-cancel"
	zoneDialogQuitAccept      = "dialog-quit-accept"
	zoneDialogPermissionAllow = "dialog-permission-allow"
	zoneDialogPermissionDeny  = "dialog-permission-deny"
)

func zoneSymbol(index int) string {
	return fmt.Sprintf("symbol-%d", index)
}

func zoneAccountInput(index int) string {
	return fmt.Sprintf("account-input-%d", index)
}
