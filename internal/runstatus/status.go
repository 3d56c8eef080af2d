package runstatus

import "strings"

const (
	SigningIn        = "Signing in"
	Authenticated    = "Authenticated"
	StocksLoaded     = "Stocks loaded"
	Connected        = "Live"
	Reconnecting     = "Reconnecting"
	Disconnected     = "Disconnected"
	DisconnectedAuth = "Signed out"
)

const (
	KeySigningIn        = "signing in"
	KeyAuthenticated    = "authenticated"
	KeyStocksLoaded     = "stocks loaded"
	KeyConnected        = "live"
	KeyReconnecting     = "reconnecting"
	KeyDisconnected     = "disconnected"
	KeyDisconnectedAuth = "signed out"
)

func Key(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}
