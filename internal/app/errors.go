package app

import "errors"

var (
	ErrLoginRequired        = errors.New("dashboard login required")
	ErrAuthenticationFailed = errors.New("dashboard authentication failed")
	ErrLoggedOut            = errors.New("dashboard signed out")
	ErrNotRunning           = errors.New("dashboard is not running")
	ErrNoStocks             = errors.New("no stocks available")
)
