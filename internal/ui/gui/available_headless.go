//go:build headless

package gui

import (
	"context"

	"sunstock-dashboard/internal/config"
)

func Available() bool {
	return false
}

// Run is never reached in headless builds.
func Run(context.Context, string, config.Options) {}
