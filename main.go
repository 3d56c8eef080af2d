package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sunstock-dashboard/internal/config"
	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/runtime"
	"sunstock-dashboard/internal/ui/gui"
	"sunstock-dashboard/internal/ui/headless"

	flags "github.com/jessevdk/go-flags"
)

var BuildVersion = "dev"

const alreadyRunningMessage = "Sun Stock Dashboard is already running."

func main() {
	rootCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	opts, err := config.ParseOptions()
	if err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if opts.Logout {
		os.Exit(clearSession(opts))
	}

	lock, lockedByOther, lockErr := acquireInstanceLock()
	if lockErr != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize single-instance lock:", lockErr)
		os.Exit(2)
	}
	if lockedByOther {
		if !gui.Available() || opts.Headless {
			fmt.Fprintln(os.Stderr, alreadyRunningMessage)
		} else {
			hideAndDetachConsoleForGUI()
			showAlreadyRunningDialog()
		}
		os.Exit(1)
	}
	defer func() {
		_ = lock.Release()
	}()

	// Headless-tag builds always run headless; runtime UI selection is ignored.
	if !gui.Available() {
		headless.Run(rootCtx, BuildVersion, opts)
		return
	}

	if opts.Headless {
		headless.Run(rootCtx, BuildVersion, opts)
		return
	}
	hideAndDetachConsoleForGUI()
	gui.Run(rootCtx, BuildVersion, opts)
}

// clearSession forgets the stored tokens for the configured origin and
// returns the process exit code.
func clearSession(opts config.Options) int {
	if saved, err := config.LoadSettings(); err == nil {
		opts = config.MergeOptionsWithSettings(opts, saved)
	}
	opts = config.ApplyDefaults(opts)
	logger := logging.New(opts.Debug)
	defer logger.Close()
	if err := runtime.ClearStoredSession(opts, logger); err != nil {
		logger.Error("failed to clear stored session", logging.Field("error", err))
		return 1
	}
	return 0
}
