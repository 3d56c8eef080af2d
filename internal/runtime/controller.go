package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sunstock-dashboard/internal/app"
	"sunstock-dashboard/internal/config"
	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/webpush"
)

type Controller struct {
	rootCtx   context.Context
	version   string
	mu        sync.Mutex
	cancel    context.CancelFunc
	running   bool
	dashboard *app.Dashboard
	wg        sync.WaitGroup
}

type StartHooks struct {
	app.Callbacks
	// Prompter answers notification permission requests.
	Prompter webpush.Prompter
	OnExit   func(error)
}

func NewController(rootCtx context.Context, version string) *Controller {
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	return &Controller{rootCtx: rootCtx, version: version}
}

func (c *Controller) Start(opts config.Options, logger *logging.Logger, hooks StartHooks) error {
	if logger == nil {
		panic("runtime.Controller.Start: logger must not be nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("dashboard is already running")
	}
	if err := config.ValidateRequired(opts); err != nil {
		return err
	}
	logger.Debug("runtime start requested",
		logging.Field("base_url", opts.BaseURL),
		logging.Field("symbol", opts.Symbol),
		logging.Field("has_account", opts.Email != ""),
		logging.Field("has_prompter", hooks.Prompter != nil),
	)

	service, err := NewServiceWithHooks(opts, c.version, logger, hooks)
	if err != nil {
		return err
	}

	parent := c.rootCtx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	c.cancel = cancel
	c.running = true
	c.dashboard = service.Dashboard()
	c.wg.Go(func() {
		defer cancel()
		runErr := service.RunContext(ctx)
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			logger.Debug("runtime service exited due to context cancellation", logging.Field("error", runErr))
		} else if runErr != nil {
			logger.Warn("runtime service exited with error", logging.Field("error", runErr))
		} else {
			logger.Info("runtime service exited")
		}
		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.dashboard = nil
		c.mu.Unlock()

		if hooks.OnExit != nil {
			hooks.OnExit(runErr)
		}
	})

	return nil
}

// Dashboard returns the running dashboard, or nil when stopped.
func (c *Controller) Dashboard() *app.Dashboard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dashboard
}

func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Controller) Wait(timeout time.Duration) bool {
	waitDone := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(waitDone)
	}()
	if timeout <= 0 {
		<-waitDone
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-waitDone:
		return true
	case <-timer.C:
		return false
	}
}

func (c *Controller) StopAndWait(timeout time.Duration) bool {
	c.Stop()
	return c.Wait(timeout)
}

func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
