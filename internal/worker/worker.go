// Package worker handles push and notification events outside the dashboard
// views, the way a browser service worker does. It runs as a single
// goroutine that owns its state and is driven only by messages.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/runctx"
)

type Message interface {
	isMessage()
}

type InstallMsg struct{}

type ActivateMsg struct{}

type PushMsg struct {
	Data []byte
}

type NotificationClickMsg struct {
	Notification Notification
}

func (InstallMsg) isMessage()           {}
func (ActivateMsg) isMessage()          {}
func (PushMsg) isMessage()              {}
func (NotificationClickMsg) isMessage() {}

type Lifecycle string

const (
	LifecycleParsed    Lifecycle = "parsed"
	LifecycleInstalled Lifecycle = "installed"
	LifecycleActivated Lifecycle = "activated"
)

const mailboxSize = 32

var ErrStopped = errors.New("worker stopped")

type envelope struct {
	ctx  context.Context
	msg  Message
	done chan error
}

type Worker struct {
	notifier Notifier
	clients  Clients
	origin   *url.URL
	logger   *logging.Logger
	mailbox  chan envelope
	stopped  chan struct{}

	lifecycle   atomic.Value
	skipWaiting atomic.Bool
}

// New returns a worker resolving relative notification targets against
// origin.
func New(notifier Notifier, clients Clients, origin string, logger *logging.Logger) (*Worker, error) {
	if logger == nil {
		panic("worker.New: logger must not be nil")
	}
	base, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return nil, fmt.Errorf("parse worker origin: %w", err)
	}
	w := &Worker{
		notifier: notifier,
		clients:  clients,
		origin:   base,
		logger:   logger.With(logging.Field("component", "worker")),
		mailbox:  make(chan envelope, mailboxSize),
		stopped:  make(chan struct{}),
	}
	w.lifecycle.Store(LifecycleParsed)
	return w, nil
}

func (w *Worker) Lifecycle() Lifecycle {
	return w.lifecycle.Load().(Lifecycle)
}

// Run processes messages one at a time until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.stopped)
	for {
		env, ok := runctx.RecvOrDone(ctx, "notification worker", w.logger, w.mailbox)
		if !ok {
			return
		}
		err := w.handle(env.ctx, env.msg)
		if env.done != nil {
			env.done <- err
		}
	}
}

// Post enqueues msg and waits until it has been handled.
func (w *Worker) Post(ctx context.Context, msg Message) error {
	done := make(chan error, 1)
	select {
	case <-w.stopped:
		return ErrStopped
	default:
	}
	if !runctx.SendOrDone(ctx, "notification worker post", w.logger, w.mailbox, envelope{ctx: ctx, msg: msg, done: done}) {
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-w.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch enqueues msg without waiting. It reports false when the mailbox
// is full or the worker has stopped.
func (w *Worker) Dispatch(ctx context.Context, msg Message) bool {
	select {
	case <-w.stopped:
		return false
	default:
	}
	if !runctx.TrySend(w.mailbox, envelope{ctx: context.WithoutCancel(ctx), msg: msg}) {
		w.logger.Warn("worker mailbox full, dropping message", logging.Field("message", fmt.Sprintf("%T", msg)))
		return false
	}
	return true
}

func (w *Worker) handle(ctx context.Context, msg Message) error {
	switch m := msg.(type) {
	case InstallMsg:
		w.lifecycle.Store(LifecycleInstalled)
		// A new worker takes over at once instead of waiting for old views.
		w.skipWaiting.Store(true)
		w.logger.Debug("worker installed")
		return nil
	case ActivateMsg:
		w.lifecycle.Store(LifecycleActivated)
		if w.clients == nil {
			return nil
		}
		if err := w.clients.Claim(ctx); err != nil {
			return fmt.Errorf("claim clients: %w", err)
		}
		w.logger.Debug("worker activated")
		return nil
	case PushMsg:
		return w.handlePush(ctx, m)
	case NotificationClickMsg:
		return w.handleClick(ctx, m)
	default:
		return fmt.Errorf("unknown worker message %T", msg)
	}
}

func (w *Worker) handlePush(ctx context.Context, m PushMsg) error {
	n, ok := BuildNotification(m.Data)
	if !ok {
		w.logger.Debug("ignoring push payload", logging.Field("payload", logging.Truncate(string(m.Data))))
		return nil
	}
	if w.notifier == nil {
		return nil
	}
	if err := w.notifier.Show(ctx, n); err != nil {
		return fmt.Errorf("show notification: %w", err)
	}
	w.logger.Info("notification shown", logging.Field("title", n.Title), logging.Field("tag", n.Tag))
	return nil
}

func (w *Worker) handleClick(ctx context.Context, m NotificationClickMsg) error {
	if w.notifier != nil {
		w.notifier.Close(m.Notification)
	}
	target := m.Notification.Data.URL
	if target == "" {
		target = "/"
	}
	if w.clients == nil {
		return nil
	}

	open, err := w.clients.MatchAll(ctx)
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}
	for _, c := range open {
		if strings.Contains(c.URL(), target) {
			return c.Focus(ctx)
		}
	}
	return w.clients.OpenWindow(ctx, w.resolve(target))
}

func (w *Worker) resolve(target string) string {
	ref, err := url.Parse(target)
	if err != nil || w.origin == nil {
		return target
	}
	return w.origin.ResolveReference(ref).String()
}

// SkipWaiting reports whether the worker asked to take over immediately.
func (w *Worker) SkipWaiting() bool {
	return w.skipWaiting.Load()
}
