package app

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/push"
	"sunstock-dashboard/internal/worker"
)

// startPush runs the notification worker and the local push receiver, then
// aligns the push state with the stored subscription.
func (a *Dashboard) startPush(ctx context.Context, wg *sync.WaitGroup) {
	if a.worker != nil {
		wg.Go(func() { a.worker.Run(ctx) })
		for _, msg := range []worker.Message{worker.InstallMsg{}, worker.ActivateMsg{}} {
			if err := a.worker.Post(ctx, msg); err != nil {
				a.logger.Warn("notification worker lifecycle step failed", logging.Field("error", err))
			}
		}
	}
	if a.receiver != nil {
		addr := a.opts.PushListen
		wg.Go(func() {
			if err := a.receiver.Serve(ctx, addr); err != nil && ctx.Err() == nil {
				a.logger.Warn("push receiver stopped", logging.Field("addr", addr), logging.Field("error", err))
			}
		})
	}
	state := a.push.Sync(ctx)
	a.logger.Debug("push state synced", logging.Field("state", string(state)))
}

func (a *Dashboard) deliverPush(ctx context.Context, payload []byte) {
	if a.worker == nil {
		return
	}
	a.worker.Dispatch(ctx, worker.PushMsg{Data: payload})
}

// TogglePush subscribes when push is off and unsubscribes when it is on.
func (a *Dashboard) TogglePush(ctx context.Context) (push.State, error) {
	if !a.push.IsSupported() {
		return push.StateUnsupported, push.ErrUnsupported
	}
	var err error
	if a.push.State() == push.StateSubscribed {
		err = a.push.Unsubscribe(ctx)
	} else {
		_, err = a.push.Resubscribe(ctx)
	}
	if err != nil {
		a.logger.Warn("push toggle failed", logging.Field("error", err))
	}
	return a.push.State(), err
}

// ClickNotification hands a clicked notification back to the worker.
func (a *Dashboard) ClickNotification(ctx context.Context, n worker.Notification) error {
	if a.worker == nil {
		return push.ErrUnsupported
	}
	return a.worker.Post(ctx, worker.NotificationClickMsg{Notification: n})
}

func (a *Dashboard) notifyPushState(state push.State) {
	if a.hooks.OnPushState != nil {
		a.hooks.OnPushState(state)
	}
}

type hookNotifier struct {
	app *Dashboard
}

func (n hookNotifier) Show(_ context.Context, note worker.Notification) error {
	n.app.logger.Info("alert notification",
		logging.Field("title", note.Title),
		logging.Field("body", note.Body),
		logging.Field("url", note.Data.URL),
	)
	if n.app.hooks.OnNotification != nil {
		n.app.hooks.OnNotification(note)
	}
	return nil
}

func (n hookNotifier) Close(note worker.Notification) {
	n.app.logger.Debug("notification closed", logging.Field("tag", note.Tag))
}

// dashboardView is the single window this process shows. The worker sees it
// as its only client.
type dashboardView struct {
	app *Dashboard
}

var detailRoutes = func() *mux.Router {
	r := mux.NewRouter()
	r.Path("/detail/{view:daily|news|overall}/{symbol}")
	return r
}()

func (v *dashboardView) URL() string {
	origin := strings.TrimRight(v.app.api.Endpoints().Origin, "/")
	if symbol := v.app.Symbol(); symbol != "" {
		return origin + "/detail/daily/" + symbol
	}
	return origin + "/"
}

func (v *dashboardView) Focus(context.Context) error {
	if v.app.hooks.OnFocus != nil {
		v.app.hooks.OnFocus()
	}
	return nil
}

func (v *dashboardView) Claim(context.Context) error {
	v.app.logger.Debug("notification worker claimed dashboard view")
	return nil
}

func (v *dashboardView) MatchAll(context.Context) ([]worker.Client, error) {
	return []worker.Client{v}, nil
}

// OpenWindow switches the dashboard to a detail route on this origin and
// hands any other URL to the host.
func (v *dashboardView) OpenWindow(ctx context.Context, target string) error {
	if symbol, ok := v.symbolFor(target); ok {
		if err := v.app.SelectSymbol(ctx, symbol); err != nil {
			return err
		}
		return v.Focus(ctx)
	}
	if v.app.hooks.OnOpenURL == nil {
		v.app.logger.Info("no URL opener configured", logging.Field("url", target))
		return nil
	}
	return v.app.hooks.OnOpenURL(target)
}

func (v *dashboardView) symbolFor(target string) (string, bool) {
	u, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	origin, err := url.Parse(v.app.api.Endpoints().Origin)
	if err != nil {
		return "", false
	}
	if u.Host != "" && !strings.EqualFold(u.Host, origin.Host) {
		return "", false
	}
	var match mux.RouteMatch
	if !detailRoutes.Match(&http.Request{Method: http.MethodGet, URL: u}, &match) {
		return "", false
	}
	symbol := strings.ToUpper(strings.TrimSpace(match.Vars["symbol"]))
	return symbol, symbol != ""
}
