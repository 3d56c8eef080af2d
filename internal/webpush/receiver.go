package webpush

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/profile"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// DeliverFunc receives a decrypted push payload.
type DeliverFunc func(ctx context.Context, payload []byte)

// Receiver is the HTTP endpoint push senders POST to.
type Receiver struct {
	store   SubscriptionStore
	deliver DeliverFunc
	logger  *logging.Logger
	router  *mux.Router
}

func NewReceiver(store SubscriptionStore, deliver DeliverFunc, logger *logging.Logger) *Receiver {
	if logger == nil {
		panic("webpush.NewReceiver: logger must not be nil")
	}
	r := &Receiver{
		store:   store,
		deliver: deliver,
		logger:  logger.With(logging.Field("component", "webpush")),
		router:  mux.NewRouter(),
	}
	r.router.HandleFunc(receivePathPrefix+"{id}", r.handlePush).Methods(http.MethodPost)
	return r
}

func (r *Receiver) Handler() http.Handler {
	return r.router
}

// Serve listens on addr until ctx is done.
func (r *Receiver) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return r.ServeListener(ctx, ln)
}

func (r *Receiver) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           r.router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errs := make(chan error, 1)
	go func() { errs <- srv.Serve(ln) }()
	r.logger.Info("push receiver listening", logging.Field("addr", ln.Addr().String()))

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (r *Receiver) handlePush(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	rec, err := r.store.Subscription(req.Context(), id)
	if errors.Is(err, profile.ErrNotFound) {
		// Senders drop subscriptions answered with 410.
		http.Error(w, "subscription gone", http.StatusGone)
		return
	}
	if err != nil {
		r.logger.Warn("push subscription lookup failed", logging.Field("error", err))
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	if enc := strings.TrimSpace(req.Header.Get("Content-Encoding")); !strings.EqualFold(enc, "aes128gcm") {
		http.Error(w, "unsupported content encoding", http.StatusUnsupportedMediaType)
		return
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, MaxPayloadBytes+1))
	if err != nil {
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}
	if len(body) > MaxPayloadBytes {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	keys, err := keysFor(rec)
	if err != nil {
		r.logger.Warn("stored push keys unusable", logging.Field("error", err))
		http.Error(w, "subscription keys unusable", http.StatusInternalServerError)
		return
	}
	payload, err := Decrypt(keys, body)
	if err != nil {
		r.logger.Debug("rejecting push message", logging.Field("error", err))
		http.Error(w, "cannot decrypt payload", http.StatusBadRequest)
		return
	}

	r.logger.Debug("push message received", logging.Field("bytes", len(payload)))
	if r.deliver != nil {
		r.deliver(context.WithoutCancel(req.Context()), payload)
	}
	w.WriteHeader(http.StatusCreated)
}
