// Package stream keeps live quote and alert feeds connected over WebSocket.
// A Session reconnects with exponential backoff and, while the socket is not
// open, polls a snapshot so consumers never go silent for longer than one
// poll interval.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/oauth2"

	"sunstock-dashboard/internal/logging"
)

const (
	DefaultPollInterval = 5 * time.Minute
	handshakeTimeout    = 10 * time.Second
	maxMessageBytes     = 1 << 20
)

var (
	errStale  = errors.New("stream session superseded")
	errClosed = errors.New("stream closed by server")
)

type Config struct {
	// Name labels the stream in logs ("quotes", "alerts").
	Name string
	URL  string

	Dialer      *websocket.Dialer
	TokenSource oauth2.TokenSource
	// OnUnauthorized runs when the handshake is rejected with 401, before
	// the next reconnect is scheduled.
	OnUnauthorized func(context.Context) error

	PollInterval time.Duration
	Poll         func(context.Context)

	OnMessage func([]byte)
	OnState   func(State)

	// BackOff builds the reconnect schedule for each run. Defaults to
	// NewReconnectBackOff.
	BackOff func() backoff.BackOff
}

// Session owns at most one socket at a time. Start and Stop may be called
// from any goroutine; callbacks from a stopped generation are discarded.
type Session struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *logging.Logger

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSession(cfg Config, logger *logging.Logger) *Session {
	if logger == nil {
		panic("stream.NewSession: logger must not be nil")
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		}
	}
	if cfg.BackOff == nil {
		cfg.BackOff = func() backoff.BackOff { return NewReconnectBackOff() }
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Session{
		cfg:    cfg,
		dialer: dialer,
		logger: logger.With(logging.Field("component", "stream"), logging.Field("stream", cfg.Name)),
		state:  StateIdle,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start connects in the background. It is a no-op while already running.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	s.gen++
	gen := s.gen
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.state = StateConnecting
	s.mu.Unlock()

	s.notify(StateConnecting)
	go s.run(runCtx, gen, done)
}

// Stop tears down the socket and pending timers and waits for the
// background goroutines to exit. Nothing from the stopped run is delivered
// after Stop returns.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.gen++
	s.cancel = nil
	s.done = nil
	wasRunning := cancel != nil
	if wasRunning {
		s.state = StateStopped
	}
	s.mu.Unlock()

	if !wasRunning {
		return
	}
	cancel()
	<-done
	s.logger.Debug("stream stopped")
	s.notify(StateStopped)
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// setState records next only if gen is still the live generation.
func (s *Session) setState(gen uint64, next State) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	changed := s.state != next
	s.state = next
	s.mu.Unlock()
	if changed {
		s.notify(next)
	}
	return true
}

func (s *Session) notify(state State) {
	if s.cfg.OnState != nil {
		s.cfg.OnState(state)
	}
}

func (s *Session) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	polling := make(chan bool, 1)
	var wg sync.WaitGroup
	defer wg.Wait()
	if s.cfg.Poll != nil && s.cfg.PollInterval > 0 {
		polling <- true
		wg.Go(func() { s.pollLoop(ctx, gen, polling) })
	}

	schedule := s.cfg.BackOff()
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if !s.setState(gen, StateConnecting) {
			return struct{}{}, backoff.Permanent(errStale)
		}
		err := s.connect(ctx, gen, schedule, polling)
		if errors.Is(err, errStale) {
			return struct{}{}, backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(context.Cause(ctx))
		}
		s.setState(gen, StateClosed)
		setPolling(polling, true)
		if err == nil {
			err = errClosed
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(schedule),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Debug("stream reconnect scheduled",
				logging.Field("error", err),
				logging.Field("next_retry", next.String()),
			)
		}),
	)
	if err != nil && !errors.Is(err, errStale) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("stream stopped reconnecting", logging.Field("error", err))
	}
}

// connect runs one socket until it closes. It returns errStale when the
// session was stopped or restarted underneath it.
func (s *Session) connect(ctx context.Context, gen uint64, schedule backoff.BackOff, polling chan bool) error {
	header := http.Header{}
	if s.cfg.TokenSource != nil {
		if tok, err := s.cfg.TokenSource.Token(); err == nil && tok.AccessToken != "" {
			header.Set("Authorization", tok.Type()+" "+tok.AccessToken)
		}
	}

	conn, resp, err := s.dialer.DialContext(ctx, s.cfg.URL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized && s.cfg.OnUnauthorized != nil {
			if refreshErr := s.cfg.OnUnauthorized(ctx); refreshErr != nil {
				s.logger.Debug("stream handshake refresh failed", logging.Field("error", refreshErr))
			}
		}
		return fmt.Errorf("dial %s stream: %w", s.cfg.Name, err)
	}
	defer conn.Close()

	if !s.setState(gen, StateOpen) {
		return errStale
	}
	schedule.Reset()
	setPolling(polling, false)
	s.logger.Info("stream connected", logging.Field("url", s.cfg.URL))

	stopClose := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stopClose()

	conn.SetReadLimit(maxMessageBytes)
	for {
		_, data, readErr := conn.ReadMessage()
		if readErr != nil {
			if !s.current(gen) {
				return errStale
			}
			s.logger.Debug("stream read ended", logging.Field("error", readErr))
			return readErr
		}
		if !s.current(gen) {
			return errStale
		}
		if s.cfg.OnMessage != nil {
			s.cfg.OnMessage(data)
		}
	}
}

func (s *Session) pollLoop(ctx context.Context, gen uint64, polling <-chan bool) {
	var ticker *time.Ticker
	var tick <-chan time.Time
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
	}
	defer stopTicker()

	for {
		select {
		case <-ctx.Done():
			return
		case on := <-polling:
			switch {
			case on && ticker == nil:
				ticker = time.NewTicker(s.cfg.PollInterval)
				tick = ticker.C
				s.logger.Debug("fallback polling started", logging.Field("interval", s.cfg.PollInterval.String()))
			case !on && ticker != nil:
				stopTicker()
				s.logger.Debug("fallback polling stopped")
			}
		case <-tick:
			if !s.current(gen) || s.State() == StateOpen {
				continue
			}
			s.logger.Debug("running fallback poll")
			s.cfg.Poll(ctx)
		}
	}
}

// setPolling replaces any unread request with on. Only the run goroutine
// sends, so the drain-then-send cannot block.
func setPolling(ch chan bool, on bool) {
	select {
	case <-ch:
	default:
	}
	ch <- on
}
