package push

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"sunstock-dashboard/internal/client"
	"sunstock-dashboard/internal/credentials"
	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/profile"
)

type State string

const (
	StateUnsupported   State = "unsupported"
	StateNotSubscribed State = "not-subscribed"
	StateSubscribing   State = "subscribing"
	StateSubscribed    State = "subscribed"
	StateUnsubscribing State = "unsubscribing"
)

type Manager struct {
	platform Platform
	api      API
	store    credentials.Store
	local    profile.Storage
	logger   *logging.Logger
	onState  func(State)

	// op serializes Subscribe/Unsubscribe; mu guards the fields below.
	op           sync.Mutex
	mu           sync.Mutex
	state        State
	registration Registration
}

func NewManager(platform Platform, api API, store credentials.Store, local profile.Storage, logger *logging.Logger) *Manager {
	if logger == nil {
		panic("push.NewManager: logger must not be nil")
	}
	m := &Manager{
		platform: platform,
		api:      api,
		store:    store,
		local:    local,
		logger:   logger.With(logging.Field("component", "push")),
		state:    StateNotSubscribed,
	}
	if !m.IsSupported() {
		m.state = StateUnsupported
	}
	return m
}

// OnStateChange registers fn for every state transition.
func (m *Manager) OnStateChange(fn func(State)) {
	m.mu.Lock()
	m.onState = fn
	m.mu.Unlock()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(next State) {
	m.mu.Lock()
	changed := m.state != next
	m.state = next
	fn := m.onState
	m.mu.Unlock()
	if changed {
		m.logger.Debug("push state changed", logging.Field("state", string(next)))
		if fn != nil {
			fn(next)
		}
	}
}

// IsSupported reports whether the platform offers worker registration, a
// push service and notifications.
func (m *Manager) IsSupported() bool {
	return m.platform != nil && m.platform.Supported()
}

// RegisterWorker registers the background worker once and returns the
// cached registration afterwards. It returns nil when push is unsupported.
func (m *Manager) RegisterWorker(ctx context.Context) (Registration, error) {
	if !m.IsSupported() {
		return nil, nil
	}
	m.mu.Lock()
	reg := m.registration
	m.mu.Unlock()
	if reg != nil {
		return reg, nil
	}

	reg, err := m.platform.Register(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	if reg == nil {
		return nil, ErrRegistrationFailed
	}
	m.mu.Lock()
	if m.registration == nil {
		m.registration = reg
	}
	reg = m.registration
	m.mu.Unlock()
	return reg, nil
}

// HasSubscription reports whether a platform subscription exists. Lookup
// failures count as false.
func (m *Manager) HasSubscription(ctx context.Context) bool {
	sub, err := m.current(ctx)
	if err != nil {
		m.logger.Debug("push subscription lookup failed", logging.Field("error", err))
		return false
	}
	return sub != nil
}

// Sync aligns State with the platform's subscription.
func (m *Manager) Sync(ctx context.Context) State {
	if !m.IsSupported() {
		m.setState(StateUnsupported)
		return StateUnsupported
	}
	if m.HasSubscription(ctx) {
		m.setState(StateSubscribed)
	} else {
		m.setState(StateNotSubscribed)
	}
	return m.State()
}

func (m *Manager) current(ctx context.Context) (*Subscription, error) {
	if !m.IsSupported() {
		return nil, nil
	}
	reg, err := m.RegisterWorker(ctx)
	if err != nil || reg == nil {
		return nil, err
	}
	return reg.Subscription(ctx)
}

// Subscribe enables push for this device: it loads the server key, asks for
// permission if undecided, reuses or creates the platform subscription and
// records it on the server. A platform subscription created here is kept even
// if the server call fails.
func (m *Manager) Subscribe(ctx context.Context) (Subscription, error) {
	return m.subscribe(ctx, false)
}

// Resubscribe is Subscribe, except that an existing platform subscription
// created for a different server key is dropped and replaced.
func (m *Manager) Resubscribe(ctx context.Context) (Subscription, error) {
	return m.subscribe(ctx, true)
}

func (m *Manager) subscribe(ctx context.Context, replaceStale bool) (Subscription, error) {
	if !m.IsSupported() {
		return Subscription{}, ErrUnsupported
	}
	if !m.op.TryLock() {
		return Subscription{}, ErrOperationInProgress
	}
	defer m.op.Unlock()

	m.setState(StateSubscribing)
	sub, err := m.runSubscribe(ctx, replaceStale)
	if err != nil {
		m.logger.Warn("push subscribe failed", logging.Field("error", err))
		if m.HasSubscription(ctx) {
			m.setState(StateSubscribed)
		} else {
			m.setState(StateNotSubscribed)
		}
		return Subscription{}, err
	}
	m.setState(StateSubscribed)
	m.logger.Info("push notifications enabled", logging.Field("endpoint", sub.Endpoint))
	return sub, nil
}

func (m *Manager) runSubscribe(ctx context.Context, replaceStale bool) (Subscription, error) {
	if err := m.requireAccessToken(); err != nil {
		return Subscription{}, err
	}
	rawKey, err := m.api.VAPIDPublicKey(ctx)
	if err != nil {
		return Subscription{}, &ServerError{
			Message: "failed to load VAPID public key from backend: " + client.ServerMessage(err, err.Error()),
			Err:     err,
		}
	}
	if strings.TrimSpace(rawKey) == "" {
		return Subscription{}, ErrMissingVAPIDKey
	}
	serverKey, err := DecodeApplicationServerKey(rawKey)
	if err != nil {
		return Subscription{}, err
	}

	reg, err := m.RegisterWorker(ctx)
	if err != nil {
		return Subscription{}, err
	}
	if reg == nil {
		return Subscription{}, ErrRegistrationFailed
	}

	permission := m.platform.Permission()
	if permission == PermissionDefault || permission == "" {
		if permission, err = m.platform.RequestPermission(ctx); err != nil {
			return Subscription{}, fmt.Errorf("request notification permission: %w", err)
		}
	}
	if permission != PermissionGranted {
		return Subscription{}, &PermissionError{Permission: permission}
	}

	existing, err := reg.Subscription(ctx)
	if err != nil {
		return Subscription{}, fmt.Errorf("read push subscription: %w", err)
	}
	if existing != nil && replaceStale && len(existing.ApplicationServerKey) > 0 && !bytes.Equal(existing.ApplicationServerKey, serverKey) {
		m.logger.Info("server push key changed, replacing subscription")
		if err := reg.Unsubscribe(ctx, *existing); err != nil {
			return Subscription{}, fmt.Errorf("drop stale push subscription: %w", err)
		}
		existing = nil
	}
	sub := existing
	if sub == nil {
		if sub, err = reg.Subscribe(ctx, serverKey); err != nil {
			return Subscription{}, fmt.Errorf("create push subscription: %w", err)
		}
	}

	deviceID, err := DeviceID(m.local)
	if err != nil {
		return Subscription{}, fmt.Errorf("resolve device id: %w", err)
	}
	if err := m.api.SaveSubscription(ctx, deviceID, sub.PushSubscription, m.platform.UserAgent()); err != nil {
		return Subscription{}, &ServerError{Message: client.ServerMessage(err, "failed to save subscription"), Err: err}
	}
	return *sub, nil
}

// Unsubscribe removes the platform subscription and then the server record.
// If the platform refuses, the server is left untouched.
func (m *Manager) Unsubscribe(ctx context.Context) error {
	if !m.IsSupported() {
		return nil
	}
	if !m.op.TryLock() {
		return ErrOperationInProgress
	}
	defer m.op.Unlock()

	sub, err := m.current(ctx)
	if err != nil {
		return fmt.Errorf("read push subscription: %w", err)
	}
	if sub == nil {
		m.setState(StateNotSubscribed)
		return nil
	}

	m.setState(StateUnsubscribing)
	if err := m.runUnsubscribe(ctx, *sub); err != nil {
		m.logger.Warn("push unsubscribe failed", logging.Field("error", err))
		if m.HasSubscription(ctx) {
			m.setState(StateSubscribed)
		} else {
			m.setState(StateNotSubscribed)
		}
		return err
	}
	m.setState(StateNotSubscribed)
	m.logger.Info("push notifications disabled")
	return nil
}

func (m *Manager) runUnsubscribe(ctx context.Context, sub Subscription) error {
	if err := m.requireAccessToken(); err != nil {
		return err
	}
	m.mu.Lock()
	reg := m.registration
	m.mu.Unlock()
	if err := reg.Unsubscribe(ctx, sub); err != nil {
		return fmt.Errorf("failed to unsubscribe from push service: %w", err)
	}
	deviceID, err := DeviceID(m.local)
	if err != nil {
		return fmt.Errorf("resolve device id: %w", err)
	}
	if err := m.api.DeleteSubscription(ctx, deviceID, sub.Endpoint); err != nil {
		return &ServerError{Message: client.ServerMessage(err, "failed to delete subscription"), Err: err}
	}
	return nil
}

func (m *Manager) requireAccessToken() error {
	if m.store == nil {
		return ErrMissingAccessToken
	}
	if _, ok := m.store.Get(credentials.AccessTokenName); !ok {
		return ErrMissingAccessToken
	}
	return nil
}
