// Package webpush is the device-side push service: it mints subscriptions
// whose endpoint is a local HTTP receiver, decrypts incoming aes128gcm
// messages and hands them to the notification worker.
package webpush

import (
	"context"
	"crypto/ecdh"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"path"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"

	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/profile"
	"sunstock-dashboard/internal/push"
)

// PermissionKey holds the user's notification decision in local storage.
const PermissionKey = "notification_permission"

const receivePathPrefix = "/push/"

// SubscriptionStore persists subscriptions. *profile.DB implements it.
type SubscriptionStore interface {
	SaveSubscription(ctx context.Context, rec profile.SubscriptionRecord) error
	Subscription(ctx context.Context, id string) (profile.SubscriptionRecord, error)
	LatestSubscription(ctx context.Context) (profile.SubscriptionRecord, error)
	DeleteSubscription(ctx context.Context, id string) error
}

// Prompter asks the user whether notifications may be shown.
type Prompter interface {
	Prompt(ctx context.Context) (push.Permission, error)
}

type PrompterFunc func(ctx context.Context) (push.Permission, error)

func (f PrompterFunc) Prompt(ctx context.Context) (push.Permission, error) {
	return f(ctx)
}

var _ push.Platform = (*Platform)(nil)

// Platform implements push.Platform on top of a local receiver.
type Platform struct {
	store     SubscriptionStore
	local     profile.Storage
	baseURL   string
	userAgent string
	logger    *logging.Logger

	mu       sync.Mutex
	prompter Prompter
}

// NewPlatform returns a platform whose subscriptions point at baseURL, the
// externally reachable address of the Receiver (e.g. http://127.0.0.1:8765).
func NewPlatform(store SubscriptionStore, local profile.Storage, baseURL, version string, logger *logging.Logger) *Platform {
	if logger == nil {
		panic("webpush.NewPlatform: logger must not be nil")
	}
	return &Platform{
		store:     store,
		local:     local,
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		userAgent: fmt.Sprintf("sunstock-dashboard/%s (%s; %s)", version, runtime.GOOS, runtime.GOARCH),
		logger:    logger.With(logging.Field("component", "webpush")),
	}
}

// SetPrompter installs the UI used for permission prompts. Without one,
// a prompt leaves the permission undecided.
func (p *Platform) SetPrompter(prompter Prompter) {
	p.mu.Lock()
	p.prompter = prompter
	p.mu.Unlock()
}

func (p *Platform) Supported() bool {
	return p.store != nil && p.local != nil && p.baseURL != ""
}

func (p *Platform) UserAgent() string {
	return p.userAgent
}

func (p *Platform) Permission() push.Permission {
	value, ok := p.local.GetItem(PermissionKey)
	if !ok {
		return push.PermissionDefault
	}
	switch perm := push.Permission(value); perm {
	case push.PermissionGranted, push.PermissionDenied:
		return perm
	default:
		return push.PermissionDefault
	}
}

// RequestPermission prompts and remembers a granted or denied answer. A
// dismissed prompt stays "default" so the next subscribe asks again.
func (p *Platform) RequestPermission(ctx context.Context) (push.Permission, error) {
	p.mu.Lock()
	prompter := p.prompter
	p.mu.Unlock()
	if prompter == nil {
		return push.PermissionDefault, nil
	}
	perm, err := prompter.Prompt(ctx)
	if err != nil {
		return push.PermissionDefault, err
	}
	if perm == push.PermissionGranted || perm == push.PermissionDenied {
		if err := p.local.SetItem(PermissionKey, string(perm)); err != nil {
			return perm, err
		}
	}
	p.logger.Info("notification permission decided", logging.Field("permission", string(perm)))
	return perm, nil
}

// ResetPermission forgets a stored decision.
func (p *Platform) ResetPermission() error {
	return p.local.RemoveItem(PermissionKey)
}

// Register returns the platform's single registration.
func (p *Platform) Register(context.Context) (push.Registration, error) {
	if !p.Supported() {
		return nil, push.ErrUnsupported
	}
	return registration{p: p}, nil
}

type registration struct {
	p *Platform
}

func (r registration) Subscription(ctx context.Context) (*push.Subscription, error) {
	rec, err := r.p.store.LatestSubscription(ctx)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sub, err := toSubscription(rec)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r registration) Subscribe(ctx context.Context, applicationServerKey []byte) (*push.Subscription, error) {
	keys, err := GenerateKeys()
	if err != nil {
		return nil, fmt.Errorf("generate subscription keys: %w", err)
	}
	id := uuid.NewString()
	rec := profile.SubscriptionRecord{
		ID:         id,
		Endpoint:   r.p.baseURL + receivePathPrefix + id,
		P256dh:     base64.RawURLEncoding.EncodeToString(keys.PublicKey()),
		Auth:       base64.RawURLEncoding.EncodeToString(keys.Auth),
		PrivateKey: keys.Private.Bytes(),
		ServerKey:  base64.RawURLEncoding.EncodeToString(applicationServerKey),
	}
	if err := r.p.store.SaveSubscription(ctx, rec); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}
	r.p.logger.Info("push subscription created", logging.Field("endpoint", rec.Endpoint))
	sub, err := toSubscription(rec)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r registration) Unsubscribe(ctx context.Context, sub push.Subscription) error {
	id, err := subscriptionID(sub.Endpoint)
	if err != nil {
		return err
	}
	if err := r.p.store.DeleteSubscription(ctx, id); err != nil && !errors.Is(err, profile.ErrNotFound) {
		return err
	}
	r.p.logger.Info("push subscription removed", logging.Field("endpoint", sub.Endpoint))
	return nil
}

func subscriptionID(endpoint string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if !strings.HasPrefix(parsed.Path, receivePathPrefix) {
		return "", fmt.Errorf("endpoint %q is not a local push endpoint", endpoint)
	}
	return path.Base(parsed.Path), nil
}

func toSubscription(rec profile.SubscriptionRecord) (push.Subscription, error) {
	serverKey, err := base64.RawURLEncoding.DecodeString(rec.ServerKey)
	if err != nil {
		return push.Subscription{}, fmt.Errorf("decode stored server key: %w", err)
	}
	sub := push.Subscription{ApplicationServerKey: serverKey}
	sub.Endpoint = rec.Endpoint
	sub.Keys.P256dh = rec.P256dh
	sub.Keys.Auth = rec.Auth
	return sub, nil
}

// keysFor restores the decryption keys of a stored subscription.
func keysFor(rec profile.SubscriptionRecord) (Keys, error) {
	priv, err := ecdh.P256().NewPrivateKey(rec.PrivateKey)
	if err != nil {
		return Keys{}, fmt.Errorf("restore subscription key: %w", err)
	}
	auth, err := base64.RawURLEncoding.DecodeString(rec.Auth)
	if err != nil {
		return Keys{}, fmt.Errorf("decode auth secret: %w", err)
	}
	return Keys{Private: priv, Auth: auth}, nil
}
