// Package push manages the device's web-push subscription: it asks the
// platform for notification permission, creates or reuses the platform
// subscription and keeps the server's record of it in step.
package push

import (
	"context"

	"sunstock-dashboard/internal/client"
)

type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Subscription is a platform push subscription and the application server
// key it was created for.
type Subscription struct {
	client.PushSubscription
	ApplicationServerKey []byte
}

// Platform is the host's push capability: background worker registration,
// notification permission and a push service.
type Platform interface {
	Supported() bool
	Register(ctx context.Context) (Registration, error)
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
	UserAgent() string
}

// Registration is a registered background worker and its push manager.
// Subscription returns nil when no subscription exists.
type Registration interface {
	Subscription(ctx context.Context) (*Subscription, error)
	Subscribe(ctx context.Context, applicationServerKey []byte) (*Subscription, error)
	Unsubscribe(ctx context.Context, sub Subscription) error
}

// API is the server side of the subscription.
type API interface {
	VAPIDPublicKey(ctx context.Context) (string, error)
	SaveSubscription(ctx context.Context, deviceID string, sub client.PushSubscription, userAgent string) error
	DeleteSubscription(ctx context.Context, deviceID, endpoint string) error
}
