package push

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupported         = errors.New("this device does not support push notifications")
	ErrMissingAccessToken  = errors.New("missing access token, please login again")
	ErrRegistrationFailed  = errors.New("failed to register service worker")
	ErrMissingVAPIDKey     = errors.New("backend response does not include VAPID public key")
	ErrInvalidVAPIDKey     = errors.New("VAPID public key is not an uncompressed P-256 point")
	ErrOperationInProgress = errors.New("push subscription change already in progress")
)

// PermissionError reports a notification permission that ended up anything
// other than granted.
type PermissionError struct {
	Permission Permission
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("notification permission was not granted (%s)", e.Permission)
}

// ServerError carries the server's descriptive message for a failed push
// API call.
type ServerError struct {
	Message string
	Err     error
}

func (e *ServerError) Error() string {
	return e.Message
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
