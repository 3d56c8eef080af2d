package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"sunstock-dashboard/internal/credentials"
	"sunstock-dashboard/internal/logging"
)

const (
	refreshKey     = "refresh"
	refreshTimeout = 15 * time.Second
)

// refresher coalesces concurrent refresh requests into one call per client.
type refresher struct {
	c     *DashboardClient
	group singleflight.Group
	// calls counts refreshes that reached the network.
	calls atomic.Int64
}

func newRefresher(c *DashboardClient) *refresher {
	return &refresher{c: c}
}

type refreshResponse struct {
	Status *struct {
		Code    FlexString `json:"code"`
		Message string     `json:"message"`
	} `json:"status"`
	Data *credentials.Credential `json:"data"`
}

// refresh returns the new access token. Callers that arrive while a refresh
// is running share its outcome. The shared call runs detached from any one
// caller's context so a cancelled caller cannot fail the others.
func (r *refresher) refresh(ctx context.Context) (string, error) {
	ch := r.group.DoChan(refreshKey, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return r.run(runCtx)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		token, _ := res.Val.(string)
		return token, nil
	}
}

func (r *refresher) run(ctx context.Context) (string, error) {
	c := r.c
	refreshToken, ok := c.store.Get(credentials.RefreshTokenName)
	if !ok {
		return "", ErrNoCredential
	}
	r.calls.Add(1)

	token, err := r.exchange(ctx, refreshToken)
	if err != nil {
		credentials.Clear(c.store)
		c.logger.Warn("session refresh failed, credentials cleared", logging.Field("error", err))
		return "", err
	}
	c.logger.Debug("session refreshed")
	return token, nil
}

func (r *refresher) exchange(ctx context.Context, refreshToken string) (string, error) {
	c := r.c
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	resp, err := c.send(ctx, http.MethodPost, c.endpoints.RefreshURL, payload, header)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	decoded := refreshResponse{}
	_ = json.Unmarshal(resp.body, &decoded)
	if !resp.ok() {
		message := "Refresh failed"
		if decoded.Status != nil && strings.TrimSpace(decoded.Status.Message) != "" {
			message = strings.TrimSpace(decoded.Status.Message)
		}
		return "", fmt.Errorf("%w: %s", ErrRefreshFailed, message)
	}
	if decoded.Data == nil || strings.TrimSpace(decoded.Data.AccessToken) == "" {
		return "", fmt.Errorf("%w: response carried no access token", ErrRefreshFailed)
	}

	credentials.Save(c.store, *decoded.Data, credentials.SaveOptions{})
	return strings.TrimSpace(decoded.Data.AccessToken), nil
}

// RefreshSession forces a refresh through the shared single-flight path.
func (c *DashboardClient) RefreshSession(ctx context.Context) error {
	token, err := c.refresher.refresh(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return errors.New("refresh returned no token")
	}
	return nil
}
