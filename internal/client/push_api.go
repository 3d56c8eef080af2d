package client

import (
	"context"
	"net/http"
	"strings"
)

type vapidKeyResponse struct {
	Data *struct {
		PublicKey      string `json:"public_key"`
		VAPIDPublicKey string `json:"vapid_public_key"`
	} `json:"data"`
	PublicKey      string `json:"public_key"`
	VAPIDPublicKey string `json:"vapid_public_key"`
}

// VAPIDPublicKey returns the server's application server key, accepting the
// key under data or at the top level.
func (c *DashboardClient) VAPIDPublicKey(ctx context.Context) (string, error) {
	resp, err := DoJSON[vapidKeyResponse](ctx, c, http.MethodGet, c.endpoints.VAPIDKeyURL, nil)
	if err != nil {
		return "", err
	}
	candidates := []string{resp.PublicKey, resp.VAPIDPublicKey}
	if resp.Data != nil {
		candidates = append([]string{resp.Data.PublicKey, resp.Data.VAPIDPublicKey}, candidates...)
	}
	for _, key := range candidates {
		if key = strings.TrimSpace(key); key != "" {
			return key, nil
		}
	}
	return "", nil
}

type saveSubscriptionRequest struct {
	DeviceID     string           `json:"device_id"`
	Subscription PushSubscription `json:"subscription"`
	UserAgent    string           `json:"userAgent"`
}

type deleteSubscriptionRequest struct {
	DeviceID string `json:"device_id"`
	Endpoint string `json:"endpoint"`
}

func (c *DashboardClient) SaveSubscription(ctx context.Context, deviceID string, sub PushSubscription, userAgent string) error {
	_, err := c.Do(ctx, http.MethodPost, c.endpoints.SubscriptionsURL, saveSubscriptionRequest{
		DeviceID:     deviceID,
		Subscription: sub,
		UserAgent:    userAgent,
	})
	return err
}

func (c *DashboardClient) DeleteSubscription(ctx context.Context, deviceID, endpoint string) error {
	_, err := c.Do(ctx, http.MethodDelete, c.endpoints.SubscriptionsURL, deleteSubscriptionRequest{
		DeviceID: deviceID,
		Endpoint: endpoint,
	})
	return err
}
