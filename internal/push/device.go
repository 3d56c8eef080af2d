package push

import (
	"strings"

	"github.com/google/uuid"

	"sunstock-dashboard/internal/profile"
)

const DeviceIDKey = "push_device_id"

// DeviceID returns the persisted per-device identifier, creating it on first
// use. It is never rotated.
func DeviceID(local profile.Storage) (string, error) {
	if existing, ok := local.GetItem(DeviceIDKey); ok && strings.TrimSpace(existing) != "" {
		return existing, nil
	}
	id := uuid.NewString()
	if err := local.SetItem(DeviceIDKey, id); err != nil {
		return "", err
	}
	return id, nil
}
