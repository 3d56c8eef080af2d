package push

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const uncompressedP256Len = 65

// DecodeApplicationServerKey decodes a URL-safe base64 VAPID key, restoring
// any stripped padding, and checks that it is an uncompressed P-256 point.
func DecodeApplicationServerKey(key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if pad := len(key) % 4; pad != 0 {
		key += strings.Repeat("=", 4-pad)
	}
	raw, err := base64.URLEncoding.DecodeString(key)
	if err != nil {
		// Some servers hand out the standard alphabet.
		raw, err = base64.StdEncoding.DecodeString(key)
	}
	if err != nil {
		return nil, fmt.Errorf("decode VAPID public key: %w", err)
	}
	if len(raw) != uncompressedP256Len || raw[0] != 0x04 {
		return nil, ErrInvalidVAPIDKey
	}
	return raw, nil
}
