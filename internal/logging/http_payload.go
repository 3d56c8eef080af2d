package logging

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FormatHTTPPayload normalizes an HTTP body for log output. JSON bodies are
// re-indented and any credential fields inside them are masked.
func FormatHTTPPayload(raw []byte) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "<empty>"
	}

	// Some handlers double-encode errors as a JSON string.
	var quoted string
	if err := json.Unmarshal([]byte(trimmed), &quoted); err == nil {
		trimmed = strings.TrimSpace(quoted)
	}

	var value any
	if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
		return trimmed
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(redactJSON(value)); err != nil {
		return trimmed
	}
	return strings.TrimSpace(buf.String())
}

func redactJSON(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, inner := range v {
			if isSecretKey(key) {
				v[key] = redacted
				continue
			}
			v[key] = redactJSON(inner)
		}
		return v
	case []any:
		for i := range v {
			v[i] = redactJSON(v[i])
		}
		return v
	default:
		return value
	}
}
