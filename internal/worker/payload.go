package worker

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	fallbackTitle   = "Sun Stock Alert"
	fallbackMessage = "You have a new alert."
	defaultTitle    = "Stock Alert"
	defaultIcon     = "/icons/icon-192.png"
	defaultBadge    = "/icons/icon-32.png"
	unknownSymbol   = "UNKNOWN"
	popupType       = "popup"
)

// BuildNotification turns a push payload into a notification. It returns
// false for payloads that are not popup alerts. Unparseable payloads become a
// plain {title, body} object, which is then not a popup.
func BuildNotification(data []byte) (Notification, bool) {
	payload := parsePayload(data)
	if str(payload["type"]) != popupType {
		return Notification{}, false
	}

	event, _ := payload["event"].(map[string]any)
	symbol := unknownSymbol
	if s, ok := event["symbol"].(string); ok {
		symbol = s
	}
	message := fallbackMessage
	if m, ok := payload["message"].(string); ok {
		message = m
	}
	score := "-"
	if v, ok := event["score_ema"].(float64); ok {
		score = formatNumber(v)
	}

	target := "/"
	if s := truthy(event["symbol"]); s != "" {
		target = "/detail/daily/" + s
	}
	if u := truthy(payload["url"]); u != "" {
		target = u
	}

	var rawEvent json.RawMessage
	if payload["event"] != nil {
		rawEvent, _ = json.Marshal(payload["event"])
	}

	return Notification{
		Title:    or(truthy(payload["title"]), defaultTitle),
		Body:     fmt.Sprintf("[%s] %s (score_ema: %s)", symbol, message, score),
		Icon:     or(truthy(payload["icon"]), defaultIcon),
		Badge:    or(truthy(payload["badge"]), defaultBadge),
		Tag:      truthy(event["id"]),
		Renotify: true,
		Data: NotificationData{
			URL:     target,
			Event:   rawEvent,
			Message: message,
		},
	}, true
}

func parsePayload(data []byte) map[string]any {
	if len(strings.TrimSpace(string(data))) == 0 {
		return map[string]any{}
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil || payload == nil {
		return map[string]any{"title": fallbackTitle, "body": string(data)}
	}
	return payload
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// truthy renders v as a string when it is a non-empty string or a non-zero
// number.
func truthy(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == 0 {
			return ""
		}
		return formatNumber(t)
	case bool:
		if t {
			return "true"
		}
	}
	return ""
}

// formatNumber prints v the way a browser stringifies a number: shortest
// round-trip digits, with exponent form below 1e-6 and from 1e21 up.
func formatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	if abs := math.Abs(v); abs >= 1e21 || abs < 1e-6 {
		mantissa, exp, _ := strings.Cut(strconv.FormatFloat(v, 'e', -1, 64), "e")
		digits := strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + exp[:1] + digits
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
