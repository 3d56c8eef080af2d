package stream

import (
	"bytes"
	"encoding/json"
	"strings"

	"sunstock-dashboard/internal/client"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Quote json.RawMessage `json:"quote"`
}

// unwrap returns the event object inside a {data} or {quote} envelope, or
// raw itself when it is a bare object. ok is false for anything else.
func unwrap(raw []byte) (json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' || !json.Valid(raw) {
		return nil, false
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false
	}
	for _, inner := range []json.RawMessage{env.Data, env.Quote} {
		inner = bytes.TrimSpace(inner)
		if len(inner) > 0 && inner[0] == '{' {
			return inner, true
		}
	}
	return raw, true
}

// DecodeQuote parses one quotes-stream message. Malformed payloads and
// objects that identify no quote are rejected.
func DecodeQuote(raw []byte) (client.StockQuote, bool) {
	obj, ok := unwrap(raw)
	if !ok {
		return client.StockQuote{}, false
	}
	var q client.StockQuote
	if err := json.Unmarshal(obj, &q); err != nil {
		return client.StockQuote{}, false
	}
	q.Symbol = strings.ToUpper(strings.TrimSpace(q.Symbol))
	if q.ID == "" && q.CreatedAt == "" {
		return client.StockQuote{}, false
	}
	return q, true
}

// DecodeAlert parses one alerts-stream message. A JSON string becomes an
// alert carrying only that message.
func DecodeAlert(raw []byte) (Alert, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var message string
		if err := json.Unmarshal(trimmed, &message); err != nil {
			return Alert{}, false
		}
		return Alert{Message: message}, true
	}
	obj, ok := unwrap(trimmed)
	if !ok {
		return Alert{}, false
	}
	var a Alert
	if err := json.Unmarshal(obj, &a); err != nil {
		return Alert{}, false
	}
	return a, true
}
