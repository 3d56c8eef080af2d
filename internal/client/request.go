package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"sunstock-dashboard/internal/credentials"
	"sunstock-dashboard/internal/logging"
)

type RequestOption func(*requestConfig)

type requestConfig struct {
	header http.Header
	query  url.Values
}

// WithHeader sets an extra request header.
func WithHeader(key, value string) RequestOption {
	return func(cfg *requestConfig) {
		cfg.header.Set(key, value)
	}
}

// WithAuthorization supplies the Authorization header verbatim; the stored
// access token is then not consulted for the first attempt.
func WithAuthorization(value string) RequestOption {
	return WithHeader("Authorization", value)
}

func WithQuery(values url.Values) RequestOption {
	return func(cfg *requestConfig) {
		for key, vals := range values {
			for _, v := range vals {
				cfg.query.Add(key, v)
			}
		}
	}
}

type response struct {
	statusCode    int
	status        string
	body          []byte
	correlationID string
}

func (r response) ok() bool {
	return r.statusCode >= 200 && r.statusCode < 300
}

func (r response) unauthorized() bool {
	return r.statusCode == http.StatusUnauthorized || domainCode(r.body) == fmt.Sprint(TokenExpiredCode)
}

// Do issues one API call. A 401 (or domain code 4001) triggers a shared
// refresh and exactly one retry with the refreshed token and a new
// correlation id. Non-2xx final responses return a *RequestError.
func (c *DashboardClient) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (json.RawMessage, error) {
	cfg := requestConfig{header: http.Header{}, query: url.Values{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	target, err := c.resolve(path, cfg.query)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	header := cfg.header.Clone()
	header.Set("Content-Type", "application/json")
	if header.Get("Authorization") == "" {
		if token, ok := c.store.Get(credentials.AccessTokenName); ok {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.send(ctx, method, target, payload, header)
	if err != nil {
		return nil, err
	}

	if resp.unauthorized() {
		c.logger.Debug("access token rejected, refreshing",
			logging.Field("path", path),
			logging.Field("correlation_id", resp.correlationID),
		)
		token, refreshErr := c.refresher.refresh(ctx)
		switch {
		case refreshErr != nil:
			c.logger.Debug("refresh did not yield a token", logging.Field("error", refreshErr))
		case token != "":
			retryHeader := header.Clone()
			retryHeader.Set("Authorization", "Bearer "+token)
			retried, retryErr := c.send(ctx, method, target, payload, retryHeader)
			if retryErr != nil {
				return nil, retryErr
			}
			resp = retried
		}
	}

	if !resp.ok() {
		reqErr := newRequestError(resp.statusCode, resp.status, resp.body, resp.correlationID)
		c.logger.Warn("request failed",
			logging.Field("method", method),
			logging.Field("path", path),
			logging.Field("status", resp.status),
			logging.Field("correlation_id", resp.correlationID),
			logging.Field("response", logging.FormatHTTPPayload(resp.body)),
		)
		return nil, reqErr
	}
	if len(bytes.TrimSpace(resp.body)) == 0 || !json.Valid(resp.body) {
		return json.RawMessage("{}"), nil
	}
	return json.RawMessage(resp.body), nil
}

// DoJSON is Do followed by decoding into T.
func DoJSON[T any](ctx context.Context, c *DashboardClient, method, path string, body any, opts ...RequestOption) (T, error) {
	var out T
	raw, err := c.Do(ctx, method, path, body, opts...)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("invalid response JSON", logging.Field("path", path), logging.Field("error", err))
		return out, &RequestError{Message: genericRequestFailure, Body: raw}
	}
	return out, nil
}

func (c *DashboardClient) resolve(path string, query url.Values) (string, error) {
	raw := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		raw = c.endpoints.APIBase + path
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		merged := parsed.Query()
		for key, vals := range query {
			for _, v := range vals {
				merged.Add(key, v)
			}
		}
		parsed.RawQuery = merged.Encode()
	}
	return parsed.String(), nil
}

// send performs a single attempt with a fresh correlation id.
func (c *DashboardClient) send(ctx context.Context, method, target string, payload []byte, header http.Header) (response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return response{}, err
	}
	req.Header = header.Clone()
	correlationID := c.newID()
	req.Header.Set(CorrelationHeader, correlationID)

	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	c.logger.Debugf("%s %s -> %s (%s)", method, req.URL.Path, resp.Status, correlationID)

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	return response{
		statusCode:    resp.StatusCode,
		status:        resp.Status,
		body:          data,
		correlationID: correlationID,
	}, nil
}
