package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sunstock-dashboard/internal/config"
	"sunstock-dashboard/internal/credentials"
	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/profile"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func testLogger() *logging.Logger {
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return logger
}

func newTestClient(t *testing.T, handler http.Handler) (*DashboardClient, *credentials.MemoryStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	endpoints, err := config.BuildEndpoints(server.URL, "")
	if err != nil {
		t.Fatalf("BuildEndpoints() error = %v", err)
	}
	store := credentials.NewMemoryStore()
	return New(server.Client(), endpoints, store, testLogger()), store
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestDo_SetsHeadersAndBearerFromStore(t *testing.T) {
	var gotCorrelation string
	httpClient := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if got := r.Header.Get("Authorization"); got != "Bearer access-1" {
				t.Fatalf("Authorization = %q, want Bearer access-1", got)
			}
			if got := r.Header.Get("Content-Type"); got != "application/json" {
				t.Fatalf("Content-Type = %q", got)
			}
			gotCorrelation = r.Header.Get(CorrelationHeader)
			return &http.Response{
				StatusCode: http.StatusOK,
				Status:     "200 OK",
				Header:     make(http.Header),
				Body:       io.NopCloser(strings.NewReader(`{"data":[{"symbol":" bbca ","name":"Bank"},{"symbol":"ASII"},{"symbol":"BBCA"},{"symbol":""}]}`)),
				Request:    r,
			}, nil
		}),
	}
	store := credentials.NewMemoryStore()
	store.Set(credentials.AccessTokenName, "access-1", nil)
	c := New(httpClient, config.Endpoints{StocksURL: "https://example.test/v1/stocks"}, store, testLogger())

	stocks, err := c.Stocks(context.Background())
	if err != nil {
		t.Fatalf("Stocks() error = %v", err)
	}
	if len(stocks) != 2 || stocks[0].Symbol != "ASII" || stocks[1].Symbol != "BBCA" || stocks[1].Name != "Bank" {
		t.Fatalf("stocks = %#v", stocks)
	}
	if !regexp.MustCompile(`^[0-9a-f-]{36}$`).MatchString(gotCorrelation) {
		t.Fatalf("correlation id = %q, want uuid", gotCorrelation)
	}
}

func TestDo_CallerAuthorizationWins(t *testing.T) {
	httpClient := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if got := r.Header.Get("Authorization"); got != "Bearer caller" {
				t.Fatalf("Authorization = %q, want caller-supplied", got)
			}
			return &http.Response{StatusCode: http.StatusNoContent, Status: "204 No Content", Header: make(http.Header), Body: io.NopCloser(strings.NewReader("")), Request: r}, nil
		}),
	}
	store := credentials.NewMemoryStore()
	store.Set(credentials.AccessTokenName, "stored", nil)
	c := New(httpClient, config.Endpoints{APIBase: "https://example.test"}, store, testLogger())

	raw, err := c.Do(context.Background(), http.MethodGet, "/v1/stocks", nil, WithAuthorization("Bearer caller"))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if string(raw) != "{}" {
		t.Fatalf("empty body should decode as {}, got %s", raw)
	}
}

func TestDo_ErrorMessageFromBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "message field", body: `{"message":"symbol not tracked"}`, want: "symbol not tracked"},
		{name: "no message", body: `{"error":"x"}`, want: "Request failed"},
		{name: "not json", body: `<html>bad gateway</html>`, want: "Request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, tt.body)
			}))
			_, err := c.StockQuotes(context.Background(), "BBCA")
			var reqErr *RequestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("error = %v, want *RequestError", err)
			}
			if err.Error() != tt.want || reqErr.StatusCode != http.StatusBadRequest {
				t.Fatalf("error = %q (%d), want %q", err.Error(), reqErr.StatusCode, tt.want)
			}
		})
	}
}

func TestLoginStoresTokensThenStocksNeedNoRefresh(t *testing.T) {
	var refreshCalls, unauthorized atomic.Int32
	c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/login":
			var body loginRequest
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.Email != "trader@example.com" || body.Password != "pw" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid credentials"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"access_token": "a-1", "refresh_token": "r-1", "expires_in": 900}})
		case "/v1/refresh":
			refreshCalls.Add(1)
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"access_token": "unexpected"}})
		case "/v1/stocks":
			if r.Header.Get("Authorization") != "Bearer a-1" {
				unauthorized.Add(1)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"symbol": "BBCA"}}})
		default:
			http.NotFound(w, r)
		}
	}))

	if err := c.Login(context.Background(), "trader@example.com", "bad"); err == nil || err.Error() != "invalid credentials" {
		t.Fatalf("Login(bad) error = %v", err)
	}
	if c.Authenticated() {
		t.Fatalf("failed login must not store tokens")
	}

	if err := c.Login(context.Background(), " trader@example.com ", "pw"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got, _ := store.Get(credentials.AccessTokenName); got != "a-1" {
		t.Fatalf("access token = %q", got)
	}
	if got, _ := store.Get(credentials.RefreshTokenName); got != "r-1" {
		t.Fatalf("refresh token = %q", got)
	}
	if !profile.TakeFlag(c.SessionStorage(), LoginNoticeKey) {
		t.Fatalf("expected one-time login notice flag")
	}

	stocks, err := c.Stocks(context.Background())
	if err != nil || len(stocks) != 1 {
		t.Fatalf("Stocks() = %#v, %v", stocks, err)
	}
	if refreshCalls.Load() != 0 || unauthorized.Load() != 0 {
		t.Fatalf("refresh calls = %d, 401s = %d; want 0, 0", refreshCalls.Load(), unauthorized.Load())
	}
}

func TestExpiredAccessTokenRefreshesOnceAndRetries(t *testing.T) {
	var refreshCalls atomic.Int32
	var correlationIDs []string
	var mu sync.Mutex
	c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/refresh":
			refreshCalls.Add(1)
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["refresh_token"] != "r-1" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"status": map[string]any{"message": "bad refresh"}})
				return
			}
			if r.Header.Get("Authorization") != "" {
				t.Errorf("refresh must not carry a bearer token")
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"access_token": "a-2", "refresh_token": "r-2", "expires_in": 600}})
		case "/v1/stocks":
			mu.Lock()
			correlationIDs = append(correlationIDs, r.Header.Get(CorrelationHeader))
			mu.Unlock()
			if r.Header.Get("Authorization") != "Bearer a-2" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "token expired"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"symbol": "TLKM"}}})
		}
	}))
	store.Set(credentials.AccessTokenName, "a-1", nil)
	store.Set(credentials.RefreshTokenName, "r-1", nil)

	stocks, err := c.Stocks(context.Background())
	if err != nil || len(stocks) != 1 || stocks[0].Symbol != "TLKM" {
		t.Fatalf("Stocks() = %#v, %v", stocks, err)
	}
	if refreshCalls.Load() != 1 {
		t.Fatalf("refresh calls = %d, want 1", refreshCalls.Load())
	}
	if got, _ := store.Get(credentials.AccessTokenName); got != "a-2" {
		t.Fatalf("access token = %q, want a-2", got)
	}
	if got, _ := store.Get(credentials.RefreshTokenName); got != "r-2" {
		t.Fatalf("refresh token = %q, want rotated r-2", got)
	}
	if len(correlationIDs) != 2 || correlationIDs[0] == correlationIDs[1] {
		t.Fatalf("correlation ids = %v, want two distinct", correlationIDs)
	}
}

func TestConcurrentUnauthorizedRequestsShareOneRefresh(t *testing.T) {
	const n = 8
	var refreshCalls, staleHits atomic.Int32
	c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/refresh":
			refreshCalls.Add(1)
			// Hold the refresh open until every caller has seen its 401.
			deadline := time.Now().Add(2 * time.Second)
			for staleHits.Load() < n && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			time.Sleep(100 * time.Millisecond)
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"access_token": "fresh"}})
		case "/v1/stock-quotes":
			if r.Header.Get("Authorization") != "Bearer fresh" {
				staleHits.Add(1)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": "q1", "symbol": r.URL.Query().Get("symbol")}}})
		}
	}))
	store.Set(credentials.AccessTokenName, "stale", nil)
	store.Set(credentials.RefreshTokenName, "r-1", nil)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Go(func() {
			quotes, err := c.StockQuotes(context.Background(), "BBCA")
			if err == nil && (len(quotes) != 1 || quotes[0].Symbol != "BBCA") {
				err = errors.New("unexpected quotes")
			}
			errs <- err
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("StockQuotes() error = %v", err)
		}
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
}

func TestRefreshFailureClearsSessionAndSurfacesOriginalError(t *testing.T) {
	tests := []struct {
		name    string
		refresh http.HandlerFunc
	}{
		{name: "rejected", refresh: func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"status": map[string]any{"message": "refresh expired"}})
		}},
		{name: "server error", refresh: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{name: "malformed payload", refresh: func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"data":`)
		}},
		{name: "no access token", refresh: func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{}})
		}},
		{name: "connection dropped", refresh: func(w http.ResponseWriter, r *http.Request) {
			hj, ok := w.(http.Hijacker)
			if !ok {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			conn, _, _ := hj.Hijack()
			_ = conn.Close()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/v1/refresh" {
					tt.refresh(w, r)
					return
				}
				writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "token expired"})
			}))
			store.Set(credentials.AccessTokenName, "a-1", nil)
			store.Set(credentials.RefreshTokenName, "r-1", nil)

			_, err := c.Stocks(context.Background())
			if err == nil || err.Error() != "token expired" {
				t.Fatalf("error = %v, want original 401 message", err)
			}
			if !IsUnauthorized(err) {
				t.Fatalf("IsUnauthorized(%v) = false", err)
			}
			if credentials.Authenticated(store) {
				t.Fatalf("both tokens must be cleared after refresh failure")
			}
		})
	}
}

func TestMissingRefreshTokenSkipsRefresh(t *testing.T) {
	var refreshCalls atomic.Int32
	c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/refresh" {
			refreshCalls.Add(1)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	store.Set(credentials.AccessTokenName, "a-1", nil)

	_, err := c.Stocks(context.Background())
	if !IsUnauthorized(err) {
		t.Fatalf("error = %v, want unauthorized", err)
	}
	if refreshCalls.Load() != 0 {
		t.Fatalf("refresh should not be called without a refresh token")
	}
	if err := c.RefreshSession(context.Background()); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("RefreshSession() = %v, want ErrNoCredential", err)
	}
}

func TestDomainTokenExpiredCodeTriggersRefresh(t *testing.T) {
	var refreshCalls atomic.Int32
	c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/refresh":
			refreshCalls.Add(1)
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"access_token": "a-2"}})
		default:
			if r.Header.Get("Authorization") != "Bearer a-2" {
				writeJSON(w, http.StatusForbidden, map[string]any{"status": map[string]any{"code": 4001, "message": "token expired"}})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
		}
	}))
	store.Set(credentials.AccessTokenName, "a-1", nil)
	store.Set(credentials.RefreshTokenName, "r-1", nil)

	if _, err := c.StockDaily(context.Background(), "BBCA"); err != nil {
		t.Fatalf("StockDaily() error = %v", err)
	}
	if refreshCalls.Load() != 1 {
		t.Fatalf("refresh calls = %d, want 1", refreshCalls.Load())
	}
}

func TestCompanyNewsQuery(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/v1/company-news" || q.Get("symbol") != "BBCA" || q.Get("start") != "2026-03-01" || q.Get("end") != "2026-03-02" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": "n1", "headline": "Dividend"}}})
	}))
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)
	news, err := c.CompanyNews(context.Background(), "BBCA", DefaultNewsRange(now))
	if err != nil || len(news) != 1 || news[0].Headline != "Dividend" {
		t.Fatalf("CompanyNews() = %#v, %v", news, err)
	}
}

func TestVAPIDPublicKeyFallbacks(t *testing.T) {
	bodies := map[string]string{
		"data.public_key":       `{"data":{"public_key":"k1"}}`,
		"data.vapid_public_key": `{"data":{"vapid_public_key":"k1"}}`,
		"public_key":            `{"public_key":"k1"}`,
		"vapid_public_key":      `{"vapid_public_key":"k1"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v1/push/vapid-public-key" {
					t.Errorf("path = %s", r.URL.Path)
				}
				_, _ = io.WriteString(w, body)
			}))
			key, err := c.VAPIDPublicKey(context.Background())
			if err != nil || key != "k1" {
				t.Fatalf("VAPIDPublicKey() = %q, %v", key, err)
			}
		})
	}
}

func TestServerMessagePrefersStatusEnvelope(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{body: `{"status":{"code":"PUSH_400","remark":"endpoint invalid","message":"bad request"}}`, want: "endpoint invalid (PUSH_400)"},
		{body: `{"status":{"message":"device unknown"}}`, want: "device unknown"},
		{body: `{"message":"plain"}`, want: "plain"},
		{body: `oops`, want: "fallback"},
	}
	for _, tt := range tests {
		err := newRequestError(http.StatusBadRequest, "400 Bad Request", []byte(tt.body), "cid")
		if got := ServerMessage(err, "fallback"); got != tt.want {
			t.Fatalf("ServerMessage(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
	if got := ServerMessage(errors.New("network"), "fallback"); got != "fallback" {
		t.Fatalf("ServerMessage(non-request) = %q", got)
	}
}

func TestTokenSourceReadsCurrentToken(t *testing.T) {
	store := credentials.NewMemoryStore()
	c := New(nil, config.Endpoints{}, store, testLogger())
	ts := c.TokenSource()
	if _, err := ts.Token(); err == nil {
		t.Fatalf("expected error without a stored token")
	}
	store.Set(credentials.AccessTokenName, "a-9", nil)
	tok, err := ts.Token()
	if err != nil || tok.AccessToken != "a-9" {
		t.Fatalf("Token() = %#v, %v", tok, err)
	}
}

func TestFallbackCorrelationIDShape(t *testing.T) {
	id := fallbackCorrelationID(time.UnixMilli(1_700_000_000_000))
	if !regexp.MustCompile(`^cid_[0-9a-z]+_[0-9a-z]{8}$`).MatchString(id) {
		t.Fatalf("fallback id = %q", id)
	}
}
