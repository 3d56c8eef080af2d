package config

import (
	"testing"
	"time"
)

func TestBuildEndpoints_NormalizeOrigin(t *testing.T) {
	tests := []struct {
		name       string
		base       string
		wantOrigin string
		wantWS     string
	}{
		{name: "root host", base: "http://127.0.0.1:8080", wantOrigin: "http://127.0.0.1:8080", wantWS: "ws://127.0.0.1:8080"},
		{name: "trailing slash", base: "http://127.0.0.1:8080/", wantOrigin: "http://127.0.0.1:8080", wantWS: "ws://127.0.0.1:8080"},
		{name: "pasted page", base: "https://stocks.example.com/detail/daily/BBCA?x=1#chart", wantOrigin: "https://stocks.example.com", wantWS: "wss://stocks.example.com"},
		{name: "upper scheme", base: "HTTPS://stocks.example.com/api", wantOrigin: "https://stocks.example.com", wantWS: "wss://stocks.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoints, err := BuildEndpoints(tt.base, "")
			if err != nil {
				t.Fatalf("BuildEndpoints failed: %v", err)
			}
			if endpoints.Origin != tt.wantOrigin || endpoints.APIBase != tt.wantOrigin {
				t.Fatalf("Origin = %q APIBase = %q, want %q", endpoints.Origin, endpoints.APIBase, tt.wantOrigin)
			}
			if endpoints.StocksURL != tt.wantOrigin+"/v1/stocks" {
				t.Fatalf("StocksURL = %q", endpoints.StocksURL)
			}
			if endpoints.VAPIDKeyURL != tt.wantOrigin+"/api/v1/push/vapid-public-key" {
				t.Fatalf("VAPIDKeyURL = %q", endpoints.VAPIDKeyURL)
			}
			if endpoints.AlertsWSURL != tt.wantWS+"/api/alerts/ws" || endpoints.QuotesWSURL != tt.wantWS+"/api/quotes/ws" {
				t.Fatalf("ws URLs = %q, %q", endpoints.QuotesWSURL, endpoints.AlertsWSURL)
			}
		})
	}
}

func TestBuildEndpoints_SeparateAPIBase(t *testing.T) {
	endpoints, err := BuildEndpoints("https://stocks.example.com", "https://api.example.com/backend/v1/stocks")
	if err != nil {
		t.Fatalf("BuildEndpoints failed: %v", err)
	}
	if endpoints.APIBase != "https://api.example.com/backend" {
		t.Fatalf("APIBase = %q", endpoints.APIBase)
	}
	if endpoints.RefreshURL != "https://api.example.com/backend/v1/refresh" {
		t.Fatalf("RefreshURL = %q", endpoints.RefreshURL)
	}
	if endpoints.SubscriptionsURL != "https://stocks.example.com/api/v1/push/subscriptions" {
		t.Fatalf("SubscriptionsURL = %q", endpoints.SubscriptionsURL)
	}
}

func TestBuildEndpoints_InvalidScheme(t *testing.T) {
	tests := []string{
		"ftp://example.com",
		"ws://example.com",
		"file:///tmp/sunstock",
		"localhost:8080",
	}
	for _, base := range tests {
		t.Run(base, func(t *testing.T) {
			if _, err := BuildEndpoints(base, ""); err == nil {
				t.Fatalf("expected error for %q", base)
			}
		})
	}
}

func TestApplyDefaultsAndValidate(t *testing.T) {
	opts := ApplyDefaults(Options{Symbol: " bbca "})
	if opts.BaseURL != DefaultBaseURL || opts.PushListen != DefaultPushListen || opts.PollInterval != 5*time.Minute {
		t.Fatalf("defaults = %#v", opts)
	}
	if opts.Symbol != "BBCA" {
		t.Fatalf("Symbol = %q", opts.Symbol)
	}
	if err := ValidateRequired(opts); err != nil {
		t.Fatalf("ValidateRequired() error = %v", err)
	}
	opts.Email = "a@b.c"
	if err := ValidateRequired(opts); err == nil {
		t.Fatalf("expected error when password missing")
	}
}
