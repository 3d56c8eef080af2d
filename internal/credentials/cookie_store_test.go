package credentials

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

type fakeBackend struct {
	saved   map[string]*http.Cookie
	deleted []string
}

func (f *fakeBackend) LoadCookies() ([]*http.Cookie, error) {
	out := make([]*http.Cookie, 0, len(f.saved))
	for _, c := range f.saved {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeBackend) SaveCookie(c *http.Cookie) error {
	if f.saved == nil {
		f.saved = map[string]*http.Cookie{}
	}
	f.saved[c.Name] = c
	return nil
}

func (f *fakeBackend) DeleteCookie(name string) error {
	delete(f.saved, name)
	f.deleted = append(f.deleted, name)
	return nil
}

func TestCookieStore_SecureOnlyOnHTTPSOrigin(t *testing.T) {
	tests := []struct {
		origin     string
		wantSecure bool
	}{
		{origin: "https://dashboard.example.com", wantSecure: true},
		{origin: "HTTPS://dashboard.example.com/daily", wantSecure: true},
		{origin: "http://localhost:3000", wantSecure: false},
		{origin: "", wantSecure: false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			store := NewCookieStore(tt.origin, nil)
			store.Set("a", "b", nil)
			raw := store.SetCookieString("a")
			if !strings.HasPrefix(raw, "a=b") {
				t.Fatalf("cookie = %q", raw)
			}
			if !strings.Contains(raw, "Path=/") || !strings.Contains(raw, "SameSite=Lax") {
				t.Fatalf("cookie %q missing Path/SameSite", raw)
			}
			if got := strings.Contains(raw, "Secure"); got != tt.wantSecure {
				t.Fatalf("cookie %q Secure = %v, want %v", raw, got, tt.wantSecure)
			}
		})
	}
}

func TestCookieStore_MaxAgeAndExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	store := NewCookieStore("https://example.com", nil)
	store.now = func() time.Time { return now }

	store.Set(AccessTokenName, "tok en/1", MaxAge(90*time.Second))
	if raw := store.SetCookieString(AccessTokenName); !strings.Contains(raw, "Max-Age=90") {
		t.Fatalf("cookie = %q, want Max-Age=90", raw)
	}
	if got, ok := store.Get(AccessTokenName); !ok || got != "tok en/1" {
		t.Fatalf("Get() = %q, %v", got, ok)
	}

	now = now.Add(91 * time.Second)
	if _, ok := store.Get(AccessTokenName); ok {
		t.Fatalf("expected expired cookie to read as absent")
	}
	if raw := store.SetCookieString(AccessTokenName); raw != "" {
		t.Fatalf("expired cookie still held: %q", raw)
	}
}

func TestCookieStore_ClearRemovesValueAndBackendRow(t *testing.T) {
	backend := &fakeBackend{}
	store := NewCookieStore("http://localhost", backend)
	store.Set(RefreshTokenName, "r-1", MaxAge(RefreshTokenMaxAge))
	if backend.saved[RefreshTokenName] == nil {
		t.Fatalf("expected backend to persist cookie")
	}

	store.Clear(RefreshTokenName)
	if _, ok := store.Get(RefreshTokenName); ok {
		t.Fatalf("expected cleared token to be absent")
	}
	if len(backend.deleted) != 1 || backend.deleted[0] != RefreshTokenName {
		t.Fatalf("backend deletes = %v", backend.deleted)
	}
}

func TestCookieStore_LoadsFromBackend(t *testing.T) {
	backend := &fakeBackend{}
	first := NewCookieStore("http://localhost", backend)
	first.Set(AccessTokenName, "persisted", nil)

	second := NewCookieStore("http://localhost", backend)
	if got, ok := second.Get(AccessTokenName); !ok || got != "persisted" {
		t.Fatalf("Get() = %q, %v", got, ok)
	}
}

func TestDetachedStoreReportsAbsence(t *testing.T) {
	store := NewDetachedStore()
	store.Set(AccessTokenName, "x", nil)
	if _, ok := store.Get(AccessTokenName); ok {
		t.Fatalf("detached store should never report a value")
	}
	store.Clear(AccessTokenName)
}
