package credentials

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	raw, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return raw
}

func TestSave_RefreshLifetimes(t *testing.T) {
	store := NewCookieStore("https://example.com", nil)
	Save(store, Credential{AccessToken: "a-1", RefreshToken: "r-1", ExpiresIn: 900}, SaveOptions{})

	if got, ok := store.Get(AccessTokenName); !ok || got != "a-1" {
		t.Fatalf("access = %q, %v", got, ok)
	}
	if raw := store.SetCookieString(AccessTokenName); !strings.Contains(raw, "Max-Age=900") {
		t.Fatalf("access cookie = %q", raw)
	}
	if raw := store.SetCookieString(RefreshTokenName); !strings.Contains(raw, "Max-Age=2592000") {
		t.Fatalf("refresh cookie = %q", raw)
	}

	Save(store, Credential{AccessToken: "a-2", RefreshToken: "r-2"}, SaveOptions{SessionRefresh: true})
	if raw := store.SetCookieString(RefreshTokenName); strings.Contains(raw, "Max-Age") {
		t.Fatalf("session refresh cookie should have no max age: %q", raw)
	}
}

func TestSave_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	store := NewMemoryStore()
	Save(store, Credential{AccessToken: "a-1", RefreshToken: "r-1"}, SaveOptions{})
	Save(store, Credential{AccessToken: "a-2"}, SaveOptions{})
	if got, _ := store.Get(RefreshTokenName); got != "r-1" {
		t.Fatalf("refresh = %q, want r-1", got)
	}
	if got, _ := store.Get(AccessTokenName); got != "a-2" {
		t.Fatalf("access = %q, want a-2", got)
	}
}

func TestClearAndAuthenticated(t *testing.T) {
	store := NewMemoryStore()
	if Authenticated(store) {
		t.Fatalf("empty store should be unauthenticated")
	}
	store.Set(RefreshTokenName, "r-1", nil)
	if !Authenticated(store) {
		t.Fatalf("refresh token alone should count as authenticated")
	}
	Clear(store)
	if Authenticated(store) {
		t.Fatalf("cleared store should be unauthenticated")
	}
}

func TestAccessTokenMaxAge(t *testing.T) {
	if got := AccessTokenMaxAge(Credential{AccessToken: "opaque", ExpiresIn: 60}); got == nil || *got != time.Minute {
		t.Fatalf("expires_in max age = %v", got)
	}
	if got := AccessTokenMaxAge(Credential{AccessToken: "opaque"}); got != nil {
		t.Fatalf("opaque token max age = %v, want nil", *got)
	}

	jwtToken := signedToken(t, time.Now().Add(10*time.Minute))
	got := AccessTokenMaxAge(Credential{AccessToken: jwtToken})
	if got == nil || *got <= 9*time.Minute || *got > 10*time.Minute {
		t.Fatalf("jwt max age = %v", got)
	}

	expired := signedToken(t, time.Now().Add(-time.Minute))
	if got := AccessTokenMaxAge(Credential{AccessToken: expired}); got != nil {
		t.Fatalf("expired jwt max age = %v, want nil", *got)
	}
}

func TestCredentialToken(t *testing.T) {
	tok := Credential{AccessToken: "a-1", RefreshToken: "r-1", ExpiresIn: 60}.Token()
	if tok.AccessToken != "a-1" || tok.TokenType != "Bearer" || tok.Expiry.IsZero() {
		t.Fatalf("token = %#v", tok)
	}
}
