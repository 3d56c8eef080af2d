package profile

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCookiesRoundTripAndExpiry(t *testing.T) {
	db := openTestDB(t)

	live := &http.Cookie{Name: "access_token", Value: "a-1", Path: "/", MaxAge: 900, Expires: time.Now().Add(15 * time.Minute), Secure: true, SameSite: http.SameSiteLaxMode}
	stale := &http.Cookie{Name: "stale", Value: "x", Path: "/", Expires: time.Now().Add(-time.Minute)}
	session := &http.Cookie{Name: "refresh_token", Value: "r-1", Path: "/", SameSite: http.SameSiteLaxMode}
	for _, c := range []*http.Cookie{live, stale, session} {
		if err := db.SaveCookie(c); err != nil {
			t.Fatalf("SaveCookie(%s) error = %v", c.Name, err)
		}
	}

	loaded, err := db.LoadCookies()
	if err != nil {
		t.Fatalf("LoadCookies() error = %v", err)
	}
	byName := map[string]*http.Cookie{}
	for _, c := range loaded {
		byName[c.Name] = c
	}
	if _, ok := byName["stale"]; ok {
		t.Fatalf("expired cookie should not load")
	}
	if c := byName["access_token"]; c == nil || c.Value != "a-1" || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("access cookie = %#v", c)
	}
	if c := byName["refresh_token"]; c == nil || !c.Expires.IsZero() {
		t.Fatalf("session cookie = %#v", c)
	}

	if err := db.DeleteCookie("access_token"); err != nil {
		t.Fatalf("DeleteCookie() error = %v", err)
	}
	loaded, _ = db.LoadCookies()
	if len(loaded) != 1 {
		t.Fatalf("cookies after delete = %d, want 1", len(loaded))
	}
}

func TestLocalStoragePersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(context.Background(), dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.Local().SetItem("push_device_id", "dev-1"); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	_ = db.Close()

	reopened, err := Open(context.Background(), dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()
	if got, ok := reopened.Local().GetItem("push_device_id"); !ok || got != "dev-1" {
		t.Fatalf("GetItem() = %q, %v", got, ok)
	}
	if err := reopened.Local().RemoveItem("push_device_id"); err != nil {
		t.Fatalf("RemoveItem() error = %v", err)
	}
	if _, ok := reopened.Local().GetItem("push_device_id"); ok {
		t.Fatalf("expected removed key to be absent")
	}
}

func TestTakeFlagIsOneShot(t *testing.T) {
	s := NewSessionStorage()
	_ = s.SetItem("show_login_success_popup", "1")
	if !TakeFlag(s, "show_login_success_popup") {
		t.Fatalf("first TakeFlag() = false")
	}
	if TakeFlag(s, "show_login_success_popup") {
		t.Fatalf("second TakeFlag() = true")
	}
}

func TestSubscriptionsCRUD(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.LatestSubscription(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LatestSubscription() on empty = %v, want ErrNotFound", err)
	}

	older := SubscriptionRecord{ID: "s-1", Endpoint: "http://127.0.0.1:8765/push/s-1", P256dh: "pk1", Auth: "au1", PrivateKey: []byte{1, 2}, ServerKey: "vk", CreatedAt: time.Unix(100, 0)}
	newer := SubscriptionRecord{ID: "s-2", Endpoint: "http://127.0.0.1:8765/push/s-2", P256dh: "pk2", Auth: "au2", PrivateKey: []byte{3, 4}, ServerKey: "vk", CreatedAt: time.Unix(200, 0)}
	for _, rec := range []SubscriptionRecord{older, newer} {
		if err := db.SaveSubscription(ctx, rec); err != nil {
			t.Fatalf("SaveSubscription(%s) error = %v", rec.ID, err)
		}
	}

	latest, err := db.LatestSubscription(ctx)
	if err != nil || latest.ID != "s-2" || string(latest.PrivateKey) != string([]byte{3, 4}) {
		t.Fatalf("LatestSubscription() = %#v, %v", latest, err)
	}
	got, err := db.Subscription(ctx, "s-1")
	if err != nil || got.Endpoint != older.Endpoint || !got.CreatedAt.Equal(older.CreatedAt) {
		t.Fatalf("Subscription(s-1) = %#v, %v", got, err)
	}
	if err := db.DeleteSubscription(ctx, "s-1"); err != nil {
		t.Fatalf("DeleteSubscription() error = %v", err)
	}
	if err := db.DeleteSubscription(ctx, "s-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteSubscription() = %v, want ErrNotFound", err)
	}
}
