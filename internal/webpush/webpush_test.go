package webpush

import (
	"bytes"
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/profile"
	"sunstock-dashboard/internal/push"
)

func testLogger() *logging.Logger {
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return logger
}

func openDB(t *testing.T) *profile.DB {
	t.Helper()
	db, err := profile.Open(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("profile.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// encrypt is the sender side of aes128gcm, splitting plaintext into records
// of recordSize bytes.
func encrypt(t *testing.T, receiverKey, auth, plaintext []byte, recordSize int) []byte {
	t.Helper()
	receiver, err := ecdh.P256().NewPublicKey(receiverKey)
	if err != nil {
		t.Fatalf("NewPublicKey() error = %v", err)
	}
	sender, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	shared, err := sender.ECDH(receiver)
	if err != nil {
		t.Fatalf("ECDH() error = %v", err)
	}
	salt := make([]byte, saltLen)
	_, _ = rand.Read(salt)
	gcm, nonce, err := contentKeys(shared, auth, receiverKey, sender.PublicKey().Bytes(), salt)
	if err != nil {
		t.Fatalf("contentKeys() error = %v", err)
	}

	var out bytes.Buffer
	out.Write(salt)
	_ = binary.Write(&out, binary.BigEndian, uint32(recordSize))
	out.WriteByte(publicKeyLen)
	out.Write(sender.PublicKey().Bytes())

	chunk := recordSize - 17
	for seq := uint64(0); ; seq++ {
		n := min(chunk, len(plaintext))
		record := append([]byte{}, plaintext[:n]...)
		plaintext = plaintext[n:]
		if len(plaintext) == 0 {
			record = append(record, 0x02)
			out.Write(gcm.Seal(nil, recordNonce(nonce, seq), record, nil))
			return out.Bytes()
		}
		record = append(record, 0x01)
		out.Write(gcm.Seal(nil, recordNonce(nonce, seq), record, nil))
	}
}

func TestDecryptRoundTrip(t *testing.T) {
	keys, err := GenerateKeys()
	if err != nil {
		t.Fatalf("GenerateKeys() error = %v", err)
	}
	message := []byte(`{"type":"popup","message":"BBCA crossed EMA20"}`)

	single := encrypt(t, keys.PublicKey(), keys.Auth, message, 4096)
	got, err := Decrypt(keys, single)
	if err != nil || !bytes.Equal(got, message) {
		t.Fatalf("Decrypt(single) = %q, %v", got, err)
	}

	multi := encrypt(t, keys.PublicKey(), keys.Auth, message, 18+10)
	got, err = Decrypt(keys, multi)
	if err != nil || !bytes.Equal(got, message) {
		t.Fatalf("Decrypt(multi) = %q, %v", got, err)
	}
}

func TestDecryptRejectsTamperedAndForeignMessages(t *testing.T) {
	keys, _ := GenerateKeys()
	other, _ := GenerateKeys()
	body := encrypt(t, keys.PublicKey(), keys.Auth, []byte("hello"), 4096)

	tampered := append([]byte{}, body...)
	tampered[len(tampered)-1] ^= 0xff
	if _, err := Decrypt(keys, tampered); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("tampered error = %v", err)
	}
	if _, err := Decrypt(other, body); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("foreign key error = %v", err)
	}
	if _, err := Decrypt(keys, body[:10]); !errors.Is(err, ErrMalformedBody) {
		t.Fatalf("short body error = %v", err)
	}
}

type recordingPrompter struct {
	answer push.Permission
	calls  int
}

func (p *recordingPrompter) Prompt(context.Context) (push.Permission, error) {
	p.calls++
	return p.answer, nil
}

func TestPlatformPermissionPersistence(t *testing.T) {
	db := openDB(t)
	platform := NewPlatform(db, db.Local(), "http://127.0.0.1:8765", "test", testLogger())
	if platform.Permission() != push.PermissionDefault {
		t.Fatalf("initial permission = %s", platform.Permission())
	}
	if perm, _ := platform.RequestPermission(context.Background()); perm != push.PermissionDefault {
		t.Fatalf("prompt without prompter = %s", perm)
	}

	dismiss := &recordingPrompter{answer: push.PermissionDefault}
	platform.SetPrompter(dismiss)
	_, _ = platform.RequestPermission(context.Background())
	if platform.Permission() != push.PermissionDefault {
		t.Fatalf("dismissed prompt must not persist")
	}

	platform.SetPrompter(&recordingPrompter{answer: push.PermissionGranted})
	if perm, err := platform.RequestPermission(context.Background()); err != nil || perm != push.PermissionGranted {
		t.Fatalf("RequestPermission() = %s, %v", perm, err)
	}
	reopened := NewPlatform(db, db.Local(), "http://127.0.0.1:8765", "test", testLogger())
	if reopened.Permission() != push.PermissionGranted {
		t.Fatalf("permission not persisted")
	}
	if err := reopened.ResetPermission(); err != nil || reopened.Permission() != push.PermissionDefault {
		t.Fatalf("ResetPermission() = %v, permission %s", err, reopened.Permission())
	}
	if !strings.HasPrefix(reopened.UserAgent(), "sunstock-dashboard/test") {
		t.Fatalf("user agent = %q", reopened.UserAgent())
	}
}

func TestRegistrationLifecycle(t *testing.T) {
	db := openDB(t)
	platform := NewPlatform(db, db.Local(), "http://127.0.0.1:8765/", "test", testLogger())
	reg, err := platform.Register(context.Background())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if sub, err := reg.Subscription(context.Background()); err != nil || sub != nil {
		t.Fatalf("Subscription() before subscribe = %v, %v", sub, err)
	}

	serverKey := bytes.Repeat([]byte{4}, 65)
	sub, err := reg.Subscribe(context.Background(), serverKey)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !strings.HasPrefix(sub.Endpoint, "http://127.0.0.1:8765/push/") || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		t.Fatalf("subscription = %#v", sub)
	}
	again, err := reg.Subscription(context.Background())
	if err != nil || again == nil || again.Endpoint != sub.Endpoint || !bytes.Equal(again.ApplicationServerKey, serverKey) {
		t.Fatalf("Subscription() = %#v, %v", again, err)
	}

	if err := reg.Unsubscribe(context.Background(), *sub); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if sub, _ := reg.Subscription(context.Background()); sub != nil {
		t.Fatalf("subscription survived Unsubscribe")
	}
}

func TestReceiverDecryptsAndDelivers(t *testing.T) {
	db := openDB(t)
	platform := NewPlatform(db, db.Local(), "http://push.test", "test", testLogger())
	reg, _ := platform.Register(context.Background())
	sub, err := reg.Subscribe(context.Background(), bytes.Repeat([]byte{4}, 65))
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	p256dh, _ := base64.RawURLEncoding.DecodeString(sub.Keys.P256dh)
	auth, _ := base64.RawURLEncoding.DecodeString(sub.Keys.Auth)

	var mu sync.Mutex
	var delivered [][]byte
	receiver := NewReceiver(db, func(_ context.Context, payload []byte) {
		mu.Lock()
		delivered = append(delivered, payload)
		mu.Unlock()
	}, testLogger())
	server := httptest.NewServer(receiver.Handler())
	defer server.Close()
	path := strings.TrimPrefix(sub.Endpoint, "http://push.test")

	post := func(target, encoding string, body []byte) int {
		req, _ := http.NewRequest(http.MethodPost, server.URL+target, bytes.NewReader(body))
		if encoding != "" {
			req.Header.Set("Content-Encoding", encoding)
		}
		resp, err := server.Client().Do(req)
		if err != nil {
			t.Fatalf("POST error = %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	message := []byte(`{"type":"popup"}`)
	if code := post(path, "aes128gcm", encrypt(t, p256dh, auth, message, 4096)); code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", code)
	}
	if code := post(path, "aesgcm", encrypt(t, p256dh, auth, message, 4096)); code != http.StatusUnsupportedMediaType {
		t.Fatalf("legacy encoding status = %d", code)
	}
	if code := post(path, "aes128gcm", []byte("garbage")); code != http.StatusBadRequest {
		t.Fatalf("garbage status = %d", code)
	}
	if code := post("/push/unknown", "aes128gcm", encrypt(t, p256dh, auth, message, 4096)); code != http.StatusGone {
		t.Fatalf("unknown id status = %d", code)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 || !bytes.Equal(delivered[0], message) {
		t.Fatalf("delivered = %q", delivered)
	}
}
