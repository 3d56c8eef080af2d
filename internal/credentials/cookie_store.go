package credentials

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Backend persists serialized cookies across process restarts.
type Backend interface {
	LoadCookies() ([]*http.Cookie, error)
	SaveCookie(cookie *http.Cookie) error
	DeleteCookie(name string) error
}

// CookieStore keeps credentials as cookies scoped to an origin. Cookies carry
// Path=/ and SameSite=Lax, plus Secure when the origin is served over https.
type CookieStore struct {
	mu       sync.RWMutex
	secure   bool
	detached bool
	cookies  map[string]*http.Cookie
	backend  Backend
	now      func() time.Time
}

// NewCookieStore builds a store for origin. Cookies already held by backend
// are loaded eagerly; a load failure leaves the store empty.
func NewCookieStore(origin string, backend Backend) *CookieStore {
	s := &CookieStore{
		secure:  isSecureOrigin(origin),
		cookies: map[string]*http.Cookie{},
		backend: backend,
		now:     time.Now,
	}
	if backend != nil {
		if loaded, err := backend.LoadCookies(); err == nil {
			for _, c := range loaded {
				if c != nil && c.Name != "" {
					s.cookies[c.Name] = c
				}
			}
		}
	}
	return s
}

// NewDetachedStore returns a store with no document to write to. Reads
// report absence and writes are dropped.
func NewDetachedStore() *CookieStore {
	return &CookieStore{detached: true, cookies: map[string]*http.Cookie{}, now: time.Now}
}

func isSecureOrigin(origin string) bool {
	parsed, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Scheme, "https")
}

func (s *CookieStore) build(name, value string, maxAge *time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(value),
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secure,
	}
	if maxAge != nil {
		seconds := int(maxAge.Seconds())
		if seconds <= 0 {
			c.MaxAge = -1
		} else {
			c.MaxAge = seconds
			c.Expires = s.now().Add(time.Duration(seconds) * time.Second)
		}
	}
	return c
}

func (s *CookieStore) Set(name, value string, maxAge *time.Duration) {
	if s.detached {
		return
	}
	c := s.build(name, value, maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.MaxAge < 0 {
		delete(s.cookies, name)
		s.deleteBackend(name)
		return
	}
	s.cookies[name] = c
	if s.backend != nil {
		_ = s.backend.SaveCookie(c)
	}
}

func (s *CookieStore) Get(name string) (string, bool) {
	if s.detached {
		return "", false
	}
	s.mu.RLock()
	c, ok := s.cookies[name]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !c.Expires.IsZero() && !s.now().Before(c.Expires) {
		s.mu.Lock()
		if current, still := s.cookies[name]; still && current == c {
			delete(s.cookies, name)
			s.deleteBackend(name)
		}
		s.mu.Unlock()
		return "", false
	}
	value, err := url.QueryUnescape(c.Value)
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

// Clear expires name immediately.
func (s *CookieStore) Clear(name string) {
	s.Set(name, "", MaxAge(0))
}

// SetCookieString renders the Set-Cookie form of name, including attributes.
// It returns "" when name is not held.
func (s *CookieStore) SetCookieString(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cookies[name]
	if !ok {
		return ""
	}
	return c.String()
}

func (s *CookieStore) deleteBackend(name string) {
	if s.backend != nil {
		_ = s.backend.DeleteCookie(name)
	}
}
