package sessions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/nrf-quote/cache"
	"github.com/jrsteele09/nrf-quote/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultCookieName holds the sealed session id.
	DefaultCookieName = "nrf-session"

	sessionKeyPrefix = "session:"
	flashKeyPrefix   = "flash:"
)

// Manager loads and persists browser sessions in a cache.Cache.
type Manager struct {
	store      cache.Cache
	codec      *CookieCodec
	ttl        time.Duration
	cookieName string
	secure     bool
	nowTime    func() time.Time
}

type ManagerOption func(*Manager)

func WithCookieName(name string) ManagerOption {
	return func(m *Manager) {
		m.cookieName = name
	}
}

func WithSecureCookie(secure bool) ManagerOption {
	return func(m *Manager) {
		m.secure = secure
	}
}

func WithNowTime(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = now
	}
}

func NewManager(store cache.Cache, codec *CookieCodec, ttl time.Duration, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}
	if codec == nil {
		return nil, errors.New("[NewManager] codec is required")
	}
	if ttl <= 0 {
		return nil, errors.New("[NewManager] ttl must be positive")
	}
	m := &Manager{
		store:      store,
		codec:      codec,
		ttl:        ttl,
		cookieName: DefaultCookieName,
		nowTime:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL is the lifetime of a session after its last save.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Load returns the session referenced by the request cookie. A missing, tampered or
// expired reference yields a fresh session. Only store failures are returned as errors.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return newSession(m.nowTime()), nil
	}
	id, err := m.codec.Decode(cookie.Value)
	if err != nil {
		log.Debug().Err(err).Msg("discarding unreadable session cookie")
		return newSession(m.nowTime()), nil
	}

	s := &Session{}
	if err := m.store.Get(ctx, sessionKeyPrefix+id, s); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return newSession(m.nowTime()), nil
		}
		return nil, errors.Wrapf(err, "[Manager Load] session lookup failed")
	}
	s.snapshot, _ = json.Marshal(s)
	return s, nil
}

// Save persists the session when it is new or has changed since Load, and refreshes the cookie.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrapf(err, "[Manager Save] encode session")
	}
	if s.dropped || (!s.isNew && bytes.Equal(data, s.snapshot)) {
		return nil
	}
	if err := m.store.Set(ctx, sessionKeyPrefix+s.ID, s, m.ttl); err != nil {
		return errors.Wrapf(err, "[Manager Save] store session")
	}
	sealed, err := m.codec.Encode(s.ID)
	if err != nil {
		return errors.Wrapf(err, "[Manager Save] seal cookie")
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    sealed,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl.Seconds()),
	})
	s.isNew = false
	s.snapshot = data
	return nil
}

// Drop deletes the stored session and expires the cookie. Flash entries are left to their TTL.
func (m *Manager) Drop(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if err := m.store.Delete(ctx, sessionKeyPrefix+s.ID); err != nil {
		return errors.Wrapf(err, "[Manager Drop] delete session")
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	s.dropped = true
	return nil
}

// PutFlash stores a one-shot value for the session under name, replacing any previous one.
func (m *Manager) PutFlash(ctx context.Context, s *Session, name string, value any) error {
	if err := m.store.Set(ctx, flashKey(s, name), value, m.ttl); err != nil {
		return errors.Wrapf(err, "[Manager PutFlash] %s", name)
	}
	return nil
}

// TakeFlash reads and removes the flash stored under name. It reports false when there is none.
// Concurrent callers never both receive the same flash.
func (m *Manager) TakeFlash(ctx context.Context, s *Session, name string, dst any) (bool, error) {
	err := m.store.Take(ctx, flashKey(s, name), dst)
	if errors.Is(err, errors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "[Manager TakeFlash] %s", name)
	}
	return true, nil
}

func flashKey(s *Session, name string) string {
	return flashKeyPrefix + s.ID + ":" + name
}
