package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/nrf-quote/cache"
	"github.com/jrsteele09/nrf-quote/internal/errors"
)

type Profile struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	Organisation string `json:"organisation,omitempty"`
	ContactID    string `json:"contactId,omitempty"`
}

// UserSession is a signed-in user, kept server side and referenced from the browser session.
type UserSession struct {
	ID              string    `json:"sessionId"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	Profile         Profile   `json:"profile"`
	AccessToken     string    `json:"token"`
	RefreshToken    string    `json:"refreshToken"`
	IDToken         string    `json:"idToken,omitempty"`
	TokenExpiry     time.Time `json:"tokenExpiry,omitempty"`
	Role            string    `json:"role"`
	Scope           []string  `json:"scope"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Expiry is when the access token stops being valid. Without a recorded expiry it is read
// from the token's exp claim; a token that cannot be read counts as already expired.
func (u *UserSession) Expiry() time.Time {
	if !u.TokenExpiry.IsZero() {
		return u.TokenExpiry
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(u.AccessToken, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// Expired reports whether the access token expired more than skew before now.
func (u *UserSession) Expired(now time.Time, skew time.Duration) bool {
	exp := u.Expiry()
	return exp.IsZero() || now.After(exp.Add(skew))
}

type UserSessionRepo interface {
	Upsert(ctx context.Context, session *UserSession) error
	Get(ctx context.Context, sessionID string) (*UserSession, error)
	Delete(ctx context.Context, sessionID string) error
}

const userSessionKeyPrefix = "user:"

// CacheUserSessionRepo keeps user sessions in a cache.Cache with a fixed lifetime.
type CacheUserSessionRepo struct {
	store cache.Cache
	ttl   time.Duration
}

var _ UserSessionRepo = (*CacheUserSessionRepo)(nil)

func NewCacheUserSessionRepo(store cache.Cache, ttl time.Duration) *CacheUserSessionRepo {
	return &CacheUserSessionRepo{store: store, ttl: ttl}
}

func (r *CacheUserSessionRepo) Upsert(ctx context.Context, session *UserSession) error {
	if session == nil || session.ID == "" {
		return errors.New("[CacheUserSessionRepo Upsert] session id is required")
	}
	return errors.Wrapf(r.store.Set(ctx, userSessionKeyPrefix+session.ID, session, r.ttl), "[CacheUserSessionRepo Upsert]")
}

// Get returns an error wrapping errors.ErrSessionNotFound when there is no such session.
func (r *CacheUserSessionRepo) Get(ctx context.Context, sessionID string) (*UserSession, error) {
	if sessionID == "" {
		return nil, errors.Wrapf(errors.ErrSessionNotFound, "[CacheUserSessionRepo Get] session id is required")
	}
	var session UserSession
	if err := r.store.Get(ctx, userSessionKeyPrefix+sessionID, &session); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Wrapf(errors.ErrSessionNotFound, "[CacheUserSessionRepo Get] %s", sessionID)
		}
		return nil, errors.Wrapf(err, "[CacheUserSessionRepo Get]")
	}
	return &session, nil
}

func (r *CacheUserSessionRepo) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return errors.Wrapf(r.store.Delete(ctx, userSessionKeyPrefix+sessionID), "[CacheUserSessionRepo Delete]")
}
