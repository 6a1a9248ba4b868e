// Package sessions binds a browser to its server-side session record. The browser only
// ever holds the session id, sealed inside an HttpOnly cookie.
package sessions

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// AuthFlow is the OAuth correlation state held between sign-in and the provider callback.
type AuthFlow struct {
	State      string    `json:"state"`
	RedirectTo string    `json:"redirectTo,omitempty"`
	IssuedAt   time.Time `json:"issuedAt"`
}

// Expired reports whether the flow is older than maxAge.
func (f *AuthFlow) Expired(now time.Time, maxAge time.Duration) bool {
	return f == nil || now.Sub(f.IssuedAt) > maxAge
}

// Session is the server-side state of one browser.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	// Answers accumulates the validated values of each quote step.
	Answers map[string]any `json:"answers,omitempty"`

	AuthFlow      *AuthFlow `json:"authFlow,omitempty"`
	UserSessionID string    `json:"userSessionId,omitempty"`
	RedirectTo    string    `json:"redirectTo,omitempty"`

	UploadID        string `json:"uploadId,omitempty"`
	PendingUploadID string `json:"pendingUploadId,omitempty"`

	CSRFToken string `json:"csrfToken,omitempty"`

	isNew    bool
	dropped  bool
	snapshot []byte
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:        generateRandomString(32),
		CreatedAt: now,
		isNew:     true,
	}
}

// IsNew is true until the session has been saved once.
func (s *Session) IsNew() bool {
	return s.isNew
}

// EnsureCSRFToken returns the session's CSRF token, creating it on first use.
func (s *Session) EnsureCSRFToken() string {
	if s.CSRFToken == "" {
		s.CSRFToken = generateRandomString(32)
	}
	return s.CSRFToken
}

// generateRandomString creates a random base64url string from length random bytes
func generateRandomString(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
