package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/nrf-quote/internal/errors"
	"github.com/jrsteele09/nrf-quote/sessions"
	"github.com/rs/zerolog/log"
)

const (
	msgAuthFailed     = "Authentication failed. Please try again."
	msgInvalidState   = "Invalid authentication state. Please try again."
	msgExchangeFailed = "Authentication failed during token exchange. Please try again."

	// LoginPath is where a callback without a code is sent back to.
	LoginPath = "/login"

	DefaultFlowTimeout = 10 * time.Minute
	DefaultClockSkew   = 60 * time.Second
)

// CallbackParams are the query parameters the provider returns to the redirect URI.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// Service drives a browser session through sign-in, token refresh and sign-out.
type Service struct {
	provider       IdentityProvider
	users          UserSessionRepo
	refreshEnabled bool
	flowTimeout    time.Duration
	skew           time.Duration
	nowTime        func() time.Time
}

type ServiceOption func(*Service)

func WithRefresh(enabled bool) ServiceOption {
	return func(s *Service) {
		s.refreshEnabled = enabled
	}
}

func WithFlowTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.flowTimeout = d
	}
}

func WithClockSkew(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.skew = d
	}
}

func WithNowTime(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = now
	}
}

func NewService(provider IdentityProvider, users UserSessionRepo, opts ...ServiceOption) *Service {
	s := &Service{
		provider:       provider,
		users:          users,
		refreshEnabled: true,
		flowTimeout:    DefaultFlowTimeout,
		skew:           DefaultClockSkew,
		nowTime:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StateOf reports where the browser session currently sits in the sign-in lifecycle
// without contacting the provider.
func (svc *Service) StateOf(ctx context.Context, s *sessions.Session) State {
	if s.UserSessionID == "" {
		if s.AuthFlow != nil && !s.AuthFlow.Expired(svc.nowTime(), svc.flowTimeout) {
			return StatePendingOAuth
		}
		return StateAnonymous
	}
	user, err := svc.users.Get(ctx, s.UserSessionID)
	if err != nil {
		return StateExpiredTerminal
	}
	if !user.Expired(svc.nowTime(), svc.skew) {
		return StateAuthenticated
	}
	if svc.refreshEnabled && user.RefreshToken != "" {
		return StateExpiredRefreshable
	}
	return StateExpiredTerminal
}

// BeginSignIn records a fresh OAuth flow in the session and returns the provider URL to
// redirect the browser to.
func (svc *Service) BeginSignIn(ctx context.Context, s *sessions.Session, redirectTo string) (string, error) {
	state := generateRandomString(32)
	authURL, err := svc.provider.AuthCodeURL(ctx, state)
	if err != nil {
		return "", errors.Wrapf(err, "[Service BeginSignIn]")
	}
	s.AuthFlow = &sessions.AuthFlow{State: state, IssuedAt: svc.nowTime()}
	// An empty target leaves the return path recorded by the auth middleware in charge.
	if redirectTo != "" {
		s.AuthFlow.RedirectTo = SafeRedirect(redirectTo)
	}
	return authURL, nil
}

// CompleteSignIn handles the provider callback and returns where the browser goes next.
// The session's pending flow is consumed whatever the outcome.
func (svc *Service) CompleteSignIn(ctx context.Context, s *sessions.Session, params CallbackParams) (string, error) {
	flow := s.AuthFlow
	s.AuthFlow = nil

	if params.Error != "" {
		msg := params.ErrorDescription
		if msg == "" {
			msg = msgAuthFailed
		}
		return "", errors.NewProblem(errors.ErrAuthentication, msg, errors.New("[Service CompleteSignIn] provider returned "+params.Error))
	}

	if flow == nil || params.State == "" ||
		subtle.ConstantTimeCompare([]byte(flow.State), []byte(params.State)) != 1 ||
		flow.Expired(svc.nowTime(), svc.flowTimeout) {
		return "", errors.NewProblem(errors.ErrAuthentication, msgInvalidState, errors.New("[Service CompleteSignIn] state mismatch or expired flow"))
	}

	if params.Code == "" {
		return LoginPath, nil
	}

	tokens, err := svc.provider.Exchange(ctx, params.Code)
	if err != nil {
		return "", errors.NewProblem(errors.ErrAuthentication, msgExchangeFailed, err)
	}
	profile, err := svc.provider.VerifyIDToken(ctx, tokens.IDToken)
	if err != nil {
		return "", errors.NewProblem(errors.ErrAuthentication, msgAuthFailed, err)
	}

	user := &UserSession{
		ID:              uuid.NewString(),
		IsAuthenticated: true,
		Profile:         *profile,
		AccessToken:     tokens.AccessToken,
		RefreshToken:    tokens.RefreshToken,
		IDToken:         tokens.IDToken,
		TokenExpiry:     tokens.Expiry,
		Role:            "user",
		Scope:           []string{},
		CreatedAt:       svc.nowTime(),
	}
	if err := svc.users.Upsert(ctx, user); err != nil {
		return "", errors.Wrapf(err, "[Service CompleteSignIn] store user session")
	}
	if s.UserSessionID != "" {
		if err := svc.users.Delete(ctx, s.UserSessionID); err != nil {
			log.Warn().Err(err).Msg("[Service CompleteSignIn] failed to drop previous user session")
		}
	}
	s.UserSessionID = user.ID

	target := flow.RedirectTo
	if target == "" {
		target = s.RedirectTo
	}
	s.RedirectTo = ""

	log.Info().Str("userSessionId", user.ID).Str("contactId", profile.ContactID).Msg("signed in")
	return SafeRedirect(target), nil
}

// Authenticate resolves the user bound to the session, refreshing an expired access token
// when it can. A nil user with a nil error means the request is anonymous; any stale binding
// has been cleared from the session.
func (svc *Service) Authenticate(ctx context.Context, s *sessions.Session) (*UserSession, error) {
	if s.UserSessionID == "" {
		return nil, nil
	}

	user, err := svc.users.Get(ctx, s.UserSessionID)
	if err != nil {
		if errors.Is(err, errors.ErrSessionNotFound) {
			s.UserSessionID = ""
			return nil, nil
		}
		return nil, errors.Wrapf(err, "[Service Authenticate]")
	}

	if !user.Expired(svc.nowTime(), svc.skew) {
		return user, nil
	}

	if svc.refreshEnabled && user.RefreshToken != "" {
		err := svc.refresh(ctx, user)
		if err == nil {
			return user, nil
		}
		log.Warn().Err(err).Str("userSessionId", user.ID).Msg("token refresh failed")
	}

	if err := svc.users.Delete(ctx, user.ID); err != nil {
		log.Warn().Err(err).Str("userSessionId", user.ID).Msg("[Service Authenticate] failed to drop expired user session")
	}
	s.UserSessionID = ""
	return nil, nil
}

func (svc *Service) refresh(ctx context.Context, user *UserSession) error {
	tokens, err := svc.provider.Refresh(ctx, user.RefreshToken)
	if err != nil {
		return err
	}
	user.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		user.RefreshToken = tokens.RefreshToken
	}
	if tokens.IDToken != "" {
		user.IDToken = tokens.IDToken
	}
	user.TokenExpiry = tokens.Expiry
	return errors.Wrapf(svc.users.Upsert(ctx, user), "[Service refresh] store refreshed tokens")
}

// SignOut drops the signed-in user, if any. Calling it on an anonymous session is a no-op.
func (svc *Service) SignOut(ctx context.Context, s *sessions.Session) error {
	s.AuthFlow = nil
	s.RedirectTo = ""
	if s.UserSessionID == "" {
		return nil
	}
	id := s.UserSessionID
	s.UserSessionID = ""
	return errors.Wrapf(svc.users.Delete(ctx, id), "[Service SignOut]")
}

// ProviderSignedOut handles the provider's post-logout redirect. The state parameter is
// only decoded for the log line.
func (svc *Service) ProviderSignedOut(ctx context.Context, s *sessions.Session, state string) error {
	if state != "" {
		decoded, err := decodeLogoutState(state)
		if err != nil {
			log.Warn().Err(err).Msg("provider sign-out callback with unreadable state")
		} else {
			log.Info().Interface("state", decoded).Msg("provider sign-out callback")
		}
	}
	return svc.SignOut(ctx, s)
}

func decodeLogoutState(state string) (map[string]any, error) {
	raw, err := base64.URLEncoding.DecodeString(state)
	if err != nil {
		if raw, err = base64.RawURLEncoding.DecodeString(state); err != nil {
			if raw, err = base64.StdEncoding.DecodeString(state); err != nil {
				return nil, errors.Wrapf(err, "[decodeLogoutState] base64")
			}
		}
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, errors.Wrapf(err, "[decodeLogoutState] json")
	}
	return decoded, nil
}

// generateRandomString creates a random base64url string from length random bytes
func generateRandomString(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
