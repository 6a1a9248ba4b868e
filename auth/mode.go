package auth

import "context"

// Mode selects how requests are authenticated.
type Mode int

const (
	ModeDisabled Mode = iota
	ModeDefraID
)

func (m Mode) String() string {
	switch m {
	case ModeDefraID:
		return "defra-id"
	default:
		return "disabled"
	}
}

// Requirement is the authentication a route needs.
type Requirement int

const (
	RequireNone Requirement = iota
	RequireUser
)

// Satisfied reports whether a request in the given mode, signed in as user, meets r.
// With authentication disabled every requirement is met.
func (r Requirement) Satisfied(mode Mode, user *UserSession) bool {
	if r == RequireNone || mode == ModeDisabled {
		return true
	}
	return user != nil && user.IsAuthenticated
}

// State is where a browser session sits in the sign-in lifecycle.
type State int

const (
	StateAnonymous State = iota
	StatePendingOAuth
	StateAuthenticated
	StateExpiredRefreshable
	StateExpiredTerminal
)

func (s State) String() string {
	switch s {
	case StatePendingOAuth:
		return "pending-oauth"
	case StateAuthenticated:
		return "authenticated"
	case StateExpiredRefreshable:
		return "expired-refreshable"
	case StateExpiredTerminal:
		return "expired-terminal"
	default:
		return "anonymous"
	}
}

type contextKey int

const (
	modeKey contextKey = iota
	userKey
)

func WithMode(ctx context.Context, m Mode) context.Context {
	return context.WithValue(ctx, modeKey, m)
}

// ModeFrom returns the mode attached to ctx, ModeDisabled if none.
func ModeFrom(ctx context.Context) Mode {
	m, _ := ctx.Value(modeKey).(Mode)
	return m
}

func WithUser(ctx context.Context, u *UserSession) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom returns the signed-in user attached to ctx, or nil.
func UserFrom(ctx context.Context) *UserSession {
	u, _ := ctx.Value(userKey).(*UserSession)
	return u
}
