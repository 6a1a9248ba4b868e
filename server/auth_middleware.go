package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/nrf-quote/auth"
	"github.com/jrsteele09/nrf-quote/sessions"
	"github.com/rs/zerolog/hlog"
)

// AuthMiddleware puts the auth mode and, when signed in, the user on the request context.
// Expired tokens are refreshed here; a user that cannot be recovered is treated as anonymous.
func (s *Server) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithMode(r.Context(), s.authMode)
		if s.auth != nil {
			if sess := sessions.FromContext(ctx); sess != nil {
				user, err := s.auth.Authenticate(ctx, sess)
				if err != nil {
					hlog.FromRequest(r).Error().Err(err).Msg("could not resolve signed-in user")
				}
				if user != nil {
					ctx = auth.WithUser(ctx, user)
				}
			}
		}
		next(w, r.WithContext(ctx))
	}
}

// RequireAuth sends anonymous browsers to sign in, returning them to the page they asked for.
func (s *Server) RequireAuth(requirement auth.Requirement) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requirement.Satisfied(auth.ModeFrom(ctx), auth.UserFrom(ctx)) {
				next(w, r)
				return
			}
			target := r.URL.Path
			if r.Method == http.MethodGet {
				target = r.URL.RequestURI()
			}
			if sess := sessions.FromContext(ctx); sess != nil {
				sess.RedirectTo = auth.SafeRedirect(target)
			}
			http.Redirect(w, r, RouteSignIn+"?redirect="+url.QueryEscape(target), http.StatusSeeOther)
		}
	}
}
