package server

import (
	"net/http"

	"github.com/jrsteele09/nrf-quote/auth"
	"github.com/jrsteele09/nrf-quote/internal/errors"
	"github.com/jrsteele09/nrf-quote/sessions"
	"github.com/rs/zerolog/hlog"
)

// LoginPage is the sign-in prompt, also used to report a failed sign-in.
type LoginPage struct {
	PageTitle string
	Heading   string
	Error     string
	SignInURL string
}

func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if user := auth.UserFrom(r.Context()); user != nil && user.IsAuthenticated {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	p := LoginPage{PageTitle: "Sign in", Heading: "Sign in to continue"}
	if s.auth != nil {
		p.SignInURL = RouteSignIn
	} else {
		p.Error = "Sign in is not available for this service."
	}
	s.renderer.Render(w, r, http.StatusOK, TemplateLogin, p)
}

// SignInHandler starts the authorization code flow and sends the browser to the provider.
func (s *Server) SignInHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessions.FromContext(r.Context())
	if sess == nil {
		s.renderer.RenderError(w, r, errors.Wrapf(errors.ErrSessionNotFound, "[SignInHandler]"))
		return
	}
	authURL, err := s.auth.BeginSignIn(r.Context(), sess, r.URL.Query().Get("redirect"))
	if err != nil {
		s.renderer.RenderError(w, r, errors.NewProblem(errors.ErrAuthentication, "Sign in is currently unavailable. Please try again later.", err))
		return
	}
	http.Redirect(w, r, authURL, http.StatusSeeOther)
}

// SignInCallbackHandler completes sign-in when the provider returns the browser.
func (s *Server) SignInCallbackHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessions.FromContext(r.Context())
	if sess == nil {
		s.renderer.RenderError(w, r, errors.Wrapf(errors.ErrSessionNotFound, "[SignInCallbackHandler]"))
		return
	}
	q := r.URL.Query()
	target, err := s.auth.CompleteSignIn(r.Context(), sess, auth.CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})
	if err != nil {
		s.renderer.RenderError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	if sess := sessions.FromContext(r.Context()); sess != nil {
		if err := s.auth.SignOut(r.Context(), sess); err != nil {
			s.renderer.RenderError(w, r, err)
			return
		}
		s.dropSession(w, r, sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SignOutOIDCHandler is where the provider returns the browser after signing out there.
func (s *Server) SignOutOIDCHandler(w http.ResponseWriter, r *http.Request) {
	if sess := sessions.FromContext(r.Context()); sess != nil {
		if err := s.auth.ProviderSignedOut(r.Context(), sess, r.URL.Query().Get("state")); err != nil {
			s.renderer.RenderError(w, r, err)
			return
		}
		s.dropSession(w, r, sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// dropSession discards the browser session after sign out. The next request starts a fresh one.
func (s *Server) dropSession(w http.ResponseWriter, r *http.Request, sess *sessions.Session) {
	if err := s.sessions.Drop(r.Context(), w, sess); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("could not drop session after sign out")
	}
}

func (s *Server) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	if user == nil {
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
		return
	}
	s.renderer.Render(w, r, http.StatusOK, TemplateProfile, user.Profile)
}
