package server

import (
	"crypto/subtle"
	"mime"
	"net/http"

	"github.com/jrsteele09/nrf-quote/internal/errors"
	"github.com/jrsteele09/nrf-quote/quote"
	"github.com/jrsteele09/nrf-quote/sessions"
)

const (
	csrfHeader       = "X-CSRF-Token"
	maxFormMemory    = 32 << 20
	csrfRejectedText = "Your form could not be submitted. Please go back and try again."
)

// CSRFMiddleware checks unsafe requests for the session's token, sent either as the
// csrfToken form field or the X-CSRF-Token header. It is off when ENV=test.
func (s *Server) CSRFMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessions.FromContext(r.Context())
		if sess != nil {
			sess.EnsureCSRFToken()
		}
		if s.config.IsTest() || isSafeMethod(r.Method) {
			next(w, r)
			return
		}

		if sess == nil || !validCSRFToken(sess.CSRFToken, submittedCSRFToken(r)) {
			s.renderer.RenderError(w, r, errors.NewProblem(errors.ErrCSRF, csrfRejectedText, nil))
			return
		}
		next(w, r)
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func submittedCSRFToken(r *http.Request) string {
	if token := r.Header.Get(csrfHeader); token != "" {
		return token
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return ""
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return ""
		}
	default:
		return ""
	}
	return r.PostFormValue(quote.CSRFFieldName)
}

func validCSRFToken(expected, submitted string) bool {
	return expected != "" && submitted != "" &&
		subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1
}
