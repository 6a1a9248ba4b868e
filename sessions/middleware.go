package sessions

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

type contextKey struct{}

// FromContext returns the session attached by Manager.Middleware, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// Middleware attaches the browser session to the request context and saves it before the
// first byte of the response is written, so a redirect is never seen by the browser ahead
// of the state it depends on.
func (m *Manager) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Load(r.Context(), r)
		if err != nil {
			log.Err(err).Str("path", r.URL.Path).Msg("session load failed")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		sw := &saveOnWriteResponseWriter{
			ResponseWriter: w,
			save:           func() error { return m.Save(r.Context(), w, s) },
		}
		next(sw, r.WithContext(WithSession(r.Context(), s)))
		if !sw.committed {
			if err := sw.commit(); err != nil {
				log.Err(err).Str("path", r.URL.Path).Msg("session save failed")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}
	}
}

type saveOnWriteResponseWriter struct {
	http.ResponseWriter
	save      func() error
	committed bool
	failed    bool
}

func (w *saveOnWriteResponseWriter) commit() error {
	w.committed = true
	return w.save()
}

func (w *saveOnWriteResponseWriter) WriteHeader(code int) {
	if !w.committed {
		if err := w.commit(); err != nil {
			log.Err(err).Msg("session save failed")
			w.failed = true
			w.Header().Del("Location")
			w.ResponseWriter.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
	if w.failed {
		return
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *saveOnWriteResponseWriter) Write(b []byte) (int, error) {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	if w.failed {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (w *saveOnWriteResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
