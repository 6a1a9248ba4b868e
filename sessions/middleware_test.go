package sessions_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/nrf-quote/cache"
	"github.com/jrsteele09/nrf-quote/sessions"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	*cache.Memory
}

func (failingStore) Set(context.Context, string, any, time.Duration) error {
	return context.DeadlineExceeded
}

func TestMiddlewareSavesBeforeRedirect(t *testing.T) {
	f := newFixture(t)

	var storedAtRedirect bool
	handler := f.manager.Middleware(func(w http.ResponseWriter, r *http.Request) {
		s := sessions.FromContext(r.Context())
		require.NotNil(t, s)
		s.Answers = map[string]any{"boundaryEntryType": "draw"}
		http.Redirect(&headerHook{ResponseWriter: w, onHeader: func() {
			var got sessions.Session
			storedAtRedirect = f.store.Get(r.Context(), "session:"+s.ID, &got) == nil
		}}, r, "/quote/next", http.StatusSeeOther)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/quote/boundary-type", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/quote/next", rec.Header().Get("Location"))
	require.True(t, storedAtRedirect)
	require.Len(t, rec.Result().Cookies(), 1)
}

func TestMiddlewareSavesWhenHandlerWritesNothing(t *testing.T) {
	f := newFixture(t)
	handler := f.manager.Middleware(func(w http.ResponseWriter, r *http.Request) {
		sessions.FromContext(r.Context()).RedirectTo = "/profile"
	})
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, f.store.Len())
}

func TestMiddlewareSaveFailure(t *testing.T) {
	store := failingStore{Memory: cache.NewMemory(0)}
	codec, err := sessions.NewCookieCodec(password)
	require.NoError(t, err)
	m, err := sessions.NewManager(store, codec, time.Hour)
	require.NoError(t, err)

	handler := m.Middleware(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/quote/next", http.StatusSeeOther)
	})
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/quote/email", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Empty(t, rec.Header().Get("Location"))
}

// headerHook runs onHeader at the moment the wrapped writer is asked to write its header.
type headerHook struct {
	http.ResponseWriter
	onHeader func()
}

func (p *headerHook) WriteHeader(code int) {
	p.ResponseWriter.WriteHeader(code)
	p.onHeader()
}
