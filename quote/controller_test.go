package quote_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/nrf-quote/cache"
	"github.com/jrsteele09/nrf-quote/internal/errors"
	"github.com/jrsteele09/nrf-quote/quote"
	"github.com/jrsteele09/nrf-quote/sessions"
	"github.com/stretchr/testify/require"
)

type rendered struct {
	status int
	name   string
	vm     quote.ViewModel
	err    error
}

// captureRenderer records what would have been drawn.
type captureRenderer struct {
	last rendered
}

func (c *captureRenderer) Render(w http.ResponseWriter, _ *http.Request, status int, name string, data any) {
	vm, _ := data.(quote.ViewModel)
	c.last = rendered{status: status, name: name, vm: vm}
	w.WriteHeader(status)
}

func (c *captureRenderer) RenderError(w http.ResponseWriter, _ *http.Request, err error) {
	c.last = rendered{status: http.StatusInternalServerError, err: err}
	w.WriteHeader(http.StatusInternalServerError)
}

type stubUploads struct {
	calls int
	err   error
}

func (s *stubUploads) StartUpload(_ *http.Request, _ *sessions.Session, redirectPath string) (string, string, error) {
	s.calls++
	if s.err != nil {
		return "", "", s.err
	}
	return "/upload-and-scan/upload-1?redirect=" + url.QueryEscape(redirectPath), "upload-1", nil
}

type browser struct {
	t        *testing.T
	handler  http.Handler
	cookies  []*http.Cookie
	renderer *captureRenderer
	store    *cache.Memory
}

func newBrowser(t *testing.T, opts ...quote.ControllerOption) *browser {
	t.Helper()
	store := cache.NewMemory(0)
	t.Cleanup(func() { _ = store.Close() })
	codec, err := sessions.NewCookieCodec("a-cookie-password-of-at-least-32-chars")
	require.NoError(t, err)
	manager, err := sessions.NewManager(store, codec, time.Hour)
	require.NoError(t, err)

	renderer := &captureRenderer{}
	c, err := quote.NewController(manager, renderer, serviceName, opts...)
	require.NoError(t, err)

	mux := http.NewServeMux()
	for _, route := range quote.AllRoutes(quote.Steps(serviceName), c) {
		mux.HandleFunc(route.Pattern(), manager.Middleware(route.Handler))
	}
	return &browser{t: t, handler: mux, renderer: renderer, store: store}
}

func (b *browser) do(r *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		r.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, r)
	if set := rec.Result().Cookies(); len(set) > 0 {
		b.cookies = set
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(r)
}

func TestSubmitInvalidFlashRoundTrip(t *testing.T) {
	b := newBrowser(t)

	rec := b.post(quote.PathResidential, url.Values{"residentialBuildingCount": {"0"}, "csrfToken": {"tok"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, quote.PathResidential, rec.Header().Get("Location"))

	rec = b.get(quote.PathResidential)
	require.Equal(t, http.StatusOK, rec.Code)
	vm := b.renderer.last.vm
	require.Equal(t, quote.TemplateQuestion, b.renderer.last.name)
	require.NotNil(t, vm.Errors)
	require.Equal(t, "Enter a whole number greater than zero", vm.Inputs[0].Error)
	require.Equal(t, "0", vm.Inputs[0].Value)

	b.get(quote.PathResidential)
	require.Nil(t, b.renderer.last.vm.Errors)
	require.Empty(t, b.renderer.last.vm.Inputs[0].Value)
}

func TestFlashIsScopedToItsStep(t *testing.T) {
	b := newBrowser(t)

	b.post(quote.PathEmail, url.Values{"email": {"nope"}})
	b.get(quote.PathResidential)
	require.Nil(t, b.renderer.last.vm.Errors)

	b.get(quote.PathEmail)
	require.Nil(t, b.renderer.last.vm.Errors)
}

func TestSubmitValidPersistsAnswers(t *testing.T) {
	b := newBrowser(t)

	rec := b.post(quote.PathBoundaryType, url.Values{"boundaryEntryType": {"draw"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, quote.PathNext, rec.Header().Get("Location"))

	rec = b.post(quote.PathDevelopmentTypes, url.Values{"developmentTypes": {"housing", ""}})
	require.Equal(t, quote.PathResidential, rec.Header().Get("Location"))

	rec = b.post(quote.PathResidential, url.Values{"residentialBuildingCount": {" 25 "}})
	require.Equal(t, quote.PathEmail, rec.Header().Get("Location"))

	b.get(quote.PathResidential)
	require.Equal(t, "25", b.renderer.last.vm.Inputs[0].Value)

	b.get(quote.PathBoundaryType)
	require.True(t, b.renderer.last.vm.Inputs[0].Choices[0].Checked)

	b.get(quote.PathNext)
	require.Equal(t, quote.TemplateSummary, b.renderer.last.name)
	require.Len(t, b.renderer.last.vm.Answers, 3)
}

func TestUploadStepStartsUpload(t *testing.T) {
	uploads := &stubUploads{}
	b := newBrowser(t, quote.WithUploadStarter(uploads))

	rec := b.get(quote.PathUploadBoundary)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	require.Equal(t, 1, uploads.calls)
	require.Equal(t, "/upload-and-scan/upload-1?redirect=%2Fupload-received", b.renderer.last.vm.Action)
	require.True(t, b.renderer.last.vm.Multipart)

	t.Run("uploader failure", func(t *testing.T) {
		uploads.err = errors.NewProblem(errors.ErrUpstreamService, "The upload service is currently unavailable. Please try again later.", nil)
		rec := b.get(quote.PathUploadBoundary)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.True(t, errors.Is(b.renderer.last.err, errors.ErrUpstreamService))
	})
}

func TestSubmitMissingFile(t *testing.T) {
	b := newBrowser(t)

	rec := b.post(quote.PathUploadBoundary, url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, quote.PathUploadBoundary, rec.Header().Get("Location"))

	b.get(quote.PathUploadBoundary)
	require.Equal(t, "Select a file", b.renderer.last.vm.Inputs[0].Error)
}
