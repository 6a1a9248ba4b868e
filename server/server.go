package server

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/jrsteele09/nrf-quote/auth"
	"github.com/jrsteele09/nrf-quote/internal/config"
	"github.com/jrsteele09/nrf-quote/internal/errors"
	"github.com/jrsteele09/nrf-quote/quote"
	"github.com/jrsteele09/nrf-quote/sessions"
	"github.com/jrsteele09/nrf-quote/upload"
	"github.com/jrsteele09/nrf-quote/upload/mockuploader"
)

type Server struct {
	env      string
	mux      *http.ServeMux
	handler  http.Handler
	routes   []string
	config   config.Config
	sessions *sessions.Manager
	renderer *Renderer
	quote    *quote.Controller

	authMode auth.Mode
	auth     *auth.Service

	uploads     *upload.Orchestrator
	mock        *mockuploader.Uploader
	uploadProxy http.Handler
}

type Option func(*Server)

// WithAuthService turns on Defra ID sign-in.
func WithAuthService(svc *auth.Service) Option {
	return func(s *Server) {
		s.auth = svc
		s.authMode = auth.ModeDefraID
	}
}

// WithMockUploader serves the mock uploader's endpoints in place of the upload proxy.
func WithMockUploader(m *mockuploader.Uploader) Option {
	return func(s *Server) {
		s.mock = m
	}
}

func New(cfg config.Config, manager *sessions.Manager, uploads *upload.Orchestrator, opts ...Option) (*Server, error) {
	if manager == nil || uploads == nil {
		return nil, errors.Wrapf(errors.ErrConfiguration, "[Server New] session manager and upload orchestrator are required")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		sessions: manager,
		uploads:  uploads,
		authMode: auth.ModeDisabled,
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.IsProduction() && s.mock != nil {
		return nil, errors.Wrapf(errors.ErrConfiguration, "[Server New] the mock uploader cannot run in production")
	}

	renderer, err := NewRenderer(cfg.GetServiceName())
	if err != nil {
		return nil, errors.Wrapf(err, "[Server New] failed to load templates")
	}
	s.renderer = renderer

	s.quote, err = quote.NewController(manager, renderer, cfg.GetServiceName(), quote.WithUploadStarter(s))
	if err != nil {
		return nil, errors.Wrapf(err, "[Server New] failed to create quote controller")
	}

	if s.mock == nil {
		target, err := url.Parse(cfg.GetUploaderURL())
		if err != nil {
			return nil, errors.Wrapf(errors.ErrConfiguration, "[Server New] CDP_UPLOADER_URL: %v", err)
		}
		s.uploadProxy = newUploadProxy(target)
	}

	s.initRoutes()
	s.handler = ChainHandler(s.mux, s.GlobalMiddleware()...)
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if !s.config.IsDev() {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

// newUploadProxy forwards browser uploads to the CDP uploader. The uploader's redirect is
// passed back to the browser untouched.
func newUploadProxy(target *url.URL) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Host = target.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logError(r.Method, r.URL.Path, err.Error())
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "The upload service is currently unavailable. Please try again later."})
		},
	}
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}

// absoluteURL builds a URL on this service's host for the given path.
func absoluteURL(r *http.Request, path string) string {
	return getScheme(r) + "://" + r.Host + path
}
