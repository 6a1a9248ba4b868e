package server

import (
	"net/http"

	"github.com/jrsteele09/nrf-quote/auth"
	"github.com/jrsteele09/nrf-quote/quote"
)

func get(path string) string  { return http.MethodGet + " " + path }
func post(path string) string { return http.MethodPost + " " + path }

func (s *Server) initRoutes() {
	s.RegisterRouteFunc(get(RouteHealth), ChainMiddleware(s.HealthHandler, s.ServiceMiddleware()...))

	for _, route := range quote.AllRoutes(quote.Steps(s.config.GetServiceName()), s.quote) {
		s.RegisterRouteFunc(route.Pattern(), ChainMiddleware(route.Handler, s.HTMLMiddleWare(s.RequireAuth(route.Auth))...))
	}

	s.initAuthRoutes()
	s.initUploadRoutes()

	s.RegisterRouteFunc("/", ChainMiddleware(s.NotFoundHandler, s.HTMLMiddleWare()...))
}

func (s *Server) initAuthRoutes() {
	s.RegisterRouteFunc(get(RouteLogin), ChainMiddleware(s.LoginHandler, s.HTMLMiddleWare()...))
	if s.auth == nil {
		return
	}
	s.RegisterRouteFunc(get(RouteSignIn), ChainMiddleware(s.SignInHandler, s.HTMLMiddleWare()...))
	s.RegisterRouteFunc(get(RouteSignInCallback), ChainMiddleware(s.SignInCallbackHandler, s.HTMLMiddleWare()...))
	s.RegisterRouteFunc(get(RouteSignOut), ChainMiddleware(s.SignOutHandler, s.HTMLMiddleWare()...))
	s.RegisterRouteFunc(get(RouteSignOutOIDC), ChainMiddleware(s.SignOutOIDCHandler, s.HTMLMiddleWare()...))
	s.RegisterRouteFunc(get(RouteProfile), ChainMiddleware(s.ProfileHandler, s.HTMLMiddleWare(s.RequireAuth(auth.RequireUser))...))
}

func (s *Server) initUploadRoutes() {
	s.RegisterRouteFunc(get(RouteRLBUpload), ChainMiddleware(s.RLBUploadPageHandler, s.HTMLMiddleWare()...))
	s.RegisterRouteFunc(get(RouteRLBUploadStatus), ChainMiddleware(s.RLBUploadStatusHandler, s.HTMLMiddleWare()...))
	s.RegisterRouteFunc(post(RouteRLBUploadInitiate), ChainMiddleware(s.RLBUploadInitiateHandler, s.APIMiddleware(s.CSRFMiddleware)...))
	s.RegisterRouteFunc(get(RouteRLBUploadPoll), ChainMiddleware(s.RLBUploadPollHandler, s.APIMiddleware()...))
	s.RegisterRouteFunc(post(RouteRLBUploadCallback), ChainMiddleware(s.RLBUploadCallbackHandler, s.ServiceMiddleware()...))

	s.RegisterRouteFunc(post(RouteUploadAndScan), ChainMiddleware(s.UploadAndScanHandler, s.ServiceMiddleware()...))
	if s.mock != nil {
		s.RegisterRouteFunc(get(RouteMockUploaderStatus), ChainMiddleware(s.mock.HandleStatus, s.ServiceMiddleware()...))
	}
}
