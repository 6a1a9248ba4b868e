package server

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/jrsteele09/nrf-quote/auth"
	"github.com/jrsteele09/nrf-quote/internal/errors"
	"github.com/jrsteele09/nrf-quote/quote"
	"github.com/jrsteele09/nrf-quote/sessions"
	"github.com/jrsteele09/nrf-quote/upload"
	"github.com/rs/zerolog/hlog"
)

//go:embed templates/*
var templateFiles embed.FS

const (
	contentTypeHTML = "text/html; charset=utf-8"
	layoutTemplate  = "layout.html"
	partialsPattern = "_*.html"

	TemplateError   = "error.html"
	TemplateLogin   = "auth/login.html"
	TemplateProfile = "profile.html"
	TemplateRLB     = "rlb-upload/index.html"
	TemplateStatus  = "rlb-upload/status.html"
)

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// NavItem is one entry of the header navigation.
type NavItem struct {
	Text    string
	Href    string
	Current bool
}

// Navigation lists the header links for the current request.
func Navigation(r *http.Request) []NavItem {
	items := []NavItem{{Text: "Home", Href: "/"}}
	if user := auth.UserFrom(r.Context()); user != nil && user.IsAuthenticated {
		items = append(items,
			NavItem{Text: "My Profile", Href: RouteProfile},
			NavItem{Text: "Sign out", Href: RouteSignOut},
		)
	} else {
		items = append(items, NavItem{Text: "Sign in", Href: RouteSignIn})
	}
	for i := range items {
		items[i].Current = items[i].Href == r.URL.Path
	}
	return items
}

// page is what every template executes against; the handler's data sits in Page.
type page struct {
	ServiceName string
	Navigation  []NavItem
	CSRFToken   string
	User        *auth.UserSession
	Page        any
}

// ErrorPage is the generic problem view.
type ErrorPage struct {
	PageTitle string
	Heading   string
	Status    int
	Message   string
}

// Renderer executes the embedded templates inside the shared layout.
type Renderer struct {
	serviceName string
	templates   map[string]*template.Template
}

var _ quote.Renderer = (*Renderer)(nil)

func NewRenderer(serviceName string) (*Renderer, error) {
	fsys := TemplateFilesFS()
	funcs := template.FuncMap{
		"fileSize": func(n *int64) string {
			if n == nil {
				return "Unknown"
			}
			return upload.FileSize(*n)
		},
		"join": strings.Join,
	}
	layout, err := template.New(layoutTemplate).Funcs(funcs).ParseFS(fsys, layoutTemplate, partialsPattern)
	if err != nil {
		return nil, errors.Wrapf(err, "[NewRenderer] layout")
	}

	rd := &Renderer{serviceName: serviceName, templates: map[string]*template.Template{}}
	err = fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || name == layoutTemplate || strings.HasPrefix(path.Base(name), "_") || path.Ext(name) != ".html" {
			return nil
		}
		t, err := layout.Clone()
		if err != nil {
			return err
		}
		if _, err := t.ParseFS(fsys, name); err != nil {
			return errors.Wrapf(err, "%s", name)
		}
		rd.templates[name] = t
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "[NewRenderer] pages")
	}
	return rd, nil
}

// Render writes template name with data. The page is buffered so a template failure can
// still become an error page.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	t, ok := rd.templates[name]
	if !ok {
		rd.renderFallback(w, r, errors.Wrapf(errors.ErrInternal, "[Renderer Render] unknown template %s", name))
		return
	}

	p := page{
		ServiceName: rd.serviceName,
		Navigation:  Navigation(r),
		User:        auth.UserFrom(r.Context()),
		Page:        data,
	}
	if sess := sessions.FromContext(r.Context()); sess != nil {
		p.CSRFToken = sess.EnsureCSRFToken()
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, layoutTemplate, p); err != nil {
		rd.renderFallback(w, r, errors.Wrapf(err, "[Renderer Render] %s", name))
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// RenderError logs err and shows the matching problem page. Only the error's safe
// message reaches the browser.
func (rd *Renderer) RenderError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	logger := hlog.FromRequest(r)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		logger.Warn().Err(err).Int("status", status).Msg("request rejected")
	}

	if errors.Is(err, errors.ErrAuthentication) {
		rd.Render(w, r, status, TemplateLogin, LoginPage{
			PageTitle: "Authentication Error",
			Heading:   "Authentication Error",
			Error:     errors.UserMessage(err),
			SignInURL: RouteSignIn,
		})
		return
	}

	heading := "Sorry, there is a problem with the service"
	message := errors.UserMessage(err)
	if status == http.StatusNotFound {
		heading = "Page not found"
		message = "If you typed the web address, check it is correct."
	}
	rd.Render(w, r, status, TemplateError, ErrorPage{
		PageTitle: heading,
		Heading:   heading,
		Status:    status,
		Message:   message,
	})
}

func (rd *Renderer) renderFallback(w http.ResponseWriter, r *http.Request, err error) {
	hlog.FromRequest(r).Error().Err(err).Msg("template render failed")
	http.Error(w, errors.GenericMessage, http.StatusInternalServerError)
}

// StatusFor maps an error to the HTTP status of its problem page.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrCSRF):
		return http.StatusForbidden
	case errors.Is(err, errors.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, errors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrUpstreamService):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
