package quote

import (
	"net/http"

	"github.com/jrsteele09/nrf-quote/auth"
	"github.com/jrsteele09/nrf-quote/validation"
)

// Route describes one endpoint of the wizard.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
	Auth    auth.Requirement
	Schema  *validation.Schema
}

// Pattern is the route in http.ServeMux form. The root path only matches itself.
func (r Route) Pattern() string {
	if r.Path == "/" {
		return r.Method + " /{$}"
	}
	return r.Method + " " + r.Path
}

// Routes builds the endpoints for a step: always a GET, plus a POST when the step has a form.
func Routes(step *Step, c *Controller) []Route {
	requirement := auth.RequireUser
	if step.Public {
		requirement = auth.RequireNone
	}
	routes := []Route{{
		Method:  http.MethodGet,
		Path:    step.Path,
		Handler: c.Render(step),
		Auth:    requirement,
	}}
	if step.IsForm() {
		routes = append(routes, Route{
			Method:  http.MethodPost,
			Path:    step.Path,
			Handler: c.Submit(step),
			Auth:    requirement,
			Schema:  step.Schema,
		})
	}
	return routes
}

// AllRoutes builds the endpoints for every step.
func AllRoutes(steps []*Step, c *Controller) []Route {
	var routes []Route
	for _, step := range steps {
		routes = append(routes, Routes(step, c)...)
	}
	return routes
}
