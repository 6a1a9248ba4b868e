package quote

import (
	"mime"
	"net/http"

	"github.com/jrsteele09/nrf-quote/internal/errors"
	"github.com/jrsteele09/nrf-quote/sessions"
	"github.com/jrsteele09/nrf-quote/validation"
	"github.com/rs/zerolog/log"
)

const maxUploadMemory = 32 << 20

// Renderer draws templates and the generic problem page.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name string, data any)
	RenderError(w http.ResponseWriter, r *http.Request, err error)
}

// UploadStarter opens an upload session for the browser session and returns the URL the
// upload form posts to. The browser returns to redirectPath once the file is accepted.
type UploadStarter interface {
	StartUpload(r *http.Request, s *sessions.Session, redirectPath string) (uploadURL, uploadID string, err error)
}

// Controller serves the GET and POST handlers of every wizard step.
type Controller struct {
	sessions    *sessions.Manager
	renderer    Renderer
	serviceName string
	uploads     UploadStarter
}

type ControllerOption func(*Controller)

func WithUploadStarter(u UploadStarter) ControllerOption {
	return func(c *Controller) {
		c.uploads = u
	}
}

func NewController(manager *sessions.Manager, renderer Renderer, serviceName string, opts ...ControllerOption) (*Controller, error) {
	if manager == nil {
		return nil, errors.New("[NewController] session manager is required")
	}
	if renderer == nil {
		return nil, errors.New("[NewController] renderer is required")
	}
	c := &Controller{sessions: manager, renderer: renderer, serviceName: serviceName}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Render shows a step, consuming any flash left by a failed submission of it.
func (c *Controller) Render(step *Step) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessions.FromContext(r.Context())
		if s == nil {
			c.renderer.RenderError(w, r, errors.Wrapf(errors.ErrSessionNotFound, "[Controller Render] %s", step.ID))
			return
		}

		var flash *Flash
		if step.IsForm() {
			flash = c.takeFlash(r, s, step)
		}
		vm := BuildViewModel(step, c.serviceName, Answers(s.Answers), flash)

		if step.StartsUpload && c.uploads != nil {
			uploadURL, uploadID, err := c.uploads.StartUpload(r, s, PathUploadReceived)
			if err != nil {
				log.Err(err).Str("step", step.ID).Msg("could not start upload")
				c.renderer.RenderError(w, r, err)
				return
			}
			s.PendingUploadID = uploadID
			vm.Action = uploadURL
			w.Header().Set("Cache-Control", "no-store, must-revalidate")
		}

		c.renderer.Render(w, r, http.StatusOK, step.Template, vm)
	}
}

// Submit validates a step's form. Valid answers are merged into the session and the browser
// is sent on to the next step; otherwise the errors are flashed and the browser is sent back.
// Both redirects are 303 so the browser follows with a GET.
func (c *Controller) Submit(step *Step) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessions.FromContext(r.Context())
		if s == nil {
			c.renderer.RenderError(w, r, errors.Wrapf(errors.ErrSessionNotFound, "[Controller Submit] %s", step.ID))
			return
		}
		payload, err := readPayload(r)
		if err != nil {
			c.renderer.RenderError(w, r, errors.NewProblem(errors.ErrValidation, "The form could not be read. Please try again.", err))
			return
		}

		values, verrs := step.Schema.Validate(payload)
		if verrs != nil {
			raw := payload.Raw()
			delete(raw, CSRFFieldName)
			flash := Flash{StepID: step.ID, ValidationErrors: verrs, FormSubmitData: raw}
			if err := c.sessions.PutFlash(r.Context(), s, FlashName, flash); err != nil {
				c.renderer.RenderError(w, r, errors.Wrapf(err, "[Controller Submit] %s", step.ID))
				return
			}
			http.Redirect(w, r, step.Path, http.StatusSeeOther)
			return
		}

		s.Answers = Answers(s.Answers).Merge(values)
		http.Redirect(w, r, step.NextPath(values), http.StatusSeeOther)
	}
}

func (c *Controller) takeFlash(r *http.Request, s *sessions.Session, step *Step) *Flash {
	var flash Flash
	ok, err := c.sessions.TakeFlash(r.Context(), s, FlashName, &flash)
	if err != nil {
		log.Err(err).Str("step", step.ID).Msg("could not read validation flash")
		return nil
	}
	if !ok || flash.StepID != step.ID {
		return nil
	}
	return &flash
}

// CSRFFieldName is the hidden form field carrying the CSRF token.
const CSRFFieldName = "csrfToken"

func readPayload(r *http.Request) (validation.Payload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			return nil, errors.Wrapf(err, "[readPayload] multipart form")
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, errors.Wrapf(err, "[readPayload] form")
	}

	payload := validation.PayloadFromValues(r.PostForm)
	if r.MultipartForm != nil {
		for name, files := range r.MultipartForm.File {
			for _, fh := range files {
				if fh.Filename != "" {
					payload[name] = append(payload[name], fh.Filename)
				}
			}
		}
	}
	return payload, nil
}
