package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/nrf-quote/internal/errors"
	"github.com/jrsteele09/nrf-quote/quote"
	"github.com/jrsteele09/nrf-quote/sessions"
	"github.com/jrsteele09/nrf-quote/upload"
	"github.com/rs/zerolog/hlog"
)

// SourceQuote tags uploads started from the quote journey.
const SourceQuote = "quote"

const maxCallbackBody = 1 << 20

var _ quote.UploadStarter = (*Server)(nil)

// StatusPage is the view of the session's upload record.
type StatusPage struct {
	Error  string
	Record *upload.Record
}

// StartUpload opens an upload for the session. The uploader redirects the browser to
// redirectPath and reports the scan result to the callback route.
func (s *Server) StartUpload(r *http.Request, sess *sessions.Session, redirectPath string) (string, string, error) {
	initiated, err := s.uploads.Initiate(r.Context(), sess.ID, upload.InitiateOptions{
		Redirect: absoluteURL(r, redirectPath),
		Callback: absoluteURL(r, RouteRLBUploadCallback),
		Source:   SourceQuote,
	})
	if err != nil {
		return "", "", err
	}
	sess.UploadID = initiated.UploadID
	return initiated.UploadURL, initiated.UploadID, nil
}

func (s *Server) RLBUploadPageHandler(w http.ResponseWriter, r *http.Request) {
	s.renderer.Render(w, r, http.StatusOK, TemplateRLB, nil)
}

// RLBUploadInitiateHandler starts an upload for the page's script and returns the URL
// the file is posted to.
func (s *Server) RLBUploadInitiateHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessions.FromContext(r.Context())
	if sess == nil {
		writeJSONError(w, http.StatusInternalServerError, errors.GenericMessage)
		return
	}
	initiated, err := s.uploads.Initiate(r.Context(), sess.ID, upload.InitiateOptions{
		Redirect: absoluteURL(r, RouteRLBUploadStatus),
		Callback: absoluteURL(r, RouteRLBUploadCallback),
		Source:   upload.SourceRLBUpload,
	})
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to initiate upload")
		writeJSONError(w, http.StatusServiceUnavailable, errors.UserMessage(err))
		return
	}
	sess.UploadID = initiated.UploadID
	writeJSON(w, http.StatusOK, map[string]string{"uploadUrl": initiated.UploadURL})
}

func (s *Server) RLBUploadStatusHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessions.FromContext(r.Context())
	if sess == nil {
		s.renderer.RenderError(w, r, errors.Wrapf(errors.ErrSessionNotFound, "[RLBUploadStatusHandler]"))
		return
	}
	record, err := s.uploads.PollStatus(r.Context(), sess.ID)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to retrieve upload status")
		s.renderer.Render(w, r, http.StatusOK, TemplateStatus, StatusPage{Error: errors.UserMessage(err)})
		return
	}
	s.renderer.Render(w, r, http.StatusOK, TemplateStatus, StatusPage{Record: record})
}

func (s *Server) RLBUploadPollHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessions.FromContext(r.Context())
	if sess == nil {
		writeJSONError(w, http.StatusInternalServerError, errors.GenericMessage)
		return
	}
	record, err := s.uploads.PollStatus(r.Context(), sess.ID)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to poll upload status")
		writeJSONError(w, http.StatusInternalServerError, errors.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// RLBUploadCallbackHandler receives scan results from the uploader.
func (s *Server) RLBUploadCallbackHandler(w http.ResponseWriter, r *http.Request) {
	var cb upload.Callback
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCallbackBody)).Decode(&cb); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("invalid upload callback body")
		writeJSONError(w, http.StatusBadRequest, "Invalid callback payload")
		return
	}
	if err := s.uploads.HandleCallback(r.Context(), cb); err != nil {
		if errors.Is(err, upload.ErrMissingSessionID) {
			writeJSONError(w, http.StatusBadRequest, "Missing sessionId in metadata")
			return
		}
		hlog.FromRequest(r).Error().Err(err).Msg("failed to process upload callback")
		writeJSONError(w, http.StatusInternalServerError, errors.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// UploadAndScanHandler takes the browser's file post, either through the mock uploader
// or the proxy to the real one.
func (s *Server) UploadAndScanHandler(w http.ResponseWriter, r *http.Request) {
	if s.mock != nil {
		s.mock.HandleUpload(w, r)
		return
	}
	s.uploadProxy.ServeHTTP(w, r)
}
