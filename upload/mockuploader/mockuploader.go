// Package mockuploader stands in for the CDP uploader during local development. Uploads
// are accepted without scanning and reported complete through the callback.
package mockuploader

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/nrf-quote/cache"
	"github.com/jrsteele09/nrf-quote/internal/errors"
	"github.com/jrsteele09/nrf-quote/upload"
	"github.com/rs/zerolog/log"
)

const (
	UploadPathPrefix = "/upload-and-scan/"
	StatusPathPrefix = "/mock-uploader/status/"

	keyPrefix       = "mock-upload:"
	defaultRedirect = "/rlb-upload/status"
	maxUploadBytes  = 100 << 20
)

type mockUpload struct {
	upload.Status
	Callback  string    `json:"callback,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Dispatcher delivers a callback payload to url.
type Dispatcher func(ctx context.Context, url string, cb upload.Callback)

// Uploader is an in-process upload.Uploader backed by a cache.
type Uploader struct {
	store    cache.Cache
	bucket   string
	ttl      time.Duration
	dispatch Dispatcher
	nowTime  func() time.Time
}

var _ upload.Uploader = (*Uploader)(nil)

type Option func(*Uploader)

// WithDispatcher replaces the default asynchronous HTTP callback delivery.
func WithDispatcher(d Dispatcher) Option {
	return func(u *Uploader) {
		u.dispatch = d
	}
}

func WithNowTime(now func() time.Time) Option {
	return func(u *Uploader) {
		u.nowTime = now
	}
}

func New(store cache.Cache, bucket string, ttl time.Duration, httpClient *http.Client, opts ...Option) *Uploader {
	u := &Uploader{
		store:    store,
		bucket:   bucket,
		ttl:      ttl,
		dispatch: HTTPDispatcher(httpClient),
		nowTime:  time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Uploader) Initiate(ctx context.Context, req upload.InitiateRequest) (*upload.Initiated, error) {
	id := uuid.NewString()
	metadata := map[string]any{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["redirect"] = req.Redirect

	record := mockUpload{
		Status: upload.Status{
			UploadID:     id,
			UploadStatus: "pending",
			Metadata:     metadata,
			Form:         map[string]upload.FileDetails{},
		},
		Callback:  req.Callback,
		CreatedAt: u.nowTime(),
	}
	if err := u.store.Set(ctx, keyPrefix+id, record, u.ttl); err != nil {
		return nil, errors.Wrapf(err, "[mockuploader Initiate]")
	}
	return &upload.Initiated{
		UploadID:  id,
		UploadURL: UploadPathPrefix + id,
		StatusURL: StatusPathPrefix + id,
	}, nil
}

func (u *Uploader) Status(ctx context.Context, uploadID string) (*upload.Status, error) {
	record, err := u.get(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	return &record.Status, nil
}

func (u *Uploader) get(ctx context.Context, uploadID string) (*mockUpload, error) {
	var record mockUpload
	if err := u.store.Get(ctx, keyPrefix+uploadID, &record); err != nil {
		return nil, errors.Wrapf(err, "[mockuploader] upload %s", uploadID)
	}
	return &record, nil
}

// HandleUpload receives the multipart form for POST /upload-and-scan/{uploadId}, marks
// every file complete, notifies the callback and redirects as the real uploader would.
func (u *Uploader) HandleUpload(w http.ResponseWriter, r *http.Request) {
	uploadID := r.PathValue("uploadId")
	record, err := u.get(r.Context(), uploadID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Upload not found"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid multipart payload"})
		return
	}

	if record.Form == nil {
		record.Form = map[string]upload.FileDetails{}
	}
	var first *upload.FileDetails
	for field, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		fileID := uuid.NewString()
		details := upload.FileDetails{
			FileID:              fileID,
			Filename:            fh.Filename,
			ContentType:         contentType,
			FileStatus:          upload.FileStatusComplete,
			ContentLength:       fh.Size,
			DetectedContentType: contentType,
			S3Key:               "rlb/uploads/" + uploadID + "/" + fileID,
			S3Bucket:            u.bucket,
		}
		record.Form[field] = details
		if first == nil {
			first = &details
		}
	}
	record.UploadStatus = "ready"
	if err := u.store.Set(r.Context(), keyPrefix+uploadID, record, u.ttl); err != nil {
		log.Err(err).Str("uploadId", uploadID).Msg("mock uploader failed to store upload")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to store upload"})
		return
	}

	if first != nil && record.Callback != "" {
		size := first.ContentLength
		u.dispatch(context.WithoutCancel(r.Context()), record.Callback, upload.Callback{
			S3Key:               first.S3Key,
			S3Bucket:            first.S3Bucket,
			Filename:            first.Filename,
			FileStatus:          first.FileStatus,
			DetectedContentType: first.DetectedContentType,
			ContentLength:       &size,
			Metadata:            record.Metadata,
		})
	}

	redirect, _ := record.Metadata["redirect"].(string)
	if redirect == "" {
		redirect = defaultRedirect
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

// HandleStatus serves GET /mock-uploader/status/{uploadId}.
func (u *Uploader) HandleStatus(w http.ResponseWriter, r *http.Request) {
	record, err := u.get(r.Context(), r.PathValue("uploadId"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Upload not found"})
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// HTTPDispatcher posts the callback as JSON from a new goroutine, like a scan finishing
// some time after the upload.
func HTTPDispatcher(client *http.Client) Dispatcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return func(ctx context.Context, url string, cb upload.Callback) {
		go func() {
			body, err := json.Marshal(cb)
			if err != nil {
				log.Err(err).Msg("mock uploader failed to encode callback")
				return
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				log.Err(err).Str("callback", url).Msg("mock uploader callback failed")
				return
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := client.Do(req)
			if err != nil {
				log.Err(err).Str("callback", url).Msg("mock uploader callback failed")
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			log.Info().Str("callback", url).Int("status", resp.StatusCode).Msg("mock uploader callback completed")
		}()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
