package upload

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/nrf-quote/internal/apiclient"
	"github.com/jrsteele09/nrf-quote/internal/errors"
)

// Record is the backend's red line boundary record, keyed by browser session id.
type Record struct {
	SessionID           string `json:"sessionId"`
	UploadID            string `json:"uploadId,omitempty"`
	Status              string `json:"status,omitempty"`
	Reason              string `json:"reason,omitempty"`
	S3Key               string `json:"s3Key,omitempty"`
	S3Bucket            string `json:"s3Bucket,omitempty"`
	Filename            string `json:"filename,omitempty"`
	DetectedContentType string `json:"detectedContentType,omitempty"`
	ContentLength       *int64 `json:"contentLength,omitempty"`
	Email               string `json:"email,omitempty"`
	// UploadStatus is the uploader's status, filled in by PollStatus for pending records.
	UploadStatus string `json:"uploadStatus,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// RecordUpdate holds the fields a PUT changes; empty fields are left alone.
type RecordUpdate struct {
	Status              string `json:"status,omitempty"`
	Reason              string `json:"reason,omitempty"`
	S3Key               string `json:"s3Key,omitempty"`
	S3Bucket            string `json:"s3Bucket,omitempty"`
	Filename            string `json:"filename,omitempty"`
	DetectedContentType string `json:"detectedContentType,omitempty"`
	ContentLength       *int64 `json:"contentLength,omitempty"`
	Email               string `json:"email,omitempty"`
}

type Backend interface {
	CreateRecord(ctx context.Context, sessionID, uploadID string) (*Record, error)
	GetRecord(ctx context.Context, sessionID string) (*Record, error)
	UpdateRecord(ctx context.Context, sessionID string, update RecordUpdate) (*Record, error)
}

// BackendClient talks to the NRF backend record API.
type BackendClient struct {
	api *apiclient.Client
}

var _ Backend = (*BackendClient)(nil)

func NewBackendClient(baseURL string, httpClient *http.Client) *BackendClient {
	return &BackendClient{api: apiclient.New(baseURL, httpClient)}
}

func sessionPath(sessionID string) string {
	return "/api/rlb/session/" + url.PathEscape(sessionID)
}

// CreateRecord creates, or overwrites, the record for sessionID.
func (c *BackendClient) CreateRecord(ctx context.Context, sessionID, uploadID string) (*Record, error) {
	var out Record
	body := map[string]string{"sessionId": sessionID, "uploadId": uploadID}
	if err := c.api.Post(ctx, "/api/rlb", body, &out); err != nil {
		return nil, errors.Wrapf(err, "[BackendClient CreateRecord]")
	}
	return &out, nil
}

func (c *BackendClient) GetRecord(ctx context.Context, sessionID string) (*Record, error) {
	var out Record
	if err := c.api.Get(ctx, sessionPath(sessionID), &out); err != nil {
		return nil, errors.Wrapf(err, "[BackendClient GetRecord]")
	}
	return &out, nil
}

func (c *BackendClient) UpdateRecord(ctx context.Context, sessionID string, update RecordUpdate) (*Record, error) {
	var out Record
	if err := c.api.Put(ctx, sessionPath(sessionID), update, &out); err != nil {
		return nil, errors.Wrapf(err, "[BackendClient UpdateRecord]")
	}
	return &out, nil
}
