// Package upload coordinates red line boundary file uploads between the browser, the CDP
// uploader and the NRF backend.
package upload

import (
	"context"
	"fmt"
)

// InitiateRequest is the body of the uploader's POST /initiate.
type InitiateRequest struct {
	Redirect string         `json:"redirect"`
	S3Bucket string         `json:"s3Bucket"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Callback string         `json:"callback,omitempty"`
}

// Initiated is the uploader's answer to an initiate request.
type Initiated struct {
	UploadURL string `json:"uploadUrl"`
	UploadID  string `json:"uploadId"`
	StatusURL string `json:"statusUrl,omitempty"`
}

// FileDetails describes one file received by the uploader.
type FileDetails struct {
	FileID              string `json:"fileId"`
	Filename            string `json:"filename"`
	ContentType         string `json:"contentType"`
	FileStatus          string `json:"fileStatus"`
	ContentLength       int64  `json:"contentLength"`
	DetectedContentType string `json:"detectedContentType"`
	S3Key               string `json:"s3Key"`
	S3Bucket            string `json:"s3Bucket"`
}

// Status is the uploader's view of an upload.
type Status struct {
	UploadID              string                 `json:"uploadId,omitempty"`
	UploadStatus          string                 `json:"uploadStatus"`
	Metadata              map[string]any         `json:"metadata,omitempty"`
	Form                  map[string]FileDetails `json:"form,omitempty"`
	NumberOfRejectedFiles int                    `json:"numberOfRejectedFiles"`
}

// Uploader is the file upload and virus scanning service.
type Uploader interface {
	Initiate(ctx context.Context, req InitiateRequest) (*Initiated, error)
	Status(ctx context.Context, uploadID string) (*Status, error)
}

// Callback is the payload the uploader POSTs once a file has been scanned.
type Callback struct {
	S3Key               string         `json:"s3Key,omitempty"`
	S3Bucket            string         `json:"s3Bucket,omitempty"`
	Filename            string         `json:"filename,omitempty"`
	FileStatus          string         `json:"fileStatus,omitempty"`
	RejectionReason     string         `json:"rejectionReason,omitempty"`
	DetectedContentType string         `json:"detectedContentType,omitempty"`
	ContentLength       *int64         `json:"contentLength,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

// SessionID is the browser session the upload was started from, as recorded in its metadata.
func (c Callback) SessionID() string {
	s, _ := c.Metadata["sessionId"].(string)
	return s
}

const (
	FileStatusPending  = "pending"
	FileStatusComplete = "complete"
	FileStatusRejected = "rejected"
)

var fileSizeUnits = []string{"bytes", "KB", "MB", "GB", "TB"}

// FileSize formats a byte count for display, e.g. "1.5 MB".
func FileSize(bytes int64) string {
	if bytes < 0 {
		return "Unknown"
	}
	if bytes < 1024 {
		return fmt.Sprintf("%d bytes", bytes)
	}
	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(fileSizeUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", size, fileSizeUnits[unit])
}
