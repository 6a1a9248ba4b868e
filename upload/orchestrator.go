package upload

import (
	"context"

	"github.com/jrsteele09/nrf-quote/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	msgUploaderUnavailable = "The upload service is currently unavailable. Please try again later."
	msgStatusUnavailable   = "Failed to retrieve upload status"

	// SourceRLBUpload tags uploads started from the standalone RLB upload page.
	SourceRLBUpload = "rlb-upload"

	defaultRejectionReason = "virus detected"
)

// ErrMissingSessionID is returned for a callback whose metadata carries no sessionId.
var ErrMissingSessionID = errors.Wrapf(errors.ErrValidation, "missing sessionId in metadata")

type InitiateOptions struct {
	Redirect string
	Callback string
	Source   string
}

// Orchestrator runs the upload lifecycle: initiate with the uploader, record with the
// backend, and apply scan results reported by callback.
type Orchestrator struct {
	uploader Uploader
	backend  Backend
}

func NewOrchestrator(uploader Uploader, backend Backend) *Orchestrator {
	return &Orchestrator{uploader: uploader, backend: backend}
}

// Initiate starts an upload for sessionID. The caller stores the returned upload id in
// the session. A backend failure is logged and the upload goes ahead.
func (o *Orchestrator) Initiate(ctx context.Context, sessionID string, opts InitiateOptions) (*Initiated, error) {
	metadata := map[string]any{"sessionId": sessionID}
	if opts.Source != "" {
		metadata["source"] = opts.Source
	}
	initiated, err := o.uploader.Initiate(ctx, InitiateRequest{
		Redirect: opts.Redirect,
		Callback: opts.Callback,
		Metadata: metadata,
	})
	if err != nil {
		return nil, errors.NewProblem(errors.ErrUpstreamService, msgUploaderUnavailable, errors.Wrapf(err, "[Orchestrator Initiate]"))
	}

	if _, err := o.backend.CreateRecord(ctx, sessionID, initiated.UploadID); err != nil {
		log.Error().Err(err).Str("uploadId", initiated.UploadID).Msg("failed to create RLB record in backend")
	}
	log.Info().Str("uploadId", initiated.UploadID).Str("source", opts.Source).Msg("upload initiated")
	return initiated, nil
}

// HandleCallback applies a scan result to the backend record.
func (o *Orchestrator) HandleCallback(ctx context.Context, cb Callback) error {
	sessionID := cb.SessionID()
	if sessionID == "" {
		log.Error().Str("fileStatus", cb.FileStatus).Msg("callback missing sessionId in metadata")
		return ErrMissingSessionID
	}

	logger := log.With().Str("fileStatus", cb.FileStatus).Str("filename", cb.Filename).Logger()
	logger.Info().Msg("received upload callback")

	var update RecordUpdate
	switch cb.FileStatus {
	case FileStatusRejected:
		reason := cb.RejectionReason
		if reason == "" {
			reason = defaultRejectionReason
		}
		update = RecordUpdate{Status: FileStatusRejected, Reason: reason}
	case FileStatusComplete:
		update = RecordUpdate{
			S3Key:               cb.S3Key,
			S3Bucket:            cb.S3Bucket,
			Filename:            cb.Filename,
			DetectedContentType: cb.DetectedContentType,
			ContentLength:       cb.ContentLength,
		}
	default:
		logger.Warn().Msg("unexpected file status")
		return nil
	}

	if _, err := o.backend.UpdateRecord(ctx, sessionID, update); err != nil {
		return errors.NewProblem(errors.ErrUpstreamService, "Failed to process callback", errors.Wrapf(err, "[Orchestrator HandleCallback]"))
	}
	return nil
}

// PollStatus returns the backend record for sessionID. While the record still waits for its
// scan result, the uploader's own status is attached.
func (o *Orchestrator) PollStatus(ctx context.Context, sessionID string) (*Record, error) {
	record, err := o.backend.GetRecord(ctx, sessionID)
	if err != nil {
		return nil, errors.NewProblem(errors.ErrUpstreamService, msgStatusUnavailable, errors.Wrapf(err, "[Orchestrator PollStatus]"))
	}
	if record.Status == FileStatusPending && record.UploadID != "" {
		status, err := o.uploader.Status(ctx, record.UploadID)
		if err != nil {
			log.Warn().Err(err).Str("uploadId", record.UploadID).Msg("failed to read uploader status")
			return record, nil
		}
		record.UploadStatus = status.UploadStatus
	}
	return record, nil
}
