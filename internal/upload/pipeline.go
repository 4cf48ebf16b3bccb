package upload

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/igs-tools/igsup/internal/demis"
)

// Polling cadence and overall deadline for server-side validation.
const (
	defaultPollInterval = 5 * time.Second
	defaultPollTimeout  = 300 * time.Second
)

// Status is the terminal outcome of a file's validation.
type Status string

const (
	// StatusValid means server-side validation accepted the file.
	StatusValid Status = "VALID"
	// StatusInvalid covers every terminal status other than VALID.
	StatusInvalid Status = "INVALID"
	// StatusTimeout means the polling deadline elapsed before a terminal
	// status arrived. The session is not resumed afterwards.
	StatusTimeout Status = "TIMEOUT"
)

// Service is the backend surface the pipeline drives. *demis.Client
// implements it; tests substitute fakes.
type Service interface {
	RegisterDocument(ctx context.Context, fileName, hexDigest string) (string, error)
	UploadInfo(ctx context.Context, docID string, fileSize int64) (*demis.UploadInfo, error)
	PutChunk(ctx context.Context, presignedURL string, data []byte) (string, error)
	FinishUpload(ctx context.Context, docID string, body demis.FinishUploadBody) error
	StartValidation(ctx context.Context, docID string) error
	ValidationStatus(ctx context.Context, docID string) (*demis.ValidationStatus, error)
}

// Result is the outcome of one file's pipeline run. DocumentID is usable
// for notification purposes only when Status is StatusValid.
type Result struct {
	FileName   string
	DocumentID string
	Status     Status
	Message    string
}

// Pipeline runs the per-file upload state machine, strictly linear:
// hash, register, presign, transfer, finish, validate, poll. Each stage is
// gated on the previous one succeeding; a failure aborts this file only.
type Pipeline struct {
	svc          Service
	logger       *slog.Logger
	pollInterval time.Duration
	pollTimeout  time.Duration

	// now and sleepFunc are injection points for the polling tests.
	now       func() time.Time
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewPipeline creates a Pipeline with the default polling cadence.
func NewPipeline(svc Service, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		svc:          svc,
		logger:       logger,
		pollInterval: defaultPollInterval,
		pollTimeout:  defaultPollTimeout,
		now:          time.Now,
		sleepFunc:    timeSleep,
	}
}

// Process drives one file through the whole pipeline and returns its
// terminal result. Step failures are returned as errors; validation
// outcomes (including INVALID and TIMEOUT) are carried in the Result.
func (p *Pipeline) Process(ctx context.Context, path, fileName string) (*Result, error) {
	digest, err := Digest(path)
	if err != nil {
		return nil, err
	}

	docID, err := p.svc.RegisterDocument(ctx, fileName, digest)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	info, err := p.svc.UploadInfo(ctx, docID, fi.Size())
	if err != nil {
		return nil, err
	}

	completed, transferErr := p.transferChunks(ctx, path, info)
	if transferErr != nil {
		// The completion call still reports the chunks that made it, so
		// the backend can discard the partial upload.
		p.logger.Error("chunk transfer aborted",
			slog.String("file", fileName),
			slog.Int("completed", len(completed)),
			slog.String("error", transferErr.Error()),
		)
	}

	finishErr := p.svc.FinishUpload(ctx, docID, demis.FinishUploadBody{
		UploadID:        info.UploadID,
		CompletedChunks: completed,
	})

	if transferErr != nil {
		return nil, transferErr
	}

	if finishErr != nil {
		return nil, finishErr
	}

	if err := p.svc.StartValidation(ctx, docID); err != nil {
		return nil, err
	}

	status, message := p.pollValidation(ctx, docID)

	result := &Result{
		FileName:   fileName,
		DocumentID: docID,
		Status:     status,
		Message:    message,
	}

	p.logger.Info("file pipeline finished",
		slog.String("file", fileName),
		slog.String("document_id", docID),
		slog.String("status", string(status)),
	)

	return result, nil
}

// pollValidation queries the validation status every pollInterval until a
// terminal status arrives or the deadline elapses. A poll request failure
// is reported and polling continues; it does not abort the loop.
func (p *Pipeline) pollValidation(ctx context.Context, docID string) (Status, string) {
	deadline := p.now().Add(p.pollTimeout)

	for {
		vs, err := p.svc.ValidationStatus(ctx, docID)

		switch {
		case err != nil:
			p.logger.Warn("validation status request failed",
				slog.String("document_id", docID),
				slog.String("error", err.Error()),
			)
		case vs.Done:
			if vs.Status == string(StatusValid) {
				return StatusValid, vs.Message
			}

			return StatusInvalid, vs.Message
		default:
			p.logger.Debug("validation in progress",
				slog.String("document_id", docID),
				slog.String("status", vs.Status),
			)
		}

		if p.now().After(deadline) {
			p.logger.Error("validation deadline exceeded",
				slog.String("document_id", docID),
				slog.Duration("timeout", p.pollTimeout),
			)

			return StatusTimeout, ""
		}

		if sleepErr := p.sleepFunc(ctx, p.pollInterval); sleepErr != nil {
			return StatusTimeout, ""
		}
	}
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Pipeline.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
