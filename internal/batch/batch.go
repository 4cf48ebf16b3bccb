// Package batch orchestrates a metadata batch: for every row it drives
// the upload pipeline per referenced file, then builds and submits the
// notification bundle, and records the outcome in the audit ledger.
package batch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/igs-tools/igsup/internal/audit"
	"github.com/igs-tools/igsup/internal/demis"
	"github.com/igs-tools/igsup/internal/notification"
	"github.com/igs-tools/igsup/internal/upload"
)

// Row-level outcome values recorded in the audit ledger and shown in the
// end-of-run summary.
const (
	StatusOK           = "OK"
	StatusNotifyFailed = "NOTIFY_FAILED"
)

// FileProcessor drives one file through the upload pipeline.
type FileProcessor interface {
	Process(ctx context.Context, path, fileName string) (*upload.Result, error)
}

// Notifier submits a finished bundle.
type Notifier interface {
	SubmitNotification(ctx context.Context, bundle any) (*demis.NotificationReceipt, error)
}

// Auditor appends one ledger record.
type Auditor interface {
	Append(ctx context.Context, rec audit.Record) error
}

// RowResult summarizes one processed metadata row.
type RowResult struct {
	NotificationID string
	Files          []string
	ValidFiles     int
	TransactionID  string
	Status         string
	Err            error
}

// Runner iterates metadata rows strictly sequentially. Failures stay local
// to the file or row that raised them; the batch always runs to completion.
type Runner struct {
	pipeline FileProcessor
	builder  *notification.Builder
	notifier Notifier
	auditor  Auditor
	logger   *slog.Logger

	// readsDir is where the row's sequence files live.
	readsDir string
}

// NewRunner assembles a Runner. readsDir is resolved by the caller
// (by convention ../reads relative to the metadata file's directory).
func NewRunner(
	pipeline FileProcessor,
	builder *notification.Builder,
	notifier Notifier,
	auditor Auditor,
	readsDir string,
	logger *slog.Logger,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		pipeline: pipeline,
		builder:  builder,
		notifier: notifier,
		auditor:  auditor,
		readsDir: readsDir,
		logger:   logger,
	}
}

// ReadsDir returns the conventional sequence file directory for a
// metadata file path: <dir>/../reads.
func ReadsDir(metadataPath string) string {
	return filepath.Join(filepath.Dir(metadataPath), "..", "reads")
}

// Run processes all rows and returns one result per row.
func (r *Runner) Run(ctx context.Context, rows []notification.Row) []RowResult {
	results := make([]RowResult, 0, len(rows))

	for i := range rows {
		results = append(results, r.processRow(ctx, &rows[i]))
	}

	return results
}

// processRow uploads the row's files and submits its notification. Only
// files whose validation reached VALID contribute document identifiers;
// the notification proceeds with whatever identifiers were produced.
func (r *Runner) processRow(ctx context.Context, row *notification.Row) RowResult {
	result := RowResult{
		NotificationID: row.DemisNotificationID,
		Files:          row.FileNames(),
	}

	var docIDs []string

	for _, fileName := range result.Files {
		path := filepath.Join(r.readsDir, fileName)

		r.logger.Info("processing file",
			slog.String("file", fileName),
			slog.String("notification_id", row.DemisNotificationID),
		)

		if _, err := os.Stat(path); err != nil {
			r.logger.Error("file not found, skipping",
				slog.String("path", path),
			)

			continue
		}

		res, err := r.pipeline.Process(ctx, path, fileName)
		if err != nil {
			r.logger.Error("file upload failed",
				slog.String("file", fileName),
				slog.String("error", err.Error()),
			)

			continue
		}

		if res.Status != upload.StatusValid {
			r.logger.Error("validation did not pass, file excluded from notification",
				slog.String("file", fileName),
				slog.String("status", string(res.Status)),
				slog.String("message", res.Message),
			)

			continue
		}

		docIDs = append(docIDs, res.DocumentID)
		result.ValidFiles++
	}

	bundle := r.builder.Build(*row, docIDs)

	receipt, err := r.notifier.SubmitNotification(ctx, bundle)
	if err != nil {
		r.logger.Error("notification submission failed",
			slog.String("notification_id", row.DemisNotificationID),
			slog.String("error", err.Error()),
		)

		result.Status = StatusNotifyFailed
		result.Err = err
	} else {
		result.Status = StatusOK
		result.TransactionID = receipt.TransactionID
	}

	rec := audit.Record{
		Filename:             strings.Join(result.Files, ","),
		NotificationID:       row.DemisNotificationID,
		DocumentReferenceIDs: docIDs,
		Status:               result.Status,
	}

	if receipt != nil {
		if receipt.NotificationID != "" {
			rec.NotificationID = receipt.NotificationID
		}

		rec.TransactionID = receipt.TransactionID
		rec.LabSequenceID = receipt.LabSequenceID
	}

	if auditErr := r.auditor.Append(ctx, rec); auditErr != nil {
		r.logger.Error("audit record write failed",
			slog.String("error", auditErr.Error()),
		)
	}

	return result
}
