package batch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igs-tools/igsup/internal/audit"
	"github.com/igs-tools/igsup/internal/demis"
	"github.com/igs-tools/igsup/internal/notification"
	"github.com/igs-tools/igsup/internal/upload"
)

// fakeProcessor returns canned per-file pipeline results.
type fakeProcessor struct {
	results map[string]*upload.Result
	errs    map[string]error
	calls   []string
}

func (f *fakeProcessor) Process(_ context.Context, _, fileName string) (*upload.Result, error) {
	f.calls = append(f.calls, fileName)

	if err := f.errs[fileName]; err != nil {
		return nil, err
	}

	return f.results[fileName], nil
}

type fakeNotifier struct {
	receipt *demis.NotificationReceipt
	err     error
	bundles []any
}

func (f *fakeNotifier) SubmitNotification(_ context.Context, bundle any) (*demis.NotificationReceipt, error) {
	f.bundles = append(f.bundles, bundle)

	if f.err != nil {
		return nil, f.err
	}

	return f.receipt, nil
}

type fakeAuditor struct {
	records []audit.Record
	err     error
}

func (f *fakeAuditor) Append(_ context.Context, rec audit.Record) error {
	f.records = append(f.records, rec)

	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newReadsDir creates a reads directory populated with the given files.
func newReadsDir(t *testing.T, names ...string) string {
	t.Helper()

	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("ACGT"), 0o600))
	}

	return dir
}

func newTestRunner(processor *fakeProcessor, notifier *fakeNotifier, auditor *fakeAuditor, readsDir string) *Runner {
	return NewRunner(processor, notification.NewBuilder("https://portal.example.org"),
		notifier, auditor, readsDir, discardLogger())
}

func TestReadsDir(t *testing.T) {
	got := ReadsDir(filepath.Join("data", "meta", "batch.csv"))
	assert.Equal(t, filepath.Join("data", "reads"), got)
}

func TestRun_OnlyValidFilesContribute(t *testing.T) {
	readsDir := newReadsDir(t, "r1.fastq", "r2.fastq")

	processor := &fakeProcessor{results: map[string]*upload.Result{
		"r1.fastq": {FileName: "r1.fastq", DocumentID: "doc-1", Status: upload.StatusValid},
		"r2.fastq": {FileName: "r2.fastq", DocumentID: "doc-2", Status: upload.StatusInvalid, Message: "bad reads"},
	}}
	notifier := &fakeNotifier{receipt: &demis.NotificationReceipt{
		NotificationID: "notif-1",
		TransactionID:  "IGS-10001",
		LabSequenceID:  "seq-7",
	}}
	auditor := &fakeAuditor{}

	runner := newTestRunner(processor, notifier, auditor, readsDir)

	rows := []notification.Row{{
		DemisNotificationID: "notif-1",
		File1Name:           "r1.fastq",
		File2Name:           "r2.fastq",
	}}

	results := runner.Run(context.Background(), rows)
	require.Len(t, results, 1)

	result := results[0]
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, 1, result.ValidFiles)
	assert.Equal(t, "IGS-10001", result.TransactionID)
	assert.NoError(t, result.Err)

	assert.Equal(t, []string{"r1.fastq", "r2.fastq"}, processor.calls)
	assert.Len(t, notifier.bundles, 1)

	require.Len(t, auditor.records, 1)
	rec := auditor.records[0]
	assert.Equal(t, []string{"doc-1"}, rec.DocumentReferenceIDs)
	assert.Equal(t, "IGS-10001", rec.TransactionID)
	assert.Equal(t, "seq-7", rec.LabSequenceID)
	assert.Equal(t, StatusOK, rec.Status)
}

func TestRun_MissingFileSkippedWithoutProcessing(t *testing.T) {
	readsDir := newReadsDir(t, "present.fastq")

	processor := &fakeProcessor{results: map[string]*upload.Result{
		"present.fastq": {DocumentID: "doc-1", Status: upload.StatusValid},
	}}
	notifier := &fakeNotifier{receipt: &demis.NotificationReceipt{TransactionID: "tx"}}
	auditor := &fakeAuditor{}

	runner := newTestRunner(processor, notifier, auditor, readsDir)

	rows := []notification.Row{{
		DemisNotificationID: "notif-1",
		File1Name:           "present.fastq",
		File2Name:           "absent.fastq",
	}}

	results := runner.Run(context.Background(), rows)
	require.Len(t, results, 1)

	assert.Equal(t, []string{"present.fastq"}, processor.calls)
	assert.Equal(t, StatusOK, results[0].Status)
	assert.Equal(t, 1, results[0].ValidFiles)
}

func TestRun_UploadErrorExcludesFileButNotifies(t *testing.T) {
	readsDir := newReadsDir(t, "r1.fastq", "r2.fastq")

	processor := &fakeProcessor{
		results: map[string]*upload.Result{
			"r2.fastq": {DocumentID: "doc-2", Status: upload.StatusValid},
		},
		errs: map[string]error{
			"r1.fastq": errors.New("registration rejected"),
		},
	}
	notifier := &fakeNotifier{receipt: &demis.NotificationReceipt{TransactionID: "tx"}}
	auditor := &fakeAuditor{}

	runner := newTestRunner(processor, notifier, auditor, readsDir)

	rows := []notification.Row{{
		DemisNotificationID: "notif-1",
		File1Name:           "r1.fastq",
		File2Name:           "r2.fastq",
	}}

	results := runner.Run(context.Background(), rows)
	require.Len(t, results, 1)
	assert.Equal(t, StatusOK, results[0].Status)
	assert.Equal(t, 1, results[0].ValidFiles)

	require.Len(t, auditor.records, 1)
	assert.Equal(t, []string{"doc-2"}, auditor.records[0].DocumentReferenceIDs)
}

func TestRun_NotifyFailure(t *testing.T) {
	readsDir := newReadsDir(t, "r1.fastq")

	processor := &fakeProcessor{results: map[string]*upload.Result{
		"r1.fastq": {DocumentID: "doc-1", Status: upload.StatusValid},
	}}
	notifier := &fakeNotifier{err: errors.New("bundle rejected")}
	auditor := &fakeAuditor{}

	runner := newTestRunner(processor, notifier, auditor, readsDir)

	rows := []notification.Row{{
		DemisNotificationID: "notif-1",
		File1Name:           "r1.fastq",
	}}

	results := runner.Run(context.Background(), rows)
	require.Len(t, results, 1)

	result := results[0]
	assert.Equal(t, StatusNotifyFailed, result.Status)
	require.Error(t, result.Err)
	assert.Empty(t, result.TransactionID)

	require.Len(t, auditor.records, 1)
	assert.Equal(t, StatusNotifyFailed, auditor.records[0].Status)
	assert.Empty(t, auditor.records[0].TransactionID)
}

func TestRun_AuditFailureIsNotFatal(t *testing.T) {
	readsDir := newReadsDir(t, "r1.fastq")

	processor := &fakeProcessor{results: map[string]*upload.Result{
		"r1.fastq": {DocumentID: "doc-1", Status: upload.StatusValid},
	}}
	notifier := &fakeNotifier{receipt: &demis.NotificationReceipt{TransactionID: "tx"}}
	auditor := &fakeAuditor{err: errors.New("disk full")}

	runner := newTestRunner(processor, notifier, auditor, readsDir)

	results := runner.Run(context.Background(), []notification.Row{{
		DemisNotificationID: "notif-1",
		File1Name:           "r1.fastq",
	}})

	require.Len(t, results, 1)
	assert.Equal(t, StatusOK, results[0].Status)
}

func TestRun_MultipleRowsAllProcessed(t *testing.T) {
	readsDir := newReadsDir(t, "a.fastq", "b.fastq")

	processor := &fakeProcessor{results: map[string]*upload.Result{
		"a.fastq": {DocumentID: "doc-a", Status: upload.StatusValid},
		"b.fastq": {DocumentID: "doc-b", Status: upload.StatusTimeout},
	}}
	notifier := &fakeNotifier{receipt: &demis.NotificationReceipt{TransactionID: "tx"}}
	auditor := &fakeAuditor{}

	runner := newTestRunner(processor, notifier, auditor, readsDir)

	rows := []notification.Row{
		{DemisNotificationID: "notif-1", File1Name: "a.fastq"},
		{DemisNotificationID: "notif-2", File1Name: "b.fastq"},
	}

	results := runner.Run(context.Background(), rows)
	require.Len(t, results, 2)

	assert.Equal(t, 1, results[0].ValidFiles)
	// The timed-out file contributes no document reference, the
	// notification is still submitted.
	assert.Equal(t, 0, results[1].ValidFiles)
	assert.Len(t, notifier.bundles, 2)
	assert.Len(t, auditor.records, 2)
}
