package audit

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()

	path := filepath.Join(t.TempDir(), "audit.db")

	ledger, err := Open(context.Background(), path, discardLogger())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = ledger.Close() //nolint:errcheck // test cleanup
	})

	return ledger
}

func TestAppendAndRecent_Roundtrip(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	rec := Record{
		Timestamp:            time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Filename:             "r1.fastq.gz,r2.fastq.gz",
		NotificationID:       "notif-1",
		TransactionID:        "IGS-10001",
		LabSequenceID:        "seq-7",
		DocumentReferenceIDs: []string{"doc-1", "doc-2"},
		Status:               "OK",
		Extra:                map[string]string{"rows": "1"},
	}

	require.NoError(t, ledger.Append(ctx, rec))

	records, err := ledger.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.True(t, got.Timestamp.Equal(rec.Timestamp))
	assert.Equal(t, rec.Filename, got.Filename)
	assert.Equal(t, rec.NotificationID, got.NotificationID)
	assert.Equal(t, rec.TransactionID, got.TransactionID)
	assert.Equal(t, rec.LabSequenceID, got.LabSequenceID)
	assert.Equal(t, rec.DocumentReferenceIDs, got.DocumentReferenceIDs)
	assert.Equal(t, rec.Status, got.Status)
	assert.Equal(t, rec.Extra, got.Extra)
}

func TestRecent_NewestFirstAndLimit(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	for i, id := range []string{"notif-1", "notif-2", "notif-3"} {
		require.NoError(t, ledger.Append(ctx, Record{
			Timestamp:      time.Date(2024, 6, 1, 12, i, 0, 0, time.UTC),
			Filename:       "f.fastq",
			NotificationID: id,
			Status:         "OK",
		}))
	}

	records, err := ledger.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "notif-3", records[0].NotificationID)
	assert.Equal(t, "notif-2", records[1].NotificationID)
}

func TestAppend_ZeroTimestampFilled(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Append(ctx, Record{
		Filename: "f.fastq",
		Status:   "OK",
	}))

	records, err := ledger.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Timestamp.IsZero())
}

func TestRecent_EmptyLedger(t *testing.T) {
	ledger := openTestLedger(t)

	records, err := ledger.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	ctx := context.Background()

	ledger, err := Open(ctx, path, discardLogger())
	require.NoError(t, err)
	require.NoError(t, ledger.Append(ctx, Record{Filename: "f.fastq", Status: "OK"}))
	require.NoError(t, ledger.Close())

	// Reopening runs migrations again; they must be a no-op.
	reopened, err := Open(ctx, path, discardLogger())
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
