package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/igs-tools/igsup/internal/batch"
)

func TestRenderTable_Basic(t *testing.T) {
	var buf bytes.Buffer

	renderTable(&buf, []string{"A", "B"}, [][]string{
		{"one", "two"},
		{"short"},
	})

	out := buf.String()
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "B")
	assert.Contains(t, out, "one")
	assert.Contains(t, out, "short")
}

func TestRenderTable_NoHeaders(t *testing.T) {
	var buf bytes.Buffer

	renderTable(&buf, nil, [][]string{{"x"}})
	assert.Empty(t, buf.String())
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer

	printSummary(&buf, []batch.RowResult{
		{
			NotificationID: "notif-1",
			Files:          []string{"r1.fastq.gz", "r2.fastq.gz"},
			ValidFiles:     2,
			TransactionID:  "IGS-10001",
			Status:         batch.StatusOK,
		},
		{
			NotificationID: "notif-2",
			Files:          []string{"r3.fastq.gz"},
			ValidFiles:     0,
			Status:         batch.StatusNotifyFailed,
			Err:            errors.New("bundle rejected"),
		},
	})

	out := buf.String()
	assert.Contains(t, out, "notif-1")
	assert.Contains(t, out, "r1.fastq.gz,r2.fastq.gz")
	assert.Contains(t, out, "2/2")
	assert.Contains(t, out, "IGS-10001")
	assert.Contains(t, out, batch.StatusOK)
	assert.Contains(t, out, "notif-2")
	assert.Contains(t, out, "0/1")
	assert.Contains(t, out, batch.StatusNotifyFailed)
	assert.Contains(t, out, "bundle rejected")
}
