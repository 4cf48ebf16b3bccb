package demis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitNotification_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/fhir/$process-notification-sequence", r.URL.Path)

		var bundle map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&bundle))
		assert.Equal(t, "Bundle", bundle["resourceType"])

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"resourceType": "Parameters",
			"parameter": [
				{"name": "submitterGeneratedNotificationID", "valueIdentifier": {"value": "notif-1"}},
				{"name": "transactionID", "valueIdentifier": {"value": "IGS-10001"}},
				{"name": "labSequenceID", "valueIdentifier": {"value": "seq-7"}}
			]
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	receipt, err := client.SubmitNotification(context.Background(), map[string]any{
		"resourceType": "Bundle",
	})
	require.NoError(t, err)
	assert.Equal(t, "notif-1", receipt.NotificationID)
	assert.Equal(t, "IGS-10001", receipt.TransactionID)
	assert.Equal(t, "seq-7", receipt.LabSequenceID)
}

func TestSubmitNotification_MissingParameters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"resourceType":"Parameters","parameter":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	receipt, err := client.SubmitNotification(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, receipt.NotificationID)
	assert.Empty(t, receipt.TransactionID)
	assert.Empty(t, receipt.LabSequenceID)
}

func TestSubmitNotification_RejectedBundle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"resourceType":"OperationOutcome","issue":[{"diagnostics":"invalid bundle"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.SubmitNotification(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnprocessableEntity)
	assert.Contains(t, err.Error(), "invalid bundle")
}
