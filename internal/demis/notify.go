package demis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// NotificationReceipt carries the identifiers the backend assigns to an
// accepted sequence notification.
type NotificationReceipt struct {
	NotificationID string
	TransactionID  string
	LabSequenceID  string
}

// parametersResponse is the FHIR Parameters resource returned by the
// notification endpoint.
type parametersResponse struct {
	Parameter []parameter `json:"parameter"`
}

type parameter struct {
	Name            string      `json:"name"`
	ValueIdentifier *identifier `json:"valueIdentifier"`
}

type identifier struct {
	Value string `json:"value"`
}

// SubmitNotification posts a finished notification bundle and extracts the
// assigned identifiers from the Parameters response. A non-2xx response is
// surfaced with its body via APIError.
func (c *Client) SubmitNotification(ctx context.Context, bundle any) (*NotificationReceipt, error) {
	body, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("demis: marshaling notification bundle: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/fhir/$process-notification-sequence",
		"application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var params parametersResponse
	if decErr := json.NewDecoder(resp.Body).Decode(&params); decErr != nil {
		return nil, fmt.Errorf("demis: decoding notification response: %w", decErr)
	}

	receipt := &NotificationReceipt{
		NotificationID: params.value("submitterGeneratedNotificationID"),
		TransactionID:  params.value("transactionID"),
		LabSequenceID:  params.value("labSequenceID"),
	}

	c.logger.Info("notification accepted",
		slog.String("notification_id", receipt.NotificationID),
		slog.String("transaction_id", receipt.TransactionID),
	)

	return receipt, nil
}

// value extracts a named identifier value from the parameter list.
func (p *parametersResponse) value(name string) string {
	for _, param := range p.Parameter {
		if param.Name == name && param.ValueIdentifier != nil {
			return param.ValueIdentifier.Value
		}
	}

	return ""
}
