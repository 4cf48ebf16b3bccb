package demis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// UploadInfo is the upload coordination data returned by the presign
// endpoint: one presigned URL per part, all parts PartSizeBytes long
// except the last.
type UploadInfo struct {
	UploadID      string   `json:"uploadId"`
	PresignedURLs []string `json:"presignedUrls"`
	PartSizeBytes int64    `json:"partSizeBytes"`
}

// CompletedChunk records one successfully transferred part. PartNumber is
// 1-based and contiguous; the ordered sequence is required by FinishUpload.
type CompletedChunk struct {
	PartNumber int    `json:"partNumber"`
	ETag       string `json:"eTag"`
}

// FinishUploadBody is the completion payload. It carries only the chunks
// that actually succeeded.
type FinishUploadBody struct {
	UploadID        string           `json:"uploadId"`
	CompletedChunks []CompletedChunk `json:"completedChunks"`
}

// ValidationStatus is one poll result. Status is terminal once Done is true.
type ValidationStatus struct {
	Status  string `json:"status"`
	Done    bool   `json:"done"`
	Message string `json:"message,omitempty"`
}

// UploadInfo requests upload coordination info for a registered document.
func (c *Client) UploadInfo(ctx context.Context, docID string, fileSize int64) (*UploadInfo, error) {
	path := fmt.Sprintf("/S3Controller/upload/%s/s3-upload-info?fileSize=%s",
		docID, strconv.FormatInt(fileSize, 10))

	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var info UploadInfo
	if decErr := json.NewDecoder(resp.Body).Decode(&info); decErr != nil {
		return nil, fmt.Errorf("demis: decoding upload info: %w", decErr)
	}

	c.logger.Debug("upload info received",
		slog.String("document_id", docID),
		slog.String("upload_id", info.UploadID),
		slog.Int("parts", len(info.PresignedURLs)),
		slog.Int64("part_size", info.PartSizeBytes),
	)

	return &info, nil
}

// PutChunk transfers one chunk of raw bytes to a presigned URL and returns
// the entity tag. The URL is pre-authorized, so neither bearer auth nor the
// client certificate is sent.
func (c *Client) PutChunk(ctx context.Context, presignedURL string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("demis: creating chunk request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.ContentLength = int64(len(data))

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("demis: chunk transfer: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	return strings.Trim(resp.Header.Get("ETag"), `"`), nil
}

// FinishUpload submits the completion payload. Success is a no-content
// response; anything else is an error.
func (c *Client) FinishUpload(ctx context.Context, docID string, body FinishUploadBody) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("demis: marshaling finish-upload body: %w", err)
	}

	path := fmt.Sprintf("/S3Controller/upload/%s/$finish-upload", docID)

	resp, err := c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusNoContent {
		return &APIError{
			StatusCode: resp.StatusCode,
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	c.logger.Info("upload finished",
		slog.String("document_id", docID),
		slog.Int("completed_chunks", len(body.CompletedChunks)),
	)

	return nil
}

// StartValidation asks the backend to validate an uploaded file.
// Fire-and-forget: no body is returned on success.
func (c *Client) StartValidation(ctx context.Context, docID string) error {
	path := fmt.Sprintf("/S3Controller/upload/%s/$validate", docID)

	resp, err := c.do(ctx, http.MethodPost, path, "application/json", nil)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusNoContent {
		return &APIError{
			StatusCode: resp.StatusCode,
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	c.logger.Info("validation started", slog.String("document_id", docID))

	return nil
}

// ValidationStatus queries the current validation state of a document.
func (c *Client) ValidationStatus(ctx context.Context, docID string) (*ValidationStatus, error) {
	path := fmt.Sprintf("/S3Controller/upload/%s/$validation-status", docID)

	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var status ValidationStatus
	if decErr := json.NewDecoder(resp.Body).Decode(&status); decErr != nil {
		return nil, fmt.Errorf("demis: decoding validation status: %w", decErr)
	}

	return &status, nil
}
