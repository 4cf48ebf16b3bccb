package demis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const userAgent = "igsup/0.1"

// TokenSource provides bearer tokens. Defined at the consumer per Go
// convention "accept interfaces, return structs"; the auth package
// provides the real implementation.
type TokenSource interface {
	Token() (string, error)
}

// Client is an HTTP client for the reporting backend. It handles request
// construction, bearer authentication, and error classification. It makes
// exactly one attempt per call: a failed step is reported by the caller
// and the unit of work moves on, there is no retry or backoff.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// uploadClient performs presigned chunk transfers. Presigned URLs are
	// pre-authorized and live outside the mutual-TLS perimeter, so they
	// must not go through the client-certificate transport.
	uploadClient *http.Client
	token        TokenSource
	logger       *slog.Logger
}

// NewClient creates a backend client. httpClient should be the mutual-TLS
// client used for all authenticated endpoints.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   httpClient,
		uploadClient: http.DefaultClient,
		token:        token,
		logger:       logger,
	}
}

// do executes a single authenticated request against the backend.
// The path is appended to the client's base URL. The caller is responsible
// for closing the response body on success.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("demis: creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("demis: obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("demis: %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)

		return resp, nil
	}

	errBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if readErr != nil {
		errBody = []byte("(failed to read response body)")
	}

	c.logger.Error("request failed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	return nil, &APIError{
		StatusCode: resp.StatusCode,
		Message:    string(errBody),
		Err:        classifyStatus(resp.StatusCode),
	}
}

// drainAndClose discards the remaining body so the connection can be reused.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body) //nolint:errcheck // best-effort drain
	body.Close()
}
