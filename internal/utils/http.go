package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// HeaderOption is an extra request header sent by DoPostSync, used by
// providers that authenticate with a custom header instead of a bearer token.
type HeaderOption struct {
	Key   string
	Value string
}

// StatusError is returned by DoPostSync when the server answers with a
// non-2xx status. The body is kept (truncated) for diagnostics.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", e.StatusCode, e.Body)
}

// DoPostSync performs a synchronous HTTP POST request with JSON body and parses the response.
//
// Error Handling Strategy:
//   - Context errors (timeout, cancellation) are propagated wrapped, so errors.Is works
//   - Non-2xx responses return a *StatusError carrying the status code
//   - Response body close errors are logged but don't override primary errors
//   - JSON parsing errors include a response preview for debugging
func DoPostSync[OutputStruct any](ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...HeaderOption) (*http.Response, *OutputStruct, error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("error marshaling body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for _, header := range headers {
		req.Header.Set(header.Key, header.Value)
	}

	res, err := httpClient.Do(req)
	if err != nil {
		return res, nil, fmt.Errorf("error sending request: %w", err)
	}
	defer CloseWithLog(res.Body)

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res, nil, &StatusError{StatusCode: res.StatusCode, Body: TruncateString(string(respBody), 1000)}
	}

	var resStruct OutputStruct
	if err = json.Unmarshal(respBody, &resStruct); err != nil {
		return res, nil, fmt.Errorf("error unmarshaling response body (status %d): %w\nResponse preview: %s", res.StatusCode, err, TruncateString(string(respBody), 500))
	}

	return res, &resStruct, nil
}

// CloseWithLog closes c and logs a warning if closing fails. Meant for
// deferred body closes where the primary error must not be overwritten.
func CloseWithLog(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Warn("failed to close resource", "error", err.Error())
	}
}
