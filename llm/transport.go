package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// endpoints are vars so tests can point providers at httptest servers.
var endpoints = struct {
	gemini    string // models collection; "/<model>:generateContent" is appended
	anthropic string
	openai    string
}{
	gemini:    "https://generativelanguage.googleapis.com/v1beta/models",
	anthropic: "https://api.anthropic.com/v1/messages",
	openai:    "https://api.openai.com/v1/chat/completions",
}

// APIError is a non-2xx answer from a remote generation service.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.Status, e.Message)
}

// IsRateLimited reports whether err is the remote service asking the caller
// to slow down (HTTP 429).
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests
}

// reply is a decoded response body that may carry the service's own error
// message.
type reply interface {
	errorMessage() string
}

// call describes one JSON POST to a provider.
type call struct {
	provider string
	url      string
	header   http.Header
	body     interface{}
}

// postJSON sends c and decodes the answer into out. Any non-200 status comes
// back as *APIError, using the service's message when the body has one.
func postJSON(ctx context.Context, c call, out reply) error {
	payload, err := json.Marshal(c.body)
	if err != nil {
		return fmt.Errorf("%s: marshaling request: %w", c.provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", c.provider, err)
	}
	for k, vs := range c.header {
		req.Header[k] = vs
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", c.provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", c.provider, err)
	}

	decodeErr := json.Unmarshal(raw, out)
	if resp.StatusCode != http.StatusOK {
		msg := truncate(string(raw), 200)
		if decodeErr == nil && out.errorMessage() != "" {
			msg = out.errorMessage()
		}
		return &APIError{Provider: c.provider, Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("%s: parsing response (body: %s): %w", c.provider, truncate(string(raw), 200), decodeErr)
	}
	return nil
}

// requestModel picks the per-request override or the configured model.
func requestModel(configured string, req *Request) string {
	if req.Model != "" {
		return req.Model
	}
	return configured
}
