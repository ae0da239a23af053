package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes = 4 << 20

// StatusError is a non-2xx response from a remote provider API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// postJSON marshals payload, posts it, and decodes a 2xx JSON response into out.
func postJSON(ctx context.Context, client *http.Client, url string, header http.Header, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for key, values := range header {
		req.Header[key] = values
	}
	req.Header.Set("Content-Type", "application/json")
	return do(client, req, out)
}

// do executes req and decodes a 2xx JSON response into out.
func do(client *http.Client, req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redactURL(urlErr.URL)
		}
		return fmt.Errorf("%s %s: %w", req.Method, redactURL(req.URL.String()), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Message: apiErrorMessage(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiErrorMessage extracts the human-readable message from the error shapes the
// supported APIs return, falling back to a truncated body.
func apiErrorMessage(raw []byte) string {
	var shaped struct {
		Error   json.RawMessage `json:"error"`
		ErrMsg  string          `json:"err_msg"`
		Reason  string          `json:"reason"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &shaped); err == nil {
		if len(shaped.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(shaped.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
			var plain string
			if json.Unmarshal(shaped.Error, &plain) == nil && plain != "" {
				return plain
			}
		}
		for _, candidate := range []string{shaped.ErrMsg, shaped.Reason, shaped.Message} {
			if candidate != "" {
				return candidate
			}
		}
	}

	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200] + "…"
	}
	return text
}

// redactURL drops query strings, which carry the API key for some providers.
func redactURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// decodeTaskList accepts a bare JSON array of strings or an object carrying the list
// under "tasks" or "items". ok is false when content has none of those shapes.
func decodeTaskList(content string) (tasks []string, ok bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, false
	}

	var list []string
	if err := json.Unmarshal([]byte(content), &list); err == nil {
		return nonNil(list), true
	}

	var wrapped struct {
		Tasks *[]string `json:"tasks"`
		Items *[]string `json:"items"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
		return nil, false
	}
	switch {
	case wrapped.Tasks != nil:
		return nonNil(*wrapped.Tasks), true
	case wrapped.Items != nil:
		return nonNil(*wrapped.Items), true
	default:
		return nil, false
	}
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
