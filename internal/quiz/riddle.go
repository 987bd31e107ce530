package quiz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultEndpoint = "https://www.riddle.com/creator/api/v3/riddle-builder"

var (
	ErrInvalidQuiz   = errors.New("invalid quiz")
	ErrNotConfigured = errors.New("riddle API key not configured")
)

// APIError is a non-2xx answer from the publishing API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("riddle API error: %d - %s", e.StatusCode, e.Message)
}

type Build struct {
	Title  string            `json:"title"`
	Blocks []json.RawMessage `json:"blocks"`
}

type Payload struct {
	Type    string `json:"type"`
	Publish bool   `json:"publish"`
	Build   *Build `json:"build"`
}

// Validate checks the fields the publishing API requires. The raw document
// is forwarded untouched.
func Validate(raw json.RawMessage) (Payload, error) {
	var p Payload
	if len(raw) == 0 {
		return p, fmt.Errorf("%w: no quiz data", ErrInvalidQuiz)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: invalid JSON format", ErrInvalidQuiz)
	}
	if p.Type == "" || p.Build == nil {
		return p, fmt.Errorf("%w: missing required fields: type, build", ErrInvalidQuiz)
	}
	if p.Build.Title == "" {
		return p, fmt.Errorf("%w: quiz title is required in build.title", ErrInvalidQuiz)
	}
	if len(p.Build.Blocks) == 0 {
		return p, fmt.Errorf("%w: quiz must have at least one question block", ErrInvalidQuiz)
	}
	return p, nil
}

type Published struct {
	UUID      string `json:"UUID"`
	Title     string `json:"title"`
	Type      string `json:"type,omitempty"`
	Created   string `json:"created"`
	Published bool   `json:"published"`
	ViewURL   string `json:"viewUrl,omitempty"`
}

type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewClient(endpoint, apiKey string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{endpoint: endpoint, apiKey: apiKey, http: &http.Client{Timeout: 30 * time.Second}}
}

func (c *Client) Configured() bool { return c != nil && c.apiKey != "" }

// Upload posts raw to the builder API. Uploads are not retried: the API is
// not idempotent.
func (c *Client) Upload(ctx context.Context, raw json.RawMessage) (Published, error) {
	if !c.Configured() {
		return Published{}, ErrNotConfigured
	}
	if _, err := Validate(raw); err != nil {
		return Published{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return Published{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Published{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Published{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Published{}, &APIError{StatusCode: resp.StatusCode, Message: upstreamMessage(body)}
	}
	return decodePublished(body)
}

type riddleData struct {
	UUID      string `json:"UUID"`
	Uniqid    string `json:"uniqid"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	Created   string `json:"created"`
	Published any    `json:"published"`
}

// decodePublished accepts both the enveloped {success, data} answer and a
// bare riddle object.
func decodePublished(body []byte) (Published, error) {
	var env struct {
		Success *bool       `json:"success"`
		Data    *riddleData `json:"data"`
		riddleData
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return Published{}, fmt.Errorf("unexpected response from riddle API: %w", err)
	}
	d := env.riddleData
	if env.Success != nil {
		if !*env.Success || env.Data == nil {
			return Published{}, errors.New("unexpected response from riddle API")
		}
		d = *env.Data
	}
	p := Published{
		UUID:      d.UUID,
		Title:     d.Title,
		Type:      d.Type,
		Created:   d.Created,
		Published: truthy(d.Published),
	}
	if p.UUID == "" {
		p.UUID = d.Uniqid
	}
	if p.UUID == "" {
		return Published{}, errors.New("riddle API response has no UUID")
	}
	if p.Published {
		p.ViewURL = "https://www.riddle.com/view/" + p.UUID
	}
	return p, nil
}

func upstreamMessage(body []byte) string {
	var e struct {
		Message          string `json:"message"`
		ValidationErrors []struct {
			Property string `json:"property"`
			Message  string `json:"message"`
		} `json:"validationErrors"`
	}
	if err := json.Unmarshal(body, &e); err != nil || e.Message == "" {
		s := string(body)
		if len(s) > 200 {
			s = s[:200]
		}
		return s
	}
	msg := e.Message
	for i, v := range e.ValidationErrors {
		if i == 0 {
			msg += " - Validation: "
		} else {
			msg += ", "
		}
		msg += v.Property + ": " + v.Message
	}
	return msg
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && t != "0" && t != "false"
	default:
		return false
	}
}
