package hostlink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/casualjim/hostlink/pkg/slogx"
	"github.com/fogfish/opts"
	json "github.com/goccy/go-json"
)

// maxErrorBody bounds how much of an error response is kept in an APIError.
const maxErrorBody = 64 << 10

const (
	contentTypeJSON = "application/json"
	// AcceptNDJSON is the Accept header used for chunked NDJSON streams.
	AcceptNDJSON = "application/x-ndjson"
	// AcceptEventStream is the Accept header used for Server-Sent Events.
	AcceptEventStream = "text/event-stream"
)

// Client talks to the host over HTTP. It is safe for concurrent use: it holds no
// per-call state, every stream owns its own connection.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	header     http.Header
}

// New creates a client. Without options it follows the process-wide configuration.
func New(options ...Option) *Client {
	c := &Client{}
	if err := opts.Apply(c, options); err != nil {
		panic(err)
	}
	if c.logger == nil {
		c.logger = slog.Default().With(slogx.LoggerName("hostlink"))
	}
	return c
}

// BaseURL returns the base URL requests are sent to right now.
func (c *Client) BaseURL() string {
	if c.baseURL != "" {
		return strings.TrimRight(c.baseURL, "/")
	}
	return Current().BaseURL
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// URL resolves an endpoint path against the base URL.
func (c *Client) URL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return c.BaseURL() + endpoint
}

func (c *Client) transport() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return Current().HTTPClient
}

// Open sends one request and returns the response with its body unread.
//
// A non-success status is turned into an *APIError before the caller sees the body, so a
// streaming caller never decodes an error page. The caller must close the returned body.
func (c *Client) Open(ctx context.Context, method, endpoint string, body any, accept string) (*http.Response, error) {
	reader, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body for %s: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(endpoint), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", endpoint, err)
	}
	for key, values := range c.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if reader != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.transport().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &CanceledError{Endpoint: endpoint, Err: ctx.Err()}
		}
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Body:       strings.TrimSpace(string(text)),
		}
		c.logger.DebugContext(ctx, "host rejected request", slogx.Endpoint(endpoint), slog.Int("status", resp.StatusCode))
		return nil, apiErr
	}
	return resp, nil
}

// Do sends a JSON request and decodes a JSON response into out. A nil out discards the body.
func (c *Client) Do(ctx context.Context, method, endpoint string, in, out any) error {
	resp, err := c.Open(ctx, method, endpoint, in, contentTypeJSON)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return &CanceledError{Endpoint: endpoint, Err: ctx.Err()}
		}
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
	}
	return nil
}

// Get fetches endpoint and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	return c.Do(ctx, http.MethodGet, endpoint, nil, out)
}

// Post sends in as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, endpoint string, in, out any) error {
	return c.Do(ctx, http.MethodPost, endpoint, in, out)
}

// Put sends in as JSON and decodes the response into out.
func (c *Client) Put(ctx context.Context, endpoint string, in, out any) error {
	return c.Do(ctx, http.MethodPut, endpoint, in, out)
}

// Patch sends in as JSON and decodes the response into out.
func (c *Client) Patch(ctx context.Context, endpoint string, in, out any) error {
	return c.Do(ctx, http.MethodPatch, endpoint, in, out)
}

// Delete sends a DELETE request, with an optional JSON body, and decodes the response into out.
func (c *Client) Delete(ctx context.Context, endpoint string, in, out any) error {
	return c.Do(ctx, http.MethodDelete, endpoint, in, out)
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case io.Reader:
		return b, nil
	case []byte:
		return bytes.NewReader(b), nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	}
}
