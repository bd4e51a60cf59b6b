// Package httpclient provides the HTTP client shared by the model provider adapters.
//
// Requests are sent exactly once: provider failures are surfaced to the caller,
// which decides whether to retry.
package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kart-io/tutor-x/pkg/utils/json"
)

// maxErrorBody 错误响应体最多读取的字节数。
const maxErrorBody = 4 << 10

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status code %d: %s", e.StatusCode, e.Body)
}

// Client is a wrapper around http.Client with trace propagation.
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a new HTTP client wrapper.
// timeout bounds a whole unary exchange; for streams it bounds the wait for response headers.
func NewClient(timeout time.Duration) *Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.ResponseHeaderTimeout = timeout
	transport := &tracingTransport{base: base}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		streamClient: &http.Client{
			Transport: transport,
		},
	}
}

// HTTPClient returns the unary client for SDKs that accept an *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// StreamHTTPClient returns the client without an overall timeout, for SDKs
// that read streamed responses.
func (c *Client) StreamHTTPClient() *http.Client {
	return c.streamClient
}

// Do executes an HTTP request once.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// DoJSON executes a JSON request, decodes the response, and ensures the body is closed.
func (c *Client) DoJSON(req *http.Request, v interface{}) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// DoStream executes a request whose body is consumed incrementally.
// On success the caller owns resp.Body and must close it.
func (c *Client) DoStream(req *http.Request) (*http.Response, error) {
	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
}

// tracingTransport 在每个请求上注入 W3C Trace Context 头。
// Context 中无活跃 Span 或未设置全局传播器时不注入。
type tracingTransport struct {
	base http.RoundTripper
}

func (t *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	propagator := otel.GetTextMapPropagator()
	if propagator == nil {
		return t.base.RoundTrip(req)
	}

	// RoundTripper 不得修改调用方的请求
	req = req.Clone(req.Context())
	propagator.Inject(req.Context(), propagation.HeaderCarrier(req.Header))
	return t.base.RoundTrip(req)
}
