// Package httpx is the net/http implementation of controllers.Transport.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/baaskit/internal/common"
	"github.com/dmitrijs2005/baaskit/internal/controllers"
	"github.com/dmitrijs2005/baaskit/internal/logging"
)

type Transport struct {
	client  *http.Client
	timeout time.Duration
	logger  logging.Logger
}

type Option func(*Transport)

func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.client = c }
}

// WithTimeout bounds every exchange, including reading the body. It applies
// to a copy of the client, so a client passed with WithHTTPClient is never
// modified.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) { t.timeout = d }
}

func WithLogger(l logging.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

func New(opts ...Option) *Transport {
	t := &Transport{client: &http.Client{}, logger: logging.Nop()}
	for _, opt := range opts {
		opt(t)
	}
	if t.timeout > 0 {
		c := *t.client
		c.Timeout = t.timeout
		t.client = &c
	}
	return t
}

// Send performs one exchange. Any failure is a *controllers.TransportError:
// with ResponseText when the server answered, without it otherwise.
//
// When the server replies with a job status id header, the id replaces the
// body as a JSON string.
func (t *Transport) Send(ctx context.Context, method, url string, body []byte, headers http.Header) (*controllers.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	return t.do(ctx, method, url, r, headers)
}

// Upload sends a streamed body, e.g. a multipart file form, and expects a
// JSON answer.
func (t *Transport) Upload(ctx context.Context, url string, body io.Reader, headers http.Header) (*controllers.Response, error) {
	return t.do(ctx, http.MethodPost, url, body, headers)
}

func (t *Transport) do(ctx context.Context, method, url string, body io.Reader, headers http.Header) (*controllers.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &controllers.TransportError{Err: err}
	}
	if headers != nil {
		req.Header = headers.Clone()
	}

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Debug(ctx, "http exchange failed", "url", url, "error", err)
		return nil, &controllers.TransportError{Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &controllers.TransportError{Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &controllers.TransportError{
			Status:       resp.StatusCode,
			ResponseText: string(b),
			Err:          fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}

	if id := resp.Header.Get(common.JobStatusIDHeader); id != "" {
		raw, err := json.Marshal(id)
		if err != nil {
			return nil, &controllers.TransportError{Status: resp.StatusCode, Err: err}
		}
		return &controllers.Response{Status: resp.StatusCode, Body: raw}, nil
	}

	if len(bytes.TrimSpace(b)) == 0 {
		return &controllers.Response{Status: resp.StatusCode, Body: json.RawMessage(`{}`)}, nil
	}
	if !json.Valid(b) {
		return nil, &controllers.TransportError{
			Status:       resp.StatusCode,
			ResponseText: string(b),
			Err:          fmt.Errorf("response is not JSON"),
		}
	}
	return &controllers.Response{Status: resp.StatusCode, Body: b}, nil
}
