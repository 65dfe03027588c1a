// Package httpjson performs single JSON-over-HTTP calls and classifies their failures.
package httpjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// DefaultTimeout mirrors the timeout the data clients have always used.
const DefaultTimeout = 30 * time.Second

// RawJSON is a response body that is known to be syntactically valid JSON.
type RawJSON []byte

// Client issues one request per call. It never retries.
type Client struct {
	client *resty.Client
	log    zerolog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.SetTimeout(d)
		}
	}
}

// WithHTTPClient swaps the underlying transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		timeout := hc.Timeout
		c.client = resty.NewWithClient(hc)
		if timeout == 0 {
			c.client.SetTimeout(DefaultTimeout)
		}
	}
}

// WithLogger sets a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a Client with DefaultTimeout.
func NewClient(opts ...Option) *Client {
	client := resty.New()
	client.SetTimeout(DefaultTimeout)
	client.SetHeader("Accept", "application/json")

	c := &Client{
		client: client,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET with the given query parameters.
func (c *Client) Get(ctx context.Context, url string, query map[string]string) (RawJSON, error) {
	return c.Request(ctx, http.MethodGet, url, query, nil)
}

// PostJSON performs a POST with body encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, url string, body any) (RawJSON, error) {
	return c.Request(ctx, http.MethodPost, url, nil, body)
}

// Request performs a single HTTP call and returns the raw JSON body.
//
// Transport failures yield a KindNetwork error; non-2xx answers and bodies that
// are not JSON yield KindMalformed.
func (c *Client) Request(ctx context.Context, method, url string, query map[string]string, body any) (RawJSON, error) {
	req := c.client.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	started := time.Now()
	resp, err := req.Execute(method, url)
	if err != nil {
		err = redactError(err)
		c.log.Debug().Err(err).Str("method", method).Str("url", redact(url)).Msg("request failed")
		return nil, Network(err)
	}

	c.log.Debug().
		Str("method", method).
		Str("url", redact(url)).
		Int("status", resp.StatusCode()).
		Dur("elapsed", time.Since(started)).
		Msg("request completed")

	if !resp.IsSuccess() {
		return nil, &ProviderError{
			Kind:    KindMalformed,
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode(), truncate(resp.String(), 200)),
			Status:  resp.StatusCode(),
		}
	}

	raw := resp.Body()
	if !json.Valid(raw) {
		return nil, &ProviderError{
			Kind:    KindMalformed,
			Message: fmt.Sprintf("response is not JSON: %s", truncate(string(raw), 200)),
			Status:  resp.StatusCode(),
		}
	}
	return RawJSON(raw), nil
}

// redactError strips the request URL's query from transport errors, whose
// text would otherwise carry the API key.
func redactError(err error) error {
	var ue *neturl.Error
	if errors.As(err, &ue) {
		ue.URL = redact(ue.URL)
	}
	return err
}

// redact drops the query string, which carries API keys for some providers.
func redact(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
