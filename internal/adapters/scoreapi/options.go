package scoreapi

import (
	"net/http"
	"strings"
	"time"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithMethod sets the HTTP method used for fetches.
func WithMethod(method string) Option {
	return func(c *Client) {
		if method = strings.ToUpper(strings.TrimSpace(method)); method != "" {
			c.method = method
		}
	}
}

// WithBody sets a fixed request body, for servers that expect a command.
func WithBody(body string) Option {
	return func(c *Client) {
		c.body = []byte(body)
	}
}

// WithRequireSignalField makes a response without hasSignal a missing field failure.
func WithRequireSignalField(required bool) Option {
	return func(c *Client) {
		c.requireSignalField = required
	}
}

// WithMaxFrameAge reports frames older than d as no signal. Zero disables the check.
func WithMaxFrameAge(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.maxFrameAge = d
		}
	}
}

// WithHTTPClient sets the HTTP client. The request timeout is applied per fetch
// through the context, so the client itself needs no timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClock sets the time source used for the frame age check.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRequestIDGenerator overrides how X-Request-ID values are generated.
func WithRequestIDGenerator(newID func() string) Option {
	return func(c *Client) {
		if newID != nil {
			c.newRequestID = newID
		}
	}
}
