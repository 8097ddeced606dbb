// Package scoreapi implements source.Source against a score server speaking JSON
// over HTTP.
//
// The server answers with an object such as
//
//	{"hasSignal": true, "score": {"foo": 1, "bar": 0}, "timestamp": 1714586400000}
//
// where hasSignal is optional unless required by configuration and timestamp is
// optional milliseconds since the epoch.
package scoreapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/okian/goalsensor/internal/domain/match"
	"github.com/okian/goalsensor/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultMethod    = http.MethodGet
	maxResponseBytes = 1 << 20
	requestIDHeader  = "X-Request-ID"
	contentTypeJSON  = "application/json"
)

// ErrInvalidURL is returned when the score server URL cannot be used.
var ErrInvalidURL = errors.New("invalid score server url")

type response struct {
	HasSignal *bool           `json:"hasSignal"`
	Score     *map[string]int `json:"score"`
	Timestamp *int64          `json:"timestamp"`
}

// Client fetches score snapshots from a score server.
type Client struct {
	url                string
	method             string
	body               []byte
	requireSignalField bool
	maxFrameAge        time.Duration
	httpClient         *http.Client
	now                func() time.Time
	newRequestID       func() string
}

// New creates a client for url.
func New(url string, opts ...Option) (*Client, error) {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("%w: %q must start with http:// or https://", ErrInvalidURL, url)
	}

	c := &Client{
		url:          url,
		method:       defaultMethod,
		httpClient:   &http.Client{},
		now:          time.Now,
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch performs one request. It never returns an error: every problem maps to
// a failure outcome.
func (c *Client) Fetch(ctx context.Context, timeout time.Duration) match.Outcome {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if len(c.body) > 0 {
		body = bytes.NewReader(c.body)
	}
	req, err := http.NewRequestWithContext(ctx, c.method, c.url, body)
	if err != nil {
		return c.fail(match.FailureConnection, "build_request")
	}
	req.Header.Set("Accept", contentTypeJSON)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	req.Header.Set(requestIDHeader, c.newRequestID())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return c.fail(match.FailureTimeout, "timeout")
		}
		return c.fail(match.FailureConnection, "transport")
	}
	defer resp.Body.Close()
	metrics.RecordSourceResponse(strconv.Itoa(resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(ctx, err) {
			return c.fail(match.FailureTimeout, "timeout").WithRaw(raw)
		}
		return c.fail(match.FailureConnection, "read_body").WithRaw(raw)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.fail(match.FailureConnection, "status_"+strconv.Itoa(resp.StatusCode)).WithRaw(raw)
	}

	return c.decode(raw).WithRaw(raw)
}

func (c *Client) decode(raw []byte) match.Outcome {
	var r response
	if err := jsoniter.Unmarshal(raw, &r); err != nil {
		return c.fail(match.FailureMalformedResponse, "decode")
	}
	if c.requireSignalField && r.HasSignal == nil {
		return c.fail(match.FailureMissingField, "missing_has_signal")
	}
	if r.HasSignal != nil && !*r.HasSignal {
		return match.NoSignal()
	}
	if c.maxFrameAge > 0 && r.Timestamp != nil {
		taken := time.UnixMilli(*r.Timestamp)
		if c.now().Sub(taken) >= c.maxFrameAge {
			metrics.RecordStaleFrame()
			return match.NoSignal()
		}
	}
	if r.Score == nil {
		return c.fail(match.FailureMissingField, "missing_score")
	}
	return match.Signal(match.Score(*r.Score))
}

func (c *Client) fail(kind match.FailureKind, reason string) match.Outcome {
	metrics.RecordErrorByComponent("scoreapi", reason)
	return match.Failed(kind)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
