// Package notify forwards selected scheduler events to a webhook, the hook a
// home-automation controller listens on.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/okian/goalsensor/internal/domain/event"
)

// Default webhook configuration constants.
const (
	defaultWebhookTimeout = 5 * time.Second
	maxErrorBody          = 240
)

// Sentinel errors.
var (
	ErrNoURL            = errors.New("webhook url is required")
	ErrUnexpectedStatus = errors.New("webhook returned unexpected status")
)

// Payload is the JSON body posted for every notification.
type Payload struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Team     string    `json:"team"`
	At       time.Time `json:"at"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Score    *int      `json:"score"`
	Requests uint64    `json:"request_count"`
}

// NewPayload converts an event to its wire form.
func NewPayload(e event.Event) Payload { //nolint:gocritic // hugeParam: events are passed by value throughout
	p := Payload{
		ID:       e.ID,
		Kind:     string(e.Kind),
		Team:     e.Team,
		At:       e.At.UTC(),
		From:     e.From.String(),
		To:       e.To.String(),
		Requests: e.RequestCount,
	}
	if e.HasScore {
		score := e.Score
		p.Score = &score
	}
	return p
}

// Webhook posts events as JSON to a fixed URL.
type Webhook struct {
	url        string
	httpClient *http.Client
	headers    map[string]string
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithHTTPClient sets the HTTP client used for delivery.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) {
		if c != nil {
			w.httpClient = c
		}
	}
}

// WithHeader adds a header to every request, for example an auth token.
func WithHeader(key, value string) WebhookOption {
	return func(w *Webhook) {
		if key != "" {
			w.headers[key] = value
		}
	}
}

// NewWebhook creates a webhook deliverer for url.
func NewWebhook(url string, opts ...WebhookOption) (*Webhook, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrNoURL
	}
	w := &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: defaultWebhookTimeout},
		headers:    map[string]string{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Deliver posts e to the webhook.
func (w *Webhook) Deliver(ctx context.Context, e event.Event) error { //nolint:gocritic // hugeParam: matches worker.Deliverer
	body, err := jsoniter.Marshal(NewPayload(e))
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.ID != "" {
		req.Header.Set("X-Event-ID", e.ID)
	}
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: status=%d body=%s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
