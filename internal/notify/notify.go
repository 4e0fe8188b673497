// Package notify posts item mutation events to an optional webhook sink.
// Delivery is best effort: a slow or unreachable sink must never block or
// fail the mutation that triggered the event.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Event describes a single item mutation.
type Event struct {
	Kind     string `json:"kind"` // created, updated, borrowed, returned, rollback, ...
	ItemID   int64  `json:"item_id"`
	ItemName string `json:"item_name"`
	Barcode  string `json:"barcode,omitempty"`
	Actor    string `json:"actor,omitempty"`
	Link     string `json:"link,omitempty"`
}

// Notifier delivers mutation events.
type Notifier interface {
	Send(ctx context.Context, ev Event) error
}

// Webhook posts events as JSON to a configured URL.
type Webhook struct {
	URL     string
	BaseURL string // deep-link base for the event's item link
	Client  *http.Client
}

// NewWebhook returns a webhook notifier with the given request timeout.
func NewWebhook(url, baseURL string, timeout time.Duration) *Webhook {
	return &Webhook{
		URL:     url,
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (w *Webhook) Send(ctx context.Context, ev Event) error {
	if ev.Link == "" && w.BaseURL != "" {
		ev.Link = fmt.Sprintf("%s/items/%d", w.BaseURL, ev.ItemID)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("posting event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Noop discards all events.
type Noop struct{}

func (Noop) Send(context.Context, Event) error { return nil }
