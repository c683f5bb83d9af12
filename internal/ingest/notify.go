package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const notifyTimeout = 10 * time.Second

// NotifyEvent tells the agent runtime that the corpus changed.
type NotifyEvent struct {
	Event     string   `json:"event"`
	Documents []string `json:"documents,omitempty"`
	Chunks    int      `json:"chunks"`
}

// Notifier delivers fire-and-forget corpus-change webhooks. Delivery runs on
// its own goroutine with its own failure channel, so a slow or broken
// webhook can never fail a pipeline run.
type Notifier struct {
	url        string
	httpClient *http.Client
}

// NewNotifier creates a Notifier posting to url. An empty url disables
// delivery.
func NewNotifier(url string) *Notifier {
	return &Notifier{
		url:        url,
		httpClient: &http.Client{Timeout: notifyTimeout},
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.url != ""
}

// Notify posts the event asynchronously and returns a channel that yields
// the delivery outcome exactly once. The channel is buffered; callers may
// drain it with a deadline or drop it entirely.
func (n *Notifier) Notify(ctx context.Context, event NotifyEvent) <-chan error {
	errCh := make(chan error, 1)

	if n.url == "" {
		errCh <- nil
		return errCh
	}

	go func() {
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		errCh <- n.post(ctx, event)
	}()

	return errCh
}

func (n *Notifier) post(ctx context.Context, event NotifyEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notify event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify webhook: status %d", resp.StatusCode)
	}
	return nil
}
