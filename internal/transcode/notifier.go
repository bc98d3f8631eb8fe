package transcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// EventPath is the gateway's internal endpoint for processing events.
const EventPath = "/internal/notify"

// ServiceKeyHeader authenticates worker-to-gateway calls.
const ServiceKeyHeader = "X-Internal-Service-Key"

// Event tells the gateway that an image's processing state changed.
// The gateway re-reads the record before broadcasting, so the event
// carries identifiers only.
type Event struct {
	ImageID string `json:"imageId"`
	Status  string `json:"status"`
}

// Notifier delivers processing events to the gateway.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// HTTPNotifier posts events to the gateway's internal endpoint.
// Delivery is single-attempt; a missed notification degrades realtime
// updates but never the pipeline.
type HTTPNotifier struct {
	client     *http.Client
	url        string
	serviceKey string
}

var _ Notifier = (*HTTPNotifier)(nil)

func NewHTTPNotifier(gatewayURL, serviceKey string, timeout time.Duration) *HTTPNotifier {
	return &HTTPNotifier{
		client:     &http.Client{Timeout: timeout},
		url:        gatewayURL + EventPath,
		serviceKey: serviceKey,
	}
}

func (n *HTTPNotifier) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ServiceKeyHeader, n.serviceKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver event: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway rejected event: status %d", resp.StatusCode)
	}
	return nil
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }

// RecordingNotifier captures events for tests.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *RecordingNotifier) Notify(_ context.Context, event Event) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *RecordingNotifier) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
