/*
Package notify abstracts the push-notification dispatcher.

PURPOSE:
  The engine treats push delivery as an external, fire-and-forget
  collaborator: multicast by device token, at-most-once, no retries. This
  package defines the Dispatcher interface the jobs depend on, plus a
  log-only implementation for development and an HTTP implementation that
  posts to an FCM-style multicast webhook.

GUARANTEES (and non-guarantees):
  - Tokens are deduplicated before sending
  - One invalid token never fails the rest of the batch
  - Delivery is NOT exactly-once; callers must tolerate duplicates

SEE ALSO:
  - compliance: delay/overtime alert fan-out
  - autolunch: post-insert notices
*/
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// =============================================================================
// NOTIFICATION + DISPATCHER
// =============================================================================

// Notification is one multicast push message. Data carries client action
// markers (e.g. {"action": "overtime_confirm"}).
type Notification struct {
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
	Tokens []string          `json:"tokens"`
}

// Dispatcher sends one notification to many tokens. sent is the number of
// tokens accepted for delivery; a partially failed multicast still returns
// nil error when at least the batch was handed off.
type Dispatcher interface {
	Send(ctx context.Context, n Notification) (sent int, err error)
}

// DedupTokens returns the tokens with duplicates removed, preserving order.
func DedupTokens(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	var unique []string
	for _, t := range tokens {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		unique = append(unique, t)
	}
	return unique
}

// =============================================================================
// LOG DISPATCHER - Development fallback
// =============================================================================

// LogDispatcher logs instead of sending. Used when no webhook is configured.
type LogDispatcher struct{}

func (LogDispatcher) Send(_ context.Context, n Notification) (int, error) {
	tokens := DedupTokens(n.Tokens)
	if len(tokens) == 0 {
		return 0, nil
	}
	log.Printf("[Notify] (log only) %q -> %d token(s): %s", n.Title, len(tokens), n.Body)
	return len(tokens), nil
}

// =============================================================================
// HTTP DISPATCHER - FCM-style multicast webhook
// =============================================================================

// HTTPDispatcher posts the notification as JSON to a multicast webhook.
// The receiving side owns per-token delivery and invalid-token pruning.
type HTTPDispatcher struct {
	URL    string
	Client *http.Client
}

// NewHTTPDispatcher creates a dispatcher with a bounded per-send timeout so
// a slow push backend cannot stall a whole batch run.
func NewHTTPDispatcher(url string) *HTTPDispatcher {
	return &HTTPDispatcher{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *HTTPDispatcher) Send(ctx context.Context, n Notification) (int, error) {
	n.Tokens = DedupTokens(n.Tokens)
	if len(n.Tokens) == 0 {
		return 0, nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return 0, fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("push endpoint returned %s", resp.Status)
	}
	return len(n.Tokens), nil
}

// =============================================================================
// RECORDER - Test fake
// =============================================================================

// Recorder captures notifications for assertions in tests. Safe for
// concurrent Send; can be configured to fail to exercise dispatch-failure
// tolerance.
type Recorder struct {
	mu      sync.Mutex
	Sent    []Notification
	FailAll bool
}

func (r *Recorder) Send(_ context.Context, n Notification) (int, error) {
	if r.FailAll {
		return 0, fmt.Errorf("dispatcher unavailable")
	}
	n.Tokens = DedupTokens(n.Tokens)
	if len(n.Tokens) == 0 {
		return 0, nil
	}
	r.mu.Lock()
	r.Sent = append(r.Sent, n)
	r.mu.Unlock()
	return len(n.Tokens), nil
}

// Titles returns the titles of everything recorded, in send order.
func (r *Recorder) Titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	titles := make([]string, len(r.Sent))
	for i, n := range r.Sent {
		titles[i] = n.Title
	}
	return titles
}
