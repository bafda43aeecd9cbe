package notifications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"casebook/internal/assets"
	"casebook/internal/config"
	"casebook/internal/logging"
)

const (
	userAgent      = "Casebook-Go/0.1.0"
	ntfyQueueDepth = 64
)

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

// Ntfy forwards notifications to an ntfy topic. Deliveries happen on a single
// background worker so they leave in the order they were reported and never
// block the watch loop; when the queue is full the notification is dropped
// and logged.
type Ntfy struct {
	endpoint    string
	client      *http.Client
	assetEvents bool
	logger      *slog.Logger

	queue     chan payload
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewNtfy builds an ntfy channel from config. It returns nil when no topic is
// configured.
func NewNtfy(cfg *config.Config, logger *slog.Logger) *Ntfy {
	if cfg == nil {
		return nil
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return nil
	}

	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	n := &Ntfy{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		assetEvents: cfg.Notifications.AssetEvents,
		logger:      logging.NewComponentLogger(logger, "ntfy"),
		queue:       make(chan payload, ntfyQueueDepth),
		done:        make(chan struct{}),
	}
	go n.run()
	return n
}

// AssetAdded queues an "asset added" push when asset events are enabled.
func (n *Ntfy) AssetAdded(_ context.Context, asset assets.Descriptor) error {
	if !n.assetEvents {
		return nil
	}
	return n.enqueue(payload{
		title:   "Casebook - Asset Added",
		message: fmt.Sprintf("Added %s: %s (%s)", asset.Category, asset.DisplayName, asset.RelativePath),
		tags:    []string{"casebook", "asset", "added"},
	})
}

// AssetRemoved queues an "asset removed" push when asset events are enabled.
func (n *Ntfy) AssetRemoved(_ context.Context, id string) error {
	if !n.assetEvents {
		return nil
	}
	return n.enqueue(payload{
		title:   "Casebook - Asset Removed",
		message: fmt.Sprintf("Removed asset %s", id),
		tags:    []string{"casebook", "asset", "removed"},
	})
}

// Error queues a high priority error push. Errors are always forwarded.
func (n *Ntfy) Error(_ context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown"
	}
	return n.enqueue(payload{
		title:    "Casebook - Error",
		message:  "Error: " + message,
		tags:     []string{"casebook", "error", "alert"},
		priority: "high",
	})
}

// TestNotification sends a low priority test push synchronously.
func (n *Ntfy) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Casebook - Test",
		message:  "Notification system test",
		tags:     []string{"casebook", "test"},
		priority: "low",
	})
}

// Close stops accepting notifications and waits for queued ones to be sent.
func (n *Ntfy) Close() {
	if n == nil {
		return
	}
	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.queue)
		n.mu.Unlock()
		<-n.done
	})
}

func (n *Ntfy) enqueue(data payload) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return nil
	}
	select {
	case n.queue <- data:
	default:
		logging.WarnWithContext(n.logger, "ntfy queue full; notification dropped", "ntfy_dropped",
			logging.String("title", data.title),
			logging.String(logging.FieldErrorHint, "check ntfy server reachability"),
			logging.String(logging.FieldImpact, "push notification not delivered"),
		)
	}
	return nil
}

func (n *Ntfy) run() {
	defer close(n.done)
	for data := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout)
		if err := n.send(ctx, data); err != nil {
			logging.WarnWithContext(n.logger, "ntfy delivery failed", "ntfy_failed",
				logging.Error(err),
				logging.String("title", data.title),
				logging.String(logging.FieldImpact, "push notification not delivered"),
			)
		}
		cancel()
	}
}

func (n *Ntfy) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

var _ Channel = (*Ntfy)(nil)
var _ Channel = (*Hub)(nil)
