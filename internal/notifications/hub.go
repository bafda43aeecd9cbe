package notifications

import (
	"context"
	"sync"
	"time"

	"casebook/internal/assets"
	"casebook/internal/services"
)

// EventType names a notification kind on the wire.
type EventType string

const (
	EventAssetAdded   EventType = "asset_added"
	EventAssetRemoved EventType = "asset_removed"
	EventError        EventType = "error"
	EventTest         EventType = "test"
)

// Event is one sequenced notification held by the hub.
type Event struct {
	Sequence    uint64             `json:"seq"`
	Type        EventType          `json:"type"`
	Timestamp   time.Time          `json:"ts"`
	ProjectRoot string             `json:"project_root,omitempty"`
	SessionID   string             `json:"session_id,omitempty"`
	Asset       *assets.Descriptor `json:"asset,omitempty"`
	AssetID     string             `json:"asset_id,omitempty"`
	Message     string             `json:"message,omitempty"`
}

// Hub stores recent events and wakes waiters when new events arrive.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
}

// NewHub constructs a bounded in-memory event buffer.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 512
	}
	h := &Hub{capacity: capacity}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// AssetAdded publishes an asset_added event.
func (h *Hub) AssetAdded(ctx context.Context, asset assets.Descriptor) error {
	clone := asset.Clone()
	h.Publish(withContext(ctx, Event{Type: EventAssetAdded, Asset: &clone, AssetID: asset.ID}))
	return nil
}

// AssetRemoved publishes an asset_removed event.
func (h *Hub) AssetRemoved(ctx context.Context, id string) error {
	h.Publish(withContext(ctx, Event{Type: EventAssetRemoved, AssetID: id}))
	return nil
}

// Error publishes an error event.
func (h *Hub) Error(ctx context.Context, message string) error {
	h.Publish(withContext(ctx, Event{Type: EventError, Message: message}))
	return nil
}

// Publish appends evt, assigning its sequence number, and returns the stored copy.
func (h *Hub) Publish(evt Event) Event {
	if h == nil {
		return evt
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	h.cond.Broadcast()
	return evt
}

// Fetch returns events with sequence greater than since, up to limit. When
// wait is true, Fetch blocks until at least one event is available or the
// context ends. The returned cursor is the latest sequence published.
func (h *Hub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]Event, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.cond.Broadcast()
				h.mu.Unlock()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		events := h.snapshotLocked(since, limit)
		if len(events) > 0 || !wait {
			return events, cursor(events, h.nextSeq), contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, h.nextSeq, err
		}
		h.cond.Wait()
	}
}

// Tail returns the most recent limit events without blocking.
func (h *Hub) Tail(limit int) ([]Event, uint64) {
	if h == nil {
		return nil, 0
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	start := max(len(h.buffer)-limit, 0)
	out := make([]Event, len(h.buffer)-start)
	copy(out, h.buffer[start:])
	return out, h.nextSeq
}

// FirstSequence reports the smallest sequence number still buffered. Clients
// whose cursor is older than this have missed events and should resync.
func (h *Hub) FirstSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.buffer) == 0 {
		return h.nextSeq
	}
	return h.buffer[0].Sequence
}

func (h *Hub) snapshotLocked(since uint64, limit int) []Event {
	start := -1
	for i, evt := range h.buffer {
		if evt.Sequence > since {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	end := min(start+limit, len(h.buffer))
	out := make([]Event, end-start)
	copy(out, h.buffer[start:end])
	return out
}

// cursor is the sequence a client should pass as since on its next call. A
// limited page returns its last sequence so nothing is skipped.
func cursor(events []Event, latest uint64) uint64 {
	if len(events) == 0 {
		return latest
	}
	return events[len(events)-1].Sequence
}

func withContext(ctx context.Context, evt Event) Event {
	if ctx == nil {
		return evt
	}
	if root, ok := services.ProjectRootFromContext(ctx); ok {
		evt.ProjectRoot = root
	}
	if id, ok := services.SessionIDFromContext(ctx); ok {
		evt.SessionID = id
	}
	return evt
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
