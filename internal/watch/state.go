package watch

import (
	"context"
	"time"

	"casebook/internal/assets"
	"casebook/internal/registry"
	"casebook/internal/scanner"
)

// State is the lifecycle phase of a Session.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateActive   State = "active"
	StateStopping State = "stopping"
)

// Status is the externally visible snapshot of a session.
type Status struct {
	IsActive         bool      `json:"is_active"`
	ProjectRoot      string    `json:"project_root,omitempty"`
	WatchedFileCount int       `json:"watched_file_count"`
	State            State     `json:"state"`
	SessionID        string    `json:"session_id,omitempty"`
	Degraded         bool      `json:"degraded"`
	LastError        string    `json:"last_error,omitempty"`
	StartedAt        time.Time `json:"started_at,omitzero"`
}

// RescanResult reports what a full reconciliation changed.
type RescanResult struct {
	Diff    registry.Diff  `json:"diff"`
	Skipped []scanner.Skip `json:"skipped,omitempty"`
	Tracked int            `json:"tracked"`
}

// Store is the project store the session reads user metadata and identity
// bindings from and writes binding changes to. projectstore.Store satisfies it.
type Store interface {
	Touch(ctx context.Context, root string) error
	LoadOverrides(ctx context.Context, root string) (map[string]assets.Override, error)
	SaveOverride(ctx context.Context, root, rel string, o assets.Override) error
	LoadBindings(ctx context.Context, root string) ([]registry.Binding, error)
	SaveBinding(ctx context.Context, root string, b registry.Binding) error
	DeleteBindings(ctx context.Context, root string, rels ...string) error
	ReplaceBindings(ctx context.Context, root string, bindings []registry.Binding) error
}
