package ipc

import (
	"time"

	"casebook/internal/assets"
	"casebook/internal/importer"
	"casebook/internal/notifications"
	"casebook/internal/registry"
	"casebook/internal/scanner"
	"casebook/internal/watch"
)

// StartRequest asks the daemon to take its lock and resume watching.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the daemon's session and releases its lock.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// WatchStatus mirrors watch.Status on the wire.
type WatchStatus = watch.Status

// StatusResponse represents combined daemon and watch session status.
type StatusResponse struct {
	Running       bool        `json:"running"`
	PID           int         `json:"pid"`
	StartedAt     time.Time   `json:"started_at,omitzero"`
	Watch         WatchStatus `json:"watch"`
	StorePath     string      `json:"store_path"`
	LockPath      string      `json:"lock_path"`
	LogPath       string      `json:"log_path"`
	NtfyEnabled   bool        `json:"ntfy_enabled"`
	EventSequence uint64      `json:"event_sequence"`
}

// WatchRequest switches the watched project.
type WatchRequest struct {
	ProjectRoot string `json:"project_root"`
}

// WatchResponse reports the session after the switch.
type WatchResponse struct {
	Status WatchStatus `json:"status"`
}

// UnwatchRequest stops the watch session.
type UnwatchRequest struct{}

// UnwatchResponse reports the session after stopping.
type UnwatchResponse struct {
	Status WatchStatus `json:"status"`
}

// AssetListRequest lists tracked assets, optionally narrowed by category.
type AssetListRequest struct {
	Category string `json:"category,omitempty"`
}

// AssetListResponse contains tracked asset descriptors.
type AssetListResponse struct {
	Assets []assets.Descriptor `json:"assets"`
}

// AssetDescribeRequest fetches one asset by relative path or id.
type AssetDescribeRequest struct {
	Key string `json:"key"`
}

// AssetDescribeResponse contains a single asset.
type AssetDescribeResponse struct {
	Asset assets.Descriptor `json:"asset"`
}

// RescanRequest triggers a full reconciliation of the watched project.
type RescanRequest struct{}

// RescanResponse reports what the reconciliation changed.
type RescanResponse struct {
	Added   []assets.Descriptor `json:"added"`
	Removed []registry.Removal  `json:"removed"`
	Skipped []scanner.Skip      `json:"skipped,omitempty"`
	Tracked int                 `json:"tracked"`
}

// ImportRequest copies files into a project. An empty ProjectRoot targets the
// watched project.
type ImportRequest struct {
	Files       []importer.File `json:"files"`
	ProjectRoot string          `json:"project_root,omitempty"`
}

// ImportResponse reports the batch outcome.
type ImportResponse struct {
	Result importer.Result `json:"result"`
}

// SetRequest applies user metadata to an asset of the watched project.
type SetRequest struct {
	RelativePath string          `json:"relative_path"`
	Override     assets.Override `json:"override"`
}

// SetResponse carries the refreshed descriptor. Found is false when the path
// is not tracked yet; the override is still stored.
type SetResponse struct {
	Asset assets.Descriptor `json:"asset"`
	Found bool              `json:"found"`
}

// EventsRequest fetches hub events after Since. WaitMillis > 0 long-polls.
type EventsRequest struct {
	Since      uint64 `json:"since"`
	Limit      int    `json:"limit"`
	WaitMillis int    `json:"wait_millis"`
}

// EventsResponse returns events and the cursor for the next request.
type EventsResponse struct {
	Events []notifications.Event `json:"events"`
	Next   uint64                `json:"next"`
	// Oldest is the first sequence still buffered; a Since older than this
	// means events were missed and the client should resync with a list call.
	Oldest uint64 `json:"oldest"`
}

// ProjectsRequest lists known projects.
type ProjectsRequest struct{}

// Project summarizes one project the store knows about.
type Project struct {
	Root         string    `json:"root"`
	LastOpenedAt time.Time `json:"last_opened_at"`
	Assets       int       `json:"assets"`
	Overrides    int       `json:"overrides"`
}

// ProjectsResponse lists projects, most recently opened first.
type ProjectsResponse struct {
	Projects []Project `json:"projects"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
