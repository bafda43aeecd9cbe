package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"casebook/internal/assets"
	"casebook/internal/config"
	"casebook/internal/importer"
	"casebook/internal/logging"
	"casebook/internal/notifications"
	"casebook/internal/projectstore"
	"casebook/internal/services"
	"casebook/internal/watch"
)

// ErrNotRunning is returned by operations that need a started daemon.
var ErrNotRunning = errors.New("daemon not running")

// Daemon owns the watch session, importer and event hub for one process and
// enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	base     *slog.Logger
	logger   *slog.Logger
	store    *projectstore.Store
	hub      *notifications.Hub
	ntfy     *notifications.Ntfy
	session  *watch.Session
	importer *importer.Importer
	logPath  string

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	startedAt time.Time
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithLogPath records the per-run log file reported by Status.
func WithLogPath(path string) Option {
	return func(d *Daemon) {
		d.logPath = path
	}
}

// WithSessionOptions passes options through to the watch session.
func WithSessionOptions(opts ...watch.Option) Option {
	return func(d *Daemon) {
		d.session = watch.New(d.cfg, d.base, d.channel(), d.store, opts...)
	}
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	StartedAt     time.Time
	Watch         watch.Status
	StorePath     string
	LockFilePath  string
	LogPath       string
	NtfyEnabled   bool
	EventSequence uint64
}

// New constructs a daemon around an open project store.
func New(cfg *config.Config, store *projectstore.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and project store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		base:     logger,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		hub:      notifications.NewHub(cfg.Notifications.EventBuffer),
		ntfy:     notifications.NewNtfy(cfg, logger),
		importer: importer.New(cfg, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.session = watch.New(cfg, logger, d.channel(), store)
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Daemon) channel() notifications.Channel {
	if d.ntfy == nil {
		return d.hub
	}
	return notifications.Fanout(d.hub, d.ntfy)
}

// Start acquires the daemon lock and, when a default project is configured,
// begins watching it. A default project that cannot be watched is logged and
// reported as an error event; the daemon stays up.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another casebook daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.startedAt = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("casebook daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.Bool("ntfy_enabled", d.ntfy != nil),
	)

	if root := strings.TrimSpace(d.cfg.Paths.DefaultProject); root != "" {
		if err := d.session.Start(d.ctx, root); err != nil {
			logging.WarnWithContext(d.logger, "default project not watched", "default_project_failed",
				logging.String(logging.FieldProjectRoot, root),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix paths.default_project or run casebook watch <path>"),
				logging.String(logging.FieldImpact, "no project is watched until one is selected"),
			)
		}
	}
	return nil
}

// Stop ends the watch session and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.session.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file if the next start reports another instance"),
			logging.String(logging.FieldImpact, "a later daemon start may be refused"),
		)
	}
	d.ctx = nil
	d.startedAt = time.Time{}
	d.running.Store(false)
	d.logger.Info("casebook daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon, flushes queued push notifications, and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	d.ntfy.Close()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// WatchProject switches the live session to root.
func (d *Daemon) WatchProject(ctx context.Context, root string) (watch.Status, error) {
	if !d.running.Load() {
		return watch.Status{}, ErrNotRunning
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return watch.Status{}, services.Wrap(services.ErrValidation, "daemon", "watch", "project root is required", nil)
	}
	expanded, err := config.ExpandPath(root)
	if err != nil {
		return watch.Status{}, services.Wrap(services.ErrValidation, "daemon", "watch", root, err)
	}
	if err := d.session.Start(d.sessionContext(ctx), expanded); err != nil {
		return d.session.Status(), err
	}
	return d.session.Status(), nil
}

// StopWatching ends the live session, if any.
func (d *Daemon) StopWatching() watch.Status {
	d.session.Stop()
	return d.session.Status()
}

// Assets returns the tracked assets of the active session.
func (d *Daemon) Assets() []assets.Descriptor {
	return d.session.Assets()
}

// Asset looks up one tracked asset by relative path or id.
func (d *Daemon) Asset(key string) (assets.Descriptor, bool) {
	return d.session.Asset(key)
}

// Rescan reconciles the active project against a fresh scan.
func (d *Daemon) Rescan(ctx context.Context) (watch.RescanResult, error) {
	return d.session.Rescan(ctx)
}

// SetOverride applies user metadata to an asset of the active project.
func (d *Daemon) SetOverride(ctx context.Context, rel string, o assets.Override) (assets.Descriptor, bool, error) {
	return d.session.SetOverride(ctx, rel, o)
}

// Import copies files into projectRoot, or into the watched project when
// projectRoot is empty.
func (d *Daemon) Import(ctx context.Context, files []importer.File, projectRoot string) (importer.Result, error) {
	root := strings.TrimSpace(projectRoot)
	if root == "" {
		root = d.session.Status().ProjectRoot
	}
	if root == "" {
		return importer.Result{}, services.Wrap(services.ErrNotActive, "daemon", "import", "no project root given and no project is watched", nil)
	}
	expanded, err := config.ExpandPath(root)
	if err != nil {
		return importer.Result{}, services.Wrap(services.ErrValidation, "daemon", "import", root, err)
	}
	return d.importer.ImportBatch(ctx, files, expanded)
}

// Events returns hub events after since. A positive wait blocks up to that
// long for the first event.
func (d *Daemon) Events(ctx context.Context, since uint64, limit int, wait time.Duration) ([]notifications.Event, uint64, error) {
	if wait <= 0 {
		return d.hub.Fetch(ctx, since, limit, false)
	}
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	events, next, err := d.hub.Fetch(waitCtx, since, limit, true)
	if errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	return events, next, err
}

// OldestEvent reports the first sequence still buffered by the hub.
func (d *Daemon) OldestEvent() uint64 {
	return d.hub.FirstSequence()
}

// TestNotification publishes a test event to the hub and, when configured,
// sends a test push through ntfy.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	d.hub.Publish(notifications.Event{Type: notifications.EventTest, Message: "notification test"})
	if d.ntfy == nil {
		return false, "ntfy topic not configured; test event published to subscribers", nil
	}
	if err := d.ntfy.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Projects lists every project the store has metadata for.
func (d *Daemon) Projects(ctx context.Context) ([]projectstore.Project, error) {
	return d.store.Projects(ctx)
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	startedAt := d.startedAt
	d.mu.Unlock()
	_, latest := d.hub.Tail(1)
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		StartedAt:     startedAt,
		Watch:         d.session.Status(),
		StorePath:     d.store.Path(),
		LockFilePath:  d.lockPath,
		LogPath:       d.logPath,
		NtfyEnabled:   d.ntfy != nil,
		EventSequence: latest,
	}
}

// sessionContext carries the request's correlation fields into the session
// while detaching it from the request's cancellation.
func (d *Daemon) sessionContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithoutCancel(ctx)
}
