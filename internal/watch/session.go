package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"casebook/internal/assets"
	"casebook/internal/config"
	"casebook/internal/logging"
	"casebook/internal/notifications"
	"casebook/internal/preflight"
	"casebook/internal/registry"
	"casebook/internal/scanner"
	"casebook/internal/services"
)

// Session watches exactly one project root at a time.
type Session struct {
	window      time.Duration
	poll        time.Duration
	queueSize   int
	initialScan bool

	logger  *slog.Logger
	channel notifications.Channel
	store   Store
	scanner *scanner.Scanner
	regOpts []registry.Option

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex

	mu        sync.RWMutex
	state     State
	root      string
	sessionID string
	startedAt time.Time
	degraded  bool
	lastError string
	run       *run

	// remembered holds the last bindings per root when there is no store,
	// so a restart in the same process keeps asset ids.
	remembered map[string][]registry.Binding
}

// Option customizes a Session.
type Option func(*Session)

// WithRegistryOptions passes options to every registry the session creates.
func WithRegistryOptions(opts ...registry.Option) Option {
	return func(s *Session) {
		s.regOpts = append(s.regOpts, opts...)
	}
}

// New builds an idle session. channel may be nil (notifications are dropped)
// and store may be nil (no overrides or persisted identities).
func New(cfg *config.Config, logger *slog.Logger, channel notifications.Channel, store Store, opts ...Option) *Session {
	if channel == nil {
		channel = notifications.Nop{}
	}
	s := &Session{
		window:      cfg.StabilityWindow(),
		poll:        cfg.PollInterval(),
		queueSize:   cfg.Watch.QueueSize,
		initialScan: cfg.Watch.InitialScan,
		logger:      logging.NewComponentLogger(logger, "watch"),
		channel:     channel,
		store:       store,
		scanner:     scanner.New(logger),
		state:       StateIdle,
		remembered:  make(map[string][]registry.Binding),
	}
	if s.queueSize <= 0 {
		s.queueSize = 256
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins watching projectRoot. Starting the root that is already active
// and healthy is a no-op; starting a different root, or the same root after a
// runtime failure, stops the current session first.
// Failures leave the session Idle and are reported through the channel as
// well as returned.
func (s *Session) Start(ctx context.Context, projectRoot string) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	root, err := filepath.Abs(projectRoot)
	if err != nil {
		root = projectRoot
	}
	root = filepath.Clean(root)

	s.mu.RLock()
	current, active, degraded := s.root, s.state == StateActive, s.degraded
	s.mu.RUnlock()
	if active && current == root && !degraded {
		return nil
	}
	s.stopLocked()

	sessionID := uuid.NewString()
	ctx = services.WithSessionID(services.WithProjectRoot(ctx, root), sessionID)
	logger := logging.WithContext(ctx, s.logger)

	s.mu.Lock()
	s.state = StateStarting
	s.root = root
	s.sessionID = sessionID
	s.degraded = false
	s.lastError = ""
	s.mu.Unlock()

	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return s.failStart(ctx, logger, services.Wrap(services.ErrProjectRootNotFound, "watch", "start", root, nil))
	}
	if check := preflight.CheckProjectRoot("project root", root); !check.Passed {
		return s.failStart(ctx, logger, services.Wrap(services.ErrWatchInit, "watch", "access project root", check.Detail, nil))
	}
	if err := assets.EnsureLayout(root); err != nil {
		return s.failStart(ctx, logger, services.Wrap(services.ErrWatchInit, "watch", "create asset folders", root, err))
	}

	reg := registry.New(s.regOpts...)
	if s.store == nil {
		reg.Retain(s.remembered[root])
	}
	s.loadProjectMetadata(ctx, logger, root, reg)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return s.failStart(ctx, logger, services.Wrap(services.ErrWatchInit, "watch", "create watcher", "", err))
	}
	for _, top := range assets.Roots() {
		if _, err := addTree(watcher, filepath.Join(root, top)); err != nil {
			_ = watcher.Close()
			return s.failStart(ctx, logger, services.Wrap(services.ErrWatchInit, "watch", "register watches", top, err))
		}
	}

	r := newRun(s, ctx, root, reg, watcher, logger)
	s.mu.Lock()
	s.state = StateActive
	s.startedAt = time.Now().UTC()
	s.run = r
	s.mu.Unlock()
	r.start()

	logger.Info("watch session started",
		logging.String(logging.FieldEventType, "watch_started"),
		logging.Int("watches", len(watcher.WatchList())),
		logging.Duration("stability_window", s.window),
	)

	if s.initialScan {
		if _, err := s.rescanRun(ctx, r); err != nil {
			logging.WarnWithContext(logger, "initial scan failed", "initial_scan_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run casebook rescan once the project folders are readable"),
				logging.String(logging.FieldImpact, "assets present before the session started are not tracked"),
			)
		}
	}
	return nil
}

// Stop releases watches and cancels pending debounce timers. It is
// idempotent and returns only after the loop has exited.
func (s *Session) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	s.mu.Lock()
	r := s.run
	if r == nil {
		s.state = StateIdle
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	s.mu.Unlock()

	r.stop()
	if s.store == nil {
		s.remembered[r.root] = r.reg.Bindings()
	}

	s.mu.Lock()
	s.state = StateIdle
	s.run = nil
	s.root = ""
	s.sessionID = ""
	s.startedAt = time.Time{}
	s.degraded = false
	s.mu.Unlock()

	r.logger.Info("watch session stopped", logging.String(logging.FieldEventType, "watch_stopped"))
}

// Status reports the session's current state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		IsActive:  s.state == StateActive,
		State:     s.state,
		SessionID: s.sessionID,
		Degraded:  s.degraded,
		LastError: s.lastError,
		StartedAt: s.startedAt,
	}
	if s.state != StateIdle {
		st.ProjectRoot = s.root
	}
	if s.run != nil {
		st.WatchedFileCount = s.run.reg.Len()
	}
	return st
}

// Assets returns an immutable snapshot of the tracked assets.
func (s *Session) Assets() []assets.Descriptor {
	r := s.current()
	if r == nil {
		return nil
	}
	return r.reg.Snapshot()
}

// Asset looks up a tracked asset by relative path or id.
func (s *Session) Asset(key string) (assets.Descriptor, bool) {
	r := s.current()
	if r == nil {
		return assets.Descriptor{}, false
	}
	if d, ok := r.reg.Get(key); ok {
		return d, true
	}
	return r.reg.GetByID(key)
}

// Rescan takes a full snapshot of the active project and applies it as one
// atomic reconciliation. Live events observed meanwhile are applied afterward
// in their original order.
func (s *Session) Rescan(ctx context.Context) (RescanResult, error) {
	r := s.current()
	if r == nil {
		return RescanResult{}, services.Wrap(services.ErrNotActive, "watch", "rescan", "", nil)
	}
	return s.rescanRun(ctx, r)
}

// SetOverride merges o into the user metadata for rel, persists it, and
// returns the refreshed descriptor. found is false when rel is not currently
// tracked; the override is still stored and applies once the file appears.
func (s *Session) SetOverride(ctx context.Context, rel string, o assets.Override) (assets.Descriptor, bool, error) {
	r := s.current()
	if r == nil {
		return assets.Descriptor{}, false, services.Wrap(services.ErrNotActive, "watch", "set override", "", nil)
	}
	rel = assets.NormalizePath(rel)
	if rel == "" {
		return assets.Descriptor{}, false, services.Wrap(services.ErrValidation, "watch", "set override", "empty path", nil)
	}

	var (
		desc   assets.Descriptor
		found  bool
		merged assets.Override
	)
	if err := r.do(func() {
		desc, found = r.reg.SetOverride(rel, o)
		merged, _ = r.reg.Override(rel)
	}); err != nil {
		return assets.Descriptor{}, false, err
	}
	if s.store != nil {
		if err := s.store.SaveOverride(ctx, r.root, rel, merged); err != nil {
			return desc, found, fmt.Errorf("persist override: %w", err)
		}
	}
	return desc, found, nil
}

func (s *Session) current() *run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateActive {
		return nil
	}
	return s.run
}

func (s *Session) rescanRun(ctx context.Context, r *run) (RescanResult, error) {
	if err := r.do(r.hold); err != nil {
		return RescanResult{}, err
	}

	scanned, scanErr := s.scanner.Scan(ctx, r.root)

	var result RescanResult
	err := r.do(func() {
		defer r.release()
		if scanErr != nil {
			return
		}
		result.Diff = r.applySnapshot(scanned.Candidates, scanned.Skipped)
		result.Skipped = scanned.Skipped
		result.Tracked = r.reg.Len()
	})
	if err != nil {
		return RescanResult{}, err
	}
	if scanErr != nil {
		return RescanResult{}, scanErr
	}
	return result, nil
}

func (s *Session) loadProjectMetadata(ctx context.Context, logger *slog.Logger, root string, reg *registry.Registry) {
	if s.store == nil {
		return
	}
	warn := func(msg string, err error) {
		logging.WarnWithContext(logger, msg, "project_store_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the metadata database under state_dir"),
			logging.String(logging.FieldImpact, "user overrides or asset ids from earlier sessions are not applied"),
		)
	}
	if err := s.store.Touch(ctx, root); err != nil {
		warn("project store touch failed", err)
		return
	}
	overrides, err := s.store.LoadOverrides(ctx, root)
	if err != nil {
		warn("load overrides failed", err)
	} else {
		reg.LoadOverrides(overrides)
	}
	bindings, err := s.store.LoadBindings(ctx, root)
	if err != nil {
		warn("load bindings failed", err)
	} else {
		reg.Retain(bindings)
	}
}

func (s *Session) failStart(ctx context.Context, logger *slog.Logger, err error) error {
	s.mu.Lock()
	s.state = StateIdle
	s.root = ""
	s.sessionID = ""
	s.lastError = err.Error()
	s.mu.Unlock()

	logging.ErrorWithContext(logger, "watch session failed to start", "watch_start_failed",
		logging.Error(err),
		logging.String("error_kind", services.Kind(err)),
		logging.String(logging.FieldErrorHint, startHint(err)),
	)
	if notifyErr := s.channel.Error(ctx, err.Error()); notifyErr != nil {
		logger.Debug("error notification failed", logging.Error(notifyErr))
	}
	return err
}

// markDegraded records a runtime failure. The session keeps running but the
// caller is expected to restart it.
func (s *Session) markDegraded(r *run, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run != r {
		return
	}
	s.degraded = true
	s.lastError = err.Error()
}

func startHint(err error) string {
	switch {
	case errors.Is(err, services.ErrProjectRootNotFound):
		return "check the project path exists"
	default:
		return "check inotify limits and folder permissions"
	}
}
