package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"casebook/internal/assets"
	"casebook/internal/logging"
	"casebook/internal/registry"
	"casebook/internal/scanner"
	"casebook/internal/services"
)

type eventKind int

const (
	// kindFS is a raw fsnotify observation.
	kindFS eventKind = iota
	// kindStable is a debounce timer expiry for one path.
	kindStable
	// kindBackendError is a failure reported by the watch backend.
	kindBackendError
	// kindCommand runs a caller supplied function on the loop.
	kindCommand
)

type event struct {
	kind  eventKind
	op    fsnotify.Op
	path  string
	gen   uint64
	err   error
	apply func()
	done  chan struct{}
}

// pendingAdd tracks a file whose writes have not yet settled.
type pendingAdd struct {
	timer *time.Timer
	gen   uint64
	size  int64
	mtime time.Time
}

// run is one Active period of a session. Fields marked loop-owned are
// touched only by the loop goroutine.
type run struct {
	session *Session
	root    string
	reg     *registry.Registry
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan event
	wg     sync.WaitGroup

	// writes carries project store updates to the writer goroutine so sqlite
	// never blocks the loop. Nil when the session has no store.
	writes   chan func(context.Context)
	writerWG sync.WaitGroup

	// loop-owned
	pending map[string]*pendingAdd
	gen     uint64
	holds   int
	held    []event
}

func newRun(s *Session, ctx context.Context, root string, reg *registry.Registry, watcher *fsnotify.Watcher, logger *slog.Logger) *run {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		session: s,
		root:    root,
		reg:     reg,
		watcher: watcher,
		logger:  logger,
		ctx:     runCtx,
		cancel:  cancel,
		queue:   make(chan event, s.queueSize),
		pending: make(map[string]*pendingAdd),
	}
	if s.store != nil {
		r.writes = make(chan func(context.Context), s.queueSize)
	}
	return r
}

func (r *run) start() {
	if r.writes != nil {
		r.writerWG.Add(1)
		go r.writer()
	}
	r.wg.Add(2)
	go r.pump()
	go r.loop()
}

// stop ends the loop, then lets the writer flush what the loop queued.
func (r *run) stop() {
	r.cancel()
	_ = r.watcher.Close()
	r.wg.Wait()
	if r.writes != nil {
		close(r.writes)
		r.writerWG.Wait()
	}
}

// writer applies store updates in the order the loop queued them. Writes
// outlive the run context so a stop does not drop the last batch.
func (r *run) writer() {
	defer r.writerWG.Done()
	ctx := context.WithoutCancel(r.ctx)
	for fn := range r.writes {
		fn(ctx)
	}
}

// persist queues fn for the writer. Only the loop goroutine calls it.
func (r *run) persist(fn func(ctx context.Context, store Store) error, msg string) {
	if r.writes == nil {
		return
	}
	store := r.session.store
	r.writes <- func(ctx context.Context) {
		if err := fn(ctx, store); err != nil {
			r.storeWarning(msg, err)
		}
	}
}

// post enqueues ev unless the run has ended.
func (r *run) post(ev event) bool {
	if r.ctx.Err() != nil {
		return false
	}
	select {
	case r.queue <- ev:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// do runs fn on the loop and waits for it to finish.
func (r *run) do(fn func()) error {
	done := make(chan struct{})
	if !r.post(event{kind: kindCommand, apply: fn, done: done}) {
		return services.Wrap(services.ErrNotActive, "watch", "command", "session stopped", nil)
	}
	select {
	case <-done:
		return nil
	case <-r.ctx.Done():
		select {
		case <-done:
			return nil
		default:
		}
		return services.Wrap(services.ErrNotActive, "watch", "command", "session stopped", nil)
	}
}

// pump moves backend notifications onto the ordered queue.
func (r *run) pump() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case ev, ok := <-r.watcher.Events:
			if !ok {
				r.post(event{kind: kindBackendError, err: errors.New("event stream closed")})
				return
			}
			r.post(event{kind: kindFS, op: ev.Op, path: ev.Name})
		case err, ok := <-r.watcher.Errors:
			if !ok {
				continue
			}
			r.post(event{kind: kindBackendError, err: err})
		}
	}
}

func (r *run) loop() {
	defer r.wg.Done()
	defer r.stopTimers()
	for {
		select {
		case <-r.ctx.Done():
			return
		case ev := <-r.queue:
			r.dispatch(ev)
		}
	}
}

func (r *run) dispatch(ev event) {
	switch ev.kind {
	case kindCommand:
		ev.apply()
		close(ev.done)
	case kindBackendError:
		r.handleBackendError(ev.err)
	default:
		if r.holds > 0 {
			r.held = append(r.held, ev)
			return
		}
		r.handle(ev)
	}
}

func (r *run) handle(ev event) {
	switch ev.kind {
	case kindFS:
		r.handleFS(ev)
	case kindStable:
		r.handleStable(ev.path, ev.gen)
	}
}

func (r *run) handleFS(ev event) {
	rel, ok := assets.Rel(r.root, ev.path)
	if !ok || !assets.InAssetRoot(rel) || assets.Ignored(rel) {
		return
	}
	switch {
	case ev.op.Has(fsnotify.Remove) || ev.op.Has(fsnotify.Rename):
		r.handleGone(ev.path, rel)
	case ev.op.Has(fsnotify.Create):
		info, err := os.Stat(ev.path)
		if err != nil {
			// Already gone; the matching remove event follows.
			return
		}
		if info.IsDir() {
			r.handleNewDir(ev.path)
			return
		}
		r.schedule(rel, r.session.window)
	case ev.op.Has(fsnotify.Write):
		r.schedule(rel, r.session.window)
	}
}

// schedule (re)arms the stability timer for rel. Each arm bumps the
// generation so expiries from earlier arms are recognized as stale.
func (r *run) schedule(rel string, after time.Duration) {
	p, ok := r.pending[rel]
	if !ok {
		p = &pendingAdd{}
		r.pending[rel] = p
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	r.gen++
	p.gen = r.gen
	p.size, p.mtime = statFingerprint(assets.Abs(r.root, rel))
	gen := p.gen
	p.timer = time.AfterFunc(after, func() {
		r.post(event{kind: kindStable, path: rel, gen: gen})
	})
}

func (r *run) handleStable(rel string, gen uint64) {
	p, ok := r.pending[rel]
	if !ok || p.gen != gen {
		return
	}
	abs := assets.Abs(r.root, rel)
	info, err := os.Stat(abs)
	if err != nil {
		delete(r.pending, rel)
		return
	}
	if info.Size() != p.size || !info.ModTime().Equal(p.mtime) {
		// Still changing without having raised an event; check again soon.
		r.schedule(rel, r.session.poll)
		return
	}
	delete(r.pending, rel)
	if !info.Mode().IsRegular() {
		return
	}

	candidate := assets.NewCandidate(rel)
	if candidate.LogicalType == assets.TypeUnknown && !assets.RecognizedExtension(rel) {
		r.logger.Debug("non-asset file ignored",
			logging.String(logging.FieldRelativePath, rel),
			logging.String(logging.FieldEventType, "watch_file_ignored"),
		)
		return
	}

	desc, created := r.reg.Upsert(rel, candidate)
	if !created {
		return
	}
	r.logger.Info("asset added",
		logging.String(logging.FieldRelativePath, rel),
		logging.String(logging.FieldAssetID, desc.ID),
		logging.String("category", string(desc.Category)),
		logging.String(logging.FieldEventType, "asset_added"),
	)
	r.notifyAdded(desc)
	r.saveBinding(registry.Binding{RelativePath: rel, ID: desc.ID})
}

func (r *run) handleGone(abs, rel string) {
	r.cancelPending(rel)

	if id, ok := r.reg.Remove(rel); ok {
		r.announceRemoved([]registry.Removal{{ID: id, RelativePath: rel}})
		return
	}
	// A directory left the tree: drop its watches and everything under it.
	for _, watched := range r.watcher.WatchList() {
		if watched == abs || strings.HasPrefix(watched, abs+string(filepath.Separator)) {
			_ = r.watcher.Remove(watched)
		}
	}
	r.announceRemoved(r.reg.RemovePrefix(rel))
}

func (r *run) handleNewDir(abs string) {
	files, err := addTree(r.watcher, abs)
	if err != nil {
		logging.WarnWithContext(r.logger, "watch registration failed for new folder", "watch_add_failed",
			logging.String("path", abs),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "raise fs.inotify.max_user_watches or rescan"),
			logging.String(logging.FieldImpact, "changes inside this folder may be missed"),
		)
	}
	for _, file := range files {
		rel, ok := assets.Rel(r.root, file)
		if !ok || assets.Ignored(rel) {
			continue
		}
		r.schedule(rel, r.session.window)
	}
}

func (r *run) handleBackendError(err error) {
	if r.ctx.Err() != nil {
		return
	}
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		err = errors.New("event queue overflowed; changes were missed, rescan to resync")
	}
	wrapped := services.Wrap(services.ErrWatchRuntime, "watch", "backend", "", err)
	r.session.markDegraded(r, wrapped)
	logging.ErrorWithContext(r.logger, "watch backend failed", "watch_runtime_error",
		logging.Error(wrapped),
		logging.String(logging.FieldErrorHint, "restart watching with casebook watch"),
	)
	if notifyErr := r.session.channel.Error(r.ctx, wrapped.Error()); notifyErr != nil {
		r.logger.Debug("error notification failed", logging.Error(notifyErr))
	}
}

// hold starts buffering live events; release replays them once the last
// hold ends.
func (r *run) hold() {
	r.holds++
}

func (r *run) release() {
	if r.holds > 0 {
		r.holds--
	}
	if r.holds > 0 {
		return
	}
	held := r.held
	r.held = nil
	for _, ev := range held {
		r.handle(ev)
	}
}

// applySnapshot reconciles a full scan. Paths with unsettled writes or held
// events are left alone; the replay settles them. Entries the scan could not
// read keep whatever is tracked under them.
func (r *run) applySnapshot(candidates []assets.Candidate, skipped []scanner.Skip) registry.Diff {
	preserve := r.pendingPaths()
	for _, ev := range r.held {
		if ev.kind != kindFS {
			continue
		}
		if rel, ok := assets.Rel(r.root, ev.path); ok {
			preserve = append(preserve, rel)
		}
	}

	unreadable := make([]string, 0, len(skipped))
	for _, skip := range skipped {
		unreadable = append(unreadable, skip.Path)
	}

	diff := r.reg.Reconcile(candidates, registry.Preserve(preserve...), registry.PreservePrefix(unreadable...))
	for _, d := range diff.Added {
		r.notifyAdded(d)
	}
	r.notifyRemoved(diff.Removed)
	bindings := r.reg.Bindings()
	r.persist(func(ctx context.Context, store Store) error {
		return store.ReplaceBindings(ctx, r.root, bindings)
	}, "persist bindings failed")
	r.logger.Info("reconciliation applied",
		logging.Int("added", len(diff.Added)),
		logging.Int("removed", len(diff.Removed)),
		logging.Int("preserved", len(preserve)),
		logging.Int("unreadable", len(unreadable)),
		logging.Int("tracked", r.reg.Len()),
		logging.String(logging.FieldEventType, "reconcile_applied"),
	)
	return diff
}

// announceRemoved notifies removals and drops their bindings in one write.
func (r *run) announceRemoved(removals []registry.Removal) {
	if len(removals) == 0 {
		return
	}
	r.notifyRemoved(removals)
	rels := make([]string, 0, len(removals))
	for _, rm := range removals {
		rels = append(rels, rm.RelativePath)
	}
	r.persist(func(ctx context.Context, store Store) error {
		return store.DeleteBindings(ctx, r.root, rels...)
	}, "delete bindings failed")
}

func (r *run) notifyRemoved(removals []registry.Removal) {
	for _, rm := range removals {
		r.logger.Info("asset removed",
			logging.String(logging.FieldRelativePath, rm.RelativePath),
			logging.String(logging.FieldAssetID, rm.ID),
			logging.String(logging.FieldEventType, "asset_removed"),
		)
		if err := r.session.channel.AssetRemoved(r.ctx, rm.ID); err != nil {
			r.logger.Debug("removal notification failed", logging.Error(err))
		}
	}
}

func (r *run) notifyAdded(desc assets.Descriptor) {
	if err := r.session.channel.AssetAdded(r.ctx, desc); err != nil {
		r.logger.Debug("add notification failed", logging.Error(err))
	}
}

func (r *run) saveBinding(b registry.Binding) {
	r.persist(func(ctx context.Context, store Store) error {
		return store.SaveBinding(ctx, r.root, b)
	}, "save binding failed")
}

func (r *run) storeWarning(msg string, err error) {
	logging.WarnWithContext(r.logger, msg, "project_store_write_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check disk space and permissions for state_dir"),
		logging.String(logging.FieldImpact, "asset ids may change after a daemon restart"),
	)
}

func (r *run) cancelPending(rel string) {
	prefix := rel + "/"
	for path, p := range r.pending {
		if path == rel || strings.HasPrefix(path, prefix) {
			p.timer.Stop()
			delete(r.pending, path)
		}
	}
}

func (r *run) stopTimers() {
	for path, p := range r.pending {
		p.timer.Stop()
		delete(r.pending, path)
	}
}

// pendingPaths lists paths with unsettled writes, sorted.
func (r *run) pendingPaths() []string {
	out := make([]string, 0, len(r.pending))
	for rel := range r.pending {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

func statFingerprint(path string) (int64, time.Time) {
	info, err := os.Stat(path)
	if err != nil {
		return -1, time.Time{}
	}
	return info.Size(), info.ModTime()
}
