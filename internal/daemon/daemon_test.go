package daemon_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"casebook/internal/config"
	"casebook/internal/daemon"
	"casebook/internal/importer"
	"casebook/internal/logging"
	"casebook/internal/notifications"
	"casebook/internal/projectstore"
	"casebook/internal/services"
	"casebook/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store, err := projectstore.Open(cfg)
	if err != nil {
		t.Fatalf("projectstore.Open: %v", err)
	}
	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	return d
}

func waitForEvent(t *testing.T, d *daemon.Daemon, typ notifications.EventType) notifications.Event {
	t.Helper()
	var since uint64
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		events, next, err := d.Events(context.Background(), since, 0, 200*time.Millisecond)
		if err != nil {
			t.Fatalf("Events: %v", err)
		}
		for _, evt := range events {
			if evt.Type == typ {
				return evt
			}
		}
		since = next
	}
	t.Fatalf("no %s event observed", typ)
	return notifications.Event{}
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.Watch.IsActive {
		t.Fatal("expected no watch session without a default project")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonLockRefusesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected second instance to be refused")
	}
	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
}

func TestDaemonWatchesDefaultProject(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDefaultProject())
	d := newDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	status := d.Status().Watch
	if !status.IsActive || status.ProjectRoot != cfg.Paths.DefaultProject {
		t.Fatalf("expected default project watched, got %+v", status)
	}

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DefaultProject, "img", "evidence", "badge.png"), 64)
	evt := waitForEvent(t, d, notifications.EventAssetAdded)
	if evt.Asset == nil || evt.Asset.RelativePath != "img/evidence/badge.png" {
		t.Fatalf("unexpected added event %+v", evt)
	}
	if evt.ProjectRoot != cfg.Paths.DefaultProject || evt.SessionID != status.SessionID {
		t.Fatalf("event missing session context: %+v", evt)
	}
	if _, ok := d.Asset("img/evidence/badge.png"); !ok {
		t.Fatal("expected asset to be tracked")
	}
}

func TestDaemonMissingDefaultProjectStaysUp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.DefaultProject = filepath.Join(testsupport.BaseDir(cfg), "missing")
	d := newDaemon(t, cfg)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := d.Status()
	if !status.Running || status.Watch.IsActive {
		t.Fatalf("expected running daemon with idle session, got %+v", status)
	}
	evt := waitForEvent(t, d, notifications.EventError)
	if evt.Message == "" {
		t.Fatal("expected error message")
	}
}

func TestDaemonWatchRequiresRunning(t *testing.T) {
	d := newDaemon(t, testsupport.NewConfig(t))
	if _, err := d.WatchProject(context.Background(), testsupport.NewProject(t)); !errors.Is(err, daemon.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestDaemonImportIntoWatchedProject(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := d.Import(ctx, nil, ""); !errors.Is(err, services.ErrNotActive) {
		t.Fatalf("expected ErrNotActive without a project, got %v", err)
	}

	root := testsupport.NewProject(t)
	if _, err := d.WatchProject(ctx, root); err != nil {
		t.Fatalf("WatchProject: %v", err)
	}

	src := filepath.Join(t.TempDir(), "objection.ogg")
	testsupport.WriteFile(t, src, 2048)
	result, err := d.Import(ctx, []importer.File{{SourcePath: src, CategoryHint: "sfx"}}, "")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Copied != 1 || result.Errors != 0 {
		t.Fatalf("unexpected import result %+v", result)
	}

	evt := waitForEvent(t, d, notifications.EventAssetAdded)
	if evt.Asset == nil || evt.Asset.RelativePath != "audio/sfx/objection.ogg" {
		t.Fatalf("unexpected added event %+v", evt)
	}

	stopped := d.StopWatching()
	if stopped.IsActive || len(d.Assets()) != 0 {
		t.Fatalf("expected idle session after StopWatching, got %+v", stopped)
	}
}

func TestDaemonTestNotificationWithoutNtfy(t *testing.T) {
	d := newDaemon(t, testsupport.NewConfig(t))
	sent, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if sent || message == "" {
		t.Fatalf("expected unsent notice, got sent=%v message=%q", sent, message)
	}
	events, _, _ := d.Events(context.Background(), 0, 0, 0)
	if len(events) != 1 || events[0].Type != notifications.EventTest {
		t.Fatalf("expected one test event, got %+v", events)
	}
}

func TestDaemonProjectsListsWatchedRoots(t *testing.T) {
	d := newDaemon(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	root := testsupport.NewProject(t)
	if _, err := d.WatchProject(ctx, root); err != nil {
		t.Fatalf("WatchProject: %v", err)
	}
	projects, err := d.Projects(ctx)
	if err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if len(projects) != 1 || projects[0].Root != root {
		t.Fatalf("unexpected projects %+v", projects)
	}
}
