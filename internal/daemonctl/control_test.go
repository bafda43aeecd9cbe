package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"casebook/internal/daemonctl"
	"casebook/internal/testsupport"
)

func TestProcessInfoWithoutDaemon(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "casebook.sock")
	alive, pid, err := daemonctl.ProcessInfo(socket)
	if err != nil || alive || pid != 0 {
		t.Fatalf("expected unreachable daemon, got alive=%v pid=%d err=%v", alive, pid, err)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := daemonctl.StopAndTerminate(cfg.SocketPath(), cfg, 100*time.Millisecond)
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestForceKillRefusesSelf(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "casebook.pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := daemonctl.ForceKillProcess(pidPath, 0); err == nil {
		t.Fatal("expected refusal to kill the current process")
	}
}

func TestForceKillWithoutPID(t *testing.T) {
	if _, err := daemonctl.ForceKillProcess(filepath.Join(t.TempDir(), "missing.pid"), 0); err == nil {
		t.Fatal("expected error without a pid")
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDefaultProject())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	snap, err := daemonctl.BuildStatusSnapshot(context.Background(), cfg.SocketPath(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snap.Reachable {
		t.Fatal("expected daemon to be unreachable")
	}
	if len(snap.Checks) < 3 {
		t.Fatalf("expected directory and project checks, got %+v", snap.Checks)
	}
	for _, check := range snap.Checks[:3] {
		if !check.Passed {
			t.Fatalf("expected %s to pass: %s", check.Name, check.Detail)
		}
	}
}
