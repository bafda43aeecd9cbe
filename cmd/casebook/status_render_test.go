package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"casebook/internal/assets"
	"casebook/internal/daemonctl"
	"casebook/internal/ipc"
	"casebook/internal/preflight"
	"casebook/internal/watch"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestRenderStatusDegradedSession(t *testing.T) {
	snap := daemonctl.Snapshot{
		Reachable: true,
		Status: ipc.StatusResponse{
			Running: true,
			PID:     42,
			Watch: watch.Status{
				IsActive:         true,
				ProjectRoot:      "/games/turnabout",
				WatchedFileCount: 7,
				State:            watch.StateActive,
				Degraded:         true,
				LastError:        "watch backend failed",
			},
		},
		Checks: []preflight.Result{
			{Name: "State directory", Passed: true, Detail: "/state"},
			{Name: "Project root", Passed: false, Detail: "missing img/"},
		},
	}
	var buf bytes.Buffer
	renderStatus(&buf, snap, false)
	out := buf.String()
	for _, want := range []string{
		"Daemon\n------\n",
		"\n\nWatch Session\n-------------\n",
		"[OK] Running (pid 42)",
		"[ERROR] active (degraded)",
		"[INFO] 7",
		"[ERROR] watch backend failed",
		"[ERROR] missing img/",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderStatusOffline(t *testing.T) {
	var buf bytes.Buffer
	renderStatus(&buf, daemonctl.Snapshot{}, false)
	out := buf.String()
	for _, want := range []string{"[WARN] Not running", "[INFO] Unknown (daemon not running)", "Environment\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Last error") {
		t.Fatalf("offline status should not report a session error:\n%s", out)
	}
}

func TestCategoryLabel(t *testing.T) {
	tests := map[assets.Category]string{
		assets.CategoryBGM:        "BGM",
		assets.CategorySFX:        "SFX",
		assets.CategoryBackground: "Background",
		assets.CategoryVoice:      "Voice",
		"":                        "-",
	}
	for category, want := range tests {
		if got := categoryLabel(category); got != want {
			t.Fatalf("categoryLabel(%q) = %q, want %q", category, got, want)
		}
	}
}

func TestAssetRowNonAudio(t *testing.T) {
	row := assetRow(assets.Descriptor{
		ID:           "0123456789abcdef",
		RelativePath: "img/evidence/knife.png",
		DisplayName:  "knife",
		LogicalType:  assets.TypeImage,
		Category:     assets.CategoryEvidence,
	})
	if row[0] != "01234567" || row[5] != "-" || row[6] != "-" {
		t.Fatalf("unexpected row %#v", row)
	}
}
