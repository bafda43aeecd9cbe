package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// NewProject creates an empty project directory with the standard asset
// layout and returns its path.
func NewProject(t testing.TB) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "project")
	NewProjectAt(t, root)
	return root
}

// NewProjectAt creates the standard asset layout under root.
func NewProjectAt(t testing.TB, root string) {
	t.Helper()
	for _, dir := range []string{
		"img/backgrounds", "img/characters", "img/profiles", "img/evidence", "img/effects", "img/ui",
		"audio/bgm", "audio/sfx", "audio/voices",
	} {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
}

// WriteGradually writes chunks of 4 KiB to path, pausing between chunks to
// simulate a slow writer such as a download or an export.
func WriteGradually(t testing.TB, path string, chunks int, pause time.Duration) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	chunk := make([]byte, 4096)
	for i := range chunk {
		chunk[i] = byte(i)
	}
	for i := 0; i < chunks; i++ {
		if _, err := f.Write(chunk); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		if err := f.Sync(); err != nil {
			t.Fatalf("sync %s: %v", path, err)
		}
		time.Sleep(pause)
	}
}

// Eventually polls cond until it returns true or timeout elapses.
func Eventually(t testing.TB, timeout time.Duration, cond func() bool, format string, args ...any) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	if cond() {
		return
	}
	t.Fatalf(format, args...)
}
