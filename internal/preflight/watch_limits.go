package preflight

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"casebook/internal/assets"
)

// inotifyWatchesPath is a variable so tests can point it at a fixture.
var inotifyWatchesPath = "/proc/sys/fs/inotify/max_user_watches"

// CheckWatchCapacity compares the number of directories a watch session would
// register under root with the kernel's per-user inotify watch limit.
// Platforms without the limit file pass with an informational detail.
func CheckWatchCapacity(root string) Result {
	const name = "Watch capacity"

	limit, ok := readWatchLimit()
	dirs := countAssetDirs(root)
	if !ok {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d directories (limit unknown)", dirs)}
	}
	if dirs > limit {
		return Result{Name: name, Detail: fmt.Sprintf("%d directories exceed max_user_watches=%d", dirs, limit)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d of %d watches", dirs, limit)}
}

func readWatchLimit() (int, bool) {
	data, err := os.ReadFile(inotifyWatchesPath)
	if err != nil {
		return 0, false
	}
	limit, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || limit <= 0 {
		return 0, false
	}
	return limit, true
}

func countAssetDirs(root string) int {
	count := 0
	for _, top := range assets.Roots() {
		_ = filepath.WalkDir(filepath.Join(root, top), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				count++
			}
			return nil
		})
	}
	return count
}
