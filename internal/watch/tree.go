package watch

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// addTree registers dir and every non-hidden directory below it with the
// watcher and returns the files already present. A missing dir is not an
// error. Unreadable subdirectories are skipped; the first registration
// failure is returned after the walk completes.
func addTree(watcher *fsnotify.Watcher, dir string) ([]string, error) {
	var (
		files    []string
		firstErr error
	)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == dir && errors.Is(walkErr, fs.ErrNotExist) {
				return fs.SkipAll
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			files = append(files, path)
			return nil
		}
		if err := watcher.Add(path); err != nil && firstErr == nil {
			firstErr = err
		}
		return nil
	})
	if err != nil && firstErr == nil {
		firstErr = err
	}
	return files, firstErr
}
