package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"casebook/internal/assets"
	"casebook/internal/logging"
	"casebook/internal/services"
)

// Skip records an entry the walk could not read.
type Skip struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Result is a best-effort snapshot of a project's asset folders.
type Result struct {
	Candidates []assets.Candidate `json:"candidates"`
	Skipped    []Skip             `json:"skipped,omitempty"`
}

// Scanner walks asset roots and classifies every regular file it finds.
type Scanner struct {
	logger *slog.Logger
}

// New constructs a scanner that logs skipped entries to logger.
func New(logger *slog.Logger) *Scanner {
	return &Scanner{logger: logging.NewComponentLogger(logger, "scanner")}
}

// Scan walks img/ and audio/ under projectRoot. Unreadable directories and
// files are logged and skipped; only a missing project root or a cancelled
// context fails the scan. Missing asset roots simply contribute nothing.
// Candidates are sorted by relative path.
func (s *Scanner) Scan(ctx context.Context, projectRoot string) (Result, error) {
	info, err := os.Stat(projectRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, services.Wrap(services.ErrProjectRootNotFound, "scanner", "scan", projectRoot, nil)
		}
		return Result{}, services.Wrap(services.ErrPerFileIO, "scanner", "stat project root", projectRoot, err)
	}
	if !info.IsDir() {
		return Result{}, services.Wrap(services.ErrProjectRootNotFound, "scanner", "scan", fmt.Sprintf("%s is not a directory", projectRoot), nil)
	}

	var (
		mu     sync.Mutex
		result Result
	)
	group, gctx := errgroup.WithContext(ctx)
	for _, root := range assets.Roots() {
		root := root
		group.Go(func() error {
			cands, skipped, err := s.walkRoot(gctx, projectRoot, root)
			mu.Lock()
			result.Candidates = append(result.Candidates, cands...)
			result.Skipped = append(result.Skipped, skipped...)
			mu.Unlock()
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return Result{}, err
	}

	sort.Slice(result.Candidates, func(i, j int) bool {
		return result.Candidates[i].RelativePath < result.Candidates[j].RelativePath
	})
	sort.Slice(result.Skipped, func(i, j int) bool { return result.Skipped[i].Path < result.Skipped[j].Path })

	s.logger.Debug("scan complete",
		logging.String(logging.FieldProjectRoot, projectRoot),
		logging.Int("candidates", len(result.Candidates)),
		logging.Int("skipped", len(result.Skipped)),
		logging.String(logging.FieldEventType, "scan_complete"),
	)
	return result, nil
}

func (s *Scanner) walkRoot(ctx context.Context, projectRoot, root string) ([]assets.Candidate, []Skip, error) {
	base := filepath.Join(projectRoot, root)
	if _, err := os.Lstat(base); errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}

	var (
		cands   []assets.Candidate
		skipped []Skip
	)
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, ok := assets.Rel(projectRoot, path)
		if !ok {
			return nil
		}
		if walkErr != nil {
			skipped = append(skipped, s.skip(rel, walkErr))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if assets.Ignored(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			// Symlinks and devices are not assets; a symlinked file is
			// followed only if it resolves to a regular file.
			info, err := os.Stat(path)
			if err != nil {
				skipped = append(skipped, s.skip(rel, err))
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
		}
		if err := readable(path); err != nil {
			skipped = append(skipped, s.skip(rel, err))
			return nil
		}
		cands = append(cands, assets.NewCandidate(rel))
		return nil
	})
	if err != nil && !errors.Is(err, fs.SkipDir) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cands, skipped, ctxErr
		}
		skipped = append(skipped, s.skip(root, err))
	}
	return cands, skipped, nil
}

func (s *Scanner) skip(rel string, err error) Skip {
	logging.WarnWithContext(s.logger, "scan entry skipped", "scan_entry_skipped",
		logging.String(logging.FieldRelativePath, rel),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check file permissions under the project asset folders"),
		logging.String(logging.FieldImpact, "entry is not tracked until the next scan"),
	)
	return Skip{Path: rel, Error: err.Error()}
}

func readable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
