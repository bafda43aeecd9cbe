package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"casebook/internal/assets"
	"casebook/internal/config"
	"casebook/internal/fileutil"
	"casebook/internal/logging"
	"casebook/internal/services"
)

// File is one import request.
type File struct {
	SourcePath   string `json:"source_path"`
	CategoryHint string `json:"category_hint,omitempty"`
}

// Detail records the outcome for one requested file.
type Detail struct {
	File        string          `json:"file"`
	Category    assets.Category `json:"category,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Success     bool            `json:"success"`
	Error       string          `json:"error,omitempty"`
	ErrorKind   string          `json:"error_kind,omitempty"`
}

// Result summarizes a batch. Details are in request order.
type Result struct {
	Copied  int      `json:"copied"`
	Errors  int      `json:"errors"`
	Details []Detail `json:"details"`
}

// Importer copies files into project asset folders.
type Importer struct {
	verify      bool
	overwrite   bool
	parallelism int
	logger      *slog.Logger
}

// New builds an importer from the [import] config section.
func New(cfg *config.Config, logger *slog.Logger) *Importer {
	parallelism := cfg.Import.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Importer{
		verify:      cfg.Import.VerifyCopies,
		overwrite:   cfg.Import.OverwriteExisting,
		parallelism: parallelism,
		logger:      logging.NewComponentLogger(logger, "importer"),
	}
}

type plan struct {
	index    int
	file     File
	category assets.Category
	folder   string
	dest     string
	err      error
}

// ImportBatch copies files into projectRoot. Only a missing project root
// fails the whole call; every other problem is recorded in the file's Detail
// and processing continues. Earlier copies are never rolled back.
func (im *Importer) ImportBatch(ctx context.Context, files []File, projectRoot string) (Result, error) {
	info, err := os.Stat(projectRoot)
	if err != nil || !info.IsDir() {
		return Result{}, services.Wrap(services.ErrProjectRootNotFound, "importer", "import batch", projectRoot, nil)
	}
	ctx = services.WithProjectRoot(ctx, projectRoot)
	logger := logging.WithContext(ctx, im.logger)

	plans := im.planAll(files, projectRoot)
	details := make([]Detail, len(plans))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(im.parallelism)
	for _, p := range plans {
		p := p
		group.Go(func() error {
			details[p.index] = im.execute(gctx, p)
			return nil
		})
	}
	_ = group.Wait()

	result := Result{Details: details}
	for _, d := range details {
		if d.Success {
			result.Copied++
			continue
		}
		result.Errors++
		logging.WarnWithContext(logger, "import failed for file", "import_file_failed",
			logging.String("file", d.File),
			logging.String("error", d.Error),
			logging.String(logging.FieldErrorHint, "check the source file exists and is readable"),
			logging.String(logging.FieldImpact, "file not added to the project"),
		)
	}
	logger.Info("import batch complete",
		logging.Int("requested", len(files)),
		logging.Int("copied", result.Copied),
		logging.Int("errors", result.Errors),
		logging.String(logging.FieldEventType, "import_complete"),
	)
	return result, nil
}

// planAll resolves every destination up front so two requests that would
// land on the same file are caught before any copy starts.
func (im *Importer) planAll(files []File, projectRoot string) []plan {
	plans := make([]plan, len(files))
	claimed := make(map[string]int, len(files))
	for i, f := range files {
		p := plan{index: i, file: f}
		p.category, p.folder, p.err = Route(f)
		if p.err == nil {
			p.dest = filepath.Join(projectRoot, filepath.FromSlash(p.folder), filepath.Base(f.SourcePath))
			if first, dup := claimed[p.dest]; dup {
				p.err = services.Wrap(services.ErrValidation, "importer", "plan", fmt.Sprintf("same destination as file %d", first+1), nil)
			} else {
				claimed[p.dest] = i
			}
		}
		plans[i] = p
	}
	return plans
}

func (im *Importer) execute(ctx context.Context, p plan) Detail {
	detail := Detail{File: p.file.SourcePath, Category: p.category}
	fail := func(err error) Detail {
		detail.Error = err.Error()
		detail.ErrorKind = services.Kind(err)
		return detail
	}
	if p.err != nil {
		return fail(p.err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	detail.Destination = p.dest

	info, err := os.Stat(p.file.SourcePath)
	if err != nil {
		return fail(services.Wrap(services.ErrPerFileIO, "importer", "stat source", "", err))
	}
	if !info.Mode().IsRegular() {
		return fail(services.Wrap(services.ErrPerFileIO, "importer", "stat source", "not a regular file", nil))
	}
	if err := os.MkdirAll(filepath.Dir(p.dest), 0o755); err != nil {
		return fail(services.Wrap(services.ErrPerFileIO, "importer", "create folder", p.folder, err))
	}
	opts := fileutil.CopyOptions{Verify: im.verify, Overwrite: im.overwrite}
	if err := fileutil.CopyAtomic(p.file.SourcePath, p.dest, opts); err != nil {
		return fail(services.Wrap(services.ErrPerFileIO, "importer", "copy", "", err))
	}
	detail.Success = true
	return detail
}

// Route resolves the category and project folder for f. A hint wins; without
// one the source path is classified, using any img/ or audio/ component in it
// so files picked from another project's layout keep their category.
func Route(f File) (assets.Category, string, error) {
	name := filepath.Base(f.SourcePath)
	if strings.TrimSpace(f.SourcePath) == "" || name == "." || name == string(filepath.Separator) {
		return "", "", services.Wrap(services.ErrValidation, "importer", "route", "empty source path", nil)
	}
	if assets.Ignored(name) {
		return "", "", services.Wrap(services.ErrValidation, "importer", "route", "hidden or temporary file", nil)
	}

	if hint := strings.TrimSpace(f.CategoryHint); hint != "" {
		category, ok := assets.ParseCategory(hint)
		if !ok {
			return "", "", services.Wrap(services.ErrInvalidCategory, "importer", "route", hint, nil)
		}
		folder, ok := assets.FolderFor(assets.TypeByExtension(name), category)
		if !ok {
			return category, "", services.Wrap(services.ErrInvalidCategory, "importer", "route", fmt.Sprintf("no folder for %s with category %s", name, category), nil)
		}
		return category, folder, nil
	}

	logical, category := assets.Classify(layoutSuffix(f.SourcePath))
	folder, ok := assets.FolderFor(logical, category)
	if !ok {
		return category, "", services.Wrap(services.ErrInvalidCategory, "importer", "route", "unrecognized file type "+path.Ext(name), nil)
	}
	return category, folder, nil
}

// layoutSuffix returns the part of source starting at its last img/ or
// audio/ component, or just the base name when there is none.
func layoutSuffix(source string) string {
	parts := strings.Split(filepath.ToSlash(source), "/")
	for i := len(parts) - 2; i >= 0; i-- {
		if assets.InAssetRoot(strings.ToLower(parts[i])) {
			return strings.Join(parts[i:], "/")
		}
	}
	return parts[len(parts)-1]
}
