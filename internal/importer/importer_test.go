package importer_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"casebook/internal/assets"
	"casebook/internal/importer"
	"casebook/internal/logging"
	"casebook/internal/services"
	"casebook/internal/testsupport"
)

func newImporter(t *testing.T) *importer.Importer {
	t.Helper()
	return importer.New(testsupport.NewConfig(t), logging.NewNop())
}

func TestImportBatchContinuesOnError(t *testing.T) {
	im := newImporter(t)
	src := t.TempDir()
	root := testsupport.NewProject(t)

	first := filepath.Join(src, "forest.png")
	missing := filepath.Join(src, "missing.png")
	third := filepath.Join(src, "judge.png")
	testsupport.WriteFile(t, first, 32)
	testsupport.WriteFile(t, third, 32)

	result, err := im.ImportBatch(context.Background(), []importer.File{
		{SourcePath: first, CategoryHint: "background"},
		{SourcePath: missing, CategoryHint: "background"},
		{SourcePath: third, CategoryHint: "characters"},
	}, root)
	if err != nil {
		t.Fatalf("ImportBatch: %v", err)
	}
	if result.Copied != 2 || result.Errors != 1 {
		t.Fatalf("expected 2 copied and 1 error, got %+v", result)
	}
	var failures []importer.Detail
	for _, d := range result.Details {
		if !d.Success {
			failures = append(failures, d)
		}
	}
	if len(failures) != 1 || failures[0].File != missing || failures[0].Error == "" {
		t.Fatalf("expected one failure for the missing file, got %+v", failures)
	}
	if failures[0].ErrorKind != "file_io" {
		t.Fatalf("expected file_io kind, got %q", failures[0].ErrorKind)
	}
	if _, err := os.Stat(filepath.Join(root, "img", "characters", "judge.png")); err != nil {
		t.Fatalf("third file not copied after earlier failure: %v", err)
	}
}

func TestImportBatchCreatesMissingFolder(t *testing.T) {
	im := newImporter(t)
	src := t.TempDir()
	root := filepath.Join(t.TempDir(), "fresh")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}

	var files []importer.File
	for i := 0; i < 5; i++ {
		p := filepath.Join(src, fmt.Sprintf("hit%d.wav", i))
		testsupport.WriteFile(t, p, 1024)
		files = append(files, importer.File{SourcePath: p, CategoryHint: "sfx"})
	}

	result, err := im.ImportBatch(context.Background(), files, root)
	if err != nil {
		t.Fatalf("ImportBatch: %v", err)
	}
	if result.Copied != 5 || result.Errors != 0 {
		t.Fatalf("expected 5 copies, got %+v", result)
	}
	for i, d := range result.Details {
		if !d.Success || d.Category != assets.CategorySFX {
			t.Fatalf("detail %d: %+v", i, d)
		}
		if d.File != files[i].SourcePath {
			t.Fatalf("details out of request order at %d", i)
		}
	}
	entries, err := os.ReadDir(filepath.Join(root, "audio", "sfx"))
	if err != nil {
		t.Fatalf("audio/sfx not created: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 files and no temp leftovers, got %d entries", len(entries))
	}
}

func TestImportBatchMissingRoot(t *testing.T) {
	im := newImporter(t)
	_, err := im.ImportBatch(context.Background(), nil, filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, services.ErrProjectRootNotFound) {
		t.Fatalf("expected ErrProjectRootNotFound, got %v", err)
	}
}

func TestImportBatchDuplicateDestination(t *testing.T) {
	im := newImporter(t)
	root := testsupport.NewProject(t)
	a := filepath.Join(t.TempDir(), "theme.mp3")
	b := filepath.Join(t.TempDir(), "theme.mp3")
	testsupport.WriteFile(t, a, 8)
	testsupport.WriteFile(t, b, 8)

	result, err := im.ImportBatch(context.Background(), []importer.File{
		{SourcePath: a, CategoryHint: "bgm"},
		{SourcePath: b, CategoryHint: "bgm"},
	}, root)
	if err != nil {
		t.Fatalf("ImportBatch: %v", err)
	}
	if result.Copied != 1 || result.Errors != 1 || !result.Details[0].Success {
		t.Fatalf("expected the second duplicate to fail, got %+v", result)
	}
}

func TestImportBatchRespectsOverwrite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Import.OverwriteExisting = false
	im := importer.New(cfg, logging.NewNop())
	root := testsupport.NewProject(t)
	existing := filepath.Join(root, "img", "ui", "button.png")
	testsupport.WriteFile(t, existing, 4)
	src := filepath.Join(t.TempDir(), "button.png")
	testsupport.WriteFile(t, src, 64)

	result, err := im.ImportBatch(context.Background(), []importer.File{{SourcePath: src}}, root)
	if err != nil {
		t.Fatalf("ImportBatch: %v", err)
	}
	if result.Errors != 1 {
		t.Fatalf("expected overwrite refusal, got %+v", result)
	}
	info, _ := os.Stat(existing)
	if info.Size() != 4 {
		t.Fatalf("existing file was modified, size %d", info.Size())
	}
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name     string
		file     importer.File
		category assets.Category
		folder   string
		wantErr  error
	}{
		{"hint wins", importer.File{SourcePath: "/tmp/a.png", CategoryHint: "evidence"}, assets.CategoryEvidence, "img/evidence", nil},
		{"plural hint", importer.File{SourcePath: "/tmp/a.ogg", CategoryHint: "voices"}, assets.CategoryVoice, "audio/voices", nil},
		{"template layout", importer.File{SourcePath: "/templates/starter/img/backgrounds/court.jpg"}, assets.CategoryBackground, "img/backgrounds", nil},
		{"template layout mixed case", importer.File{SourcePath: "/templates/Audio/BGM/cross.mp3"}, assets.CategoryBGM, "audio/bgm", nil},
		{"image by extension", importer.File{SourcePath: "/downloads/logo.webp"}, assets.CategoryOther, "img/ui", nil},
		{"audio by extension", importer.File{SourcePath: "/downloads/gavel.wav"}, assets.CategoryOther, "audio/sfx", nil},
		{"unknown type", importer.File{SourcePath: "/downloads/readme.txt"}, assets.CategoryOther, "", services.ErrInvalidCategory},
		{"bad hint", importer.File{SourcePath: "/tmp/a.png", CategoryHint: "scenery"}, "", "", services.ErrInvalidCategory},
		{"empty path", importer.File{}, "", "", services.ErrValidation},
		{"temp file", importer.File{SourcePath: "/tmp/a.png.part"}, "", "", services.ErrValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			category, folder, err := importer.Route(tc.file)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if category != tc.category || folder != tc.folder {
				t.Fatalf("got (%s, %s), want (%s, %s)", category, folder, tc.category, tc.folder)
			}
		})
	}
}
