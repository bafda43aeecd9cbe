// Package fileutil holds the file copy primitives used by bulk import.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrDestinationExists is returned by CopyAtomic when dst already exists and
// overwrite is disabled.
var ErrDestinationExists = errors.New("destination already exists")

// CopyOptions tunes CopyAtomic.
type CopyOptions struct {
	// Verify compares SHA256 digests and sizes of source and copy.
	Verify bool
	// Overwrite replaces an existing destination. When false an existing
	// destination fails with ErrDestinationExists.
	Overwrite bool
	// Mode is applied to the destination. Zero means 0o644.
	Mode os.FileMode
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// CopyFileVerified streams src to dst with SHA256 + size integrity verification.
// Removes dst on mismatch.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcInfo.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

// TempName returns the hidden sibling path CopyAtomic stages a copy of dst
// into. Watchers ignore it because the name is dot-prefixed and ends in .part.
func TempName(dst string) string {
	dir, base := filepath.Split(dst)
	return filepath.Join(dir, "."+strings.TrimPrefix(base, ".")+".part")
}

// CopyAtomic copies src to dst by writing a temporary sibling and renaming it
// into place, so observers never see a partially written dst.
func CopyAtomic(src, dst string, opts CopyOptions) error {
	if !opts.Overwrite {
		if _, err := os.Lstat(dst); err == nil {
			return fmt.Errorf("%s: %w", dst, ErrDestinationExists)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat destination: %w", err)
		}
	}

	mode := opts.Mode
	if mode == 0 {
		mode = 0o644
	}
	tmp := TempName(dst)
	var err error
	if opts.Verify {
		err = CopyFileVerified(src, tmp)
	} else {
		err = CopyFileMode(src, tmp, mode)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, mode); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("chmod staged copy: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
