package logs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// TailOptions selects what to read. A negative Offset means "the last Limit
// lines"; otherwise reading starts at Offset. With Follow and a positive
// Wait, Tail blocks up to Wait for at least one new line.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult holds complete lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

const maxLineBytes = 1024 * 1024

// Tail reads complete lines from the log at path. A trailing line without a
// newline is left for the next call so followers never see half a record.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	var result TailResult
	if opts.Offset < 0 {
		result, err = lastLines(path, opts.Limit)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// Rotated or truncated underneath us: resume at the new end.
			offset = info.Size()
		}
		result, err = readFrom(path, offset)
	}
	if err != nil {
		return result, err
	}
	if len(result.Lines) > 0 || !opts.Follow || opts.Wait <= 0 {
		return result, nil
	}
	return follow(ctx, path, result.Offset, opts.Wait)
}

func lastLines(path string, limit int) (TailResult, error) {
	full, err := readFrom(path, 0)
	if err != nil {
		return full, err
	}
	if limit <= 0 {
		full.Lines = nil
		return full, nil
	}
	if len(full.Lines) > limit {
		full.Lines = full.Lines[len(full.Lines)-limit:]
	}
	return full, nil
}

func readFrom(path string, offset int64) (TailResult, error) {
	result := TailResult{Offset: offset}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return result, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return result, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			result.Offset += int64(len(line))
			result.Lines = append(result.Lines, string(bytes.TrimRight(line, "\r\n")))
		} else if len(line) > maxLineBytes {
			// An unterminated giant line would otherwise stall followers forever.
			result.Offset += int64(len(line))
			result.Lines = append(result.Lines, string(line))
		}
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			return result, fmt.Errorf("read log file: %w", err)
		}
	}
}

// follow waits for writes to path using fsnotify and returns as soon as at
// least one complete line follows offset or wait elapses.
func follow(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("watch log file: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("watch log file: %w", err)
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		// Re-read before blocking: a write may land between the caller's read
		// and watcher registration.
		result, err := readFrom(path, offset)
		if err != nil || len(result.Lines) > 0 {
			return result, err
		}
		select {
		case <-ctx.Done():
			return TailResult{Offset: offset}, ctx.Err()
		case <-timer.C:
			return TailResult{Offset: offset}, nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return TailResult{Offset: offset}, nil
			}
			if evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename) {
				return TailResult{Offset: offset}, nil
			}
		case err, ok := <-watcher.Errors:
			if ok && err != nil {
				return TailResult{Offset: offset}, fmt.Errorf("watch log file: %w", err)
			}
		}
	}
}
