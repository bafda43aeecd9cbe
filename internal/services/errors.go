package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProjectRootNotFound marks a watch or import target that does not exist.
	ErrProjectRootNotFound = errors.New("project root not found")
	// ErrWatchInit marks a filesystem watch backend that could not be set up.
	ErrWatchInit = errors.New("watch init error")
	// ErrWatchRuntime marks a watch backend failure after the session went active.
	ErrWatchRuntime = errors.New("watch runtime error")
	// ErrPerFileIO marks a single unreadable or uncopiable file.
	ErrPerFileIO = errors.New("file io error")
	// ErrInvalidCategory marks an unknown category hint.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrNotActive marks an operation that needs an active watch session.
	ErrNotActive = errors.New("watch session not active")

	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrPerFileIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short machine-readable label for the marker carried by err.
// It is used on the wire and in status output so clients can branch without
// parsing messages.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProjectRootNotFound):
		return "project_root_not_found"
	case errors.Is(err, ErrWatchInit):
		return "watch_init"
	case errors.Is(err, ErrWatchRuntime):
		return "watch_runtime"
	case errors.Is(err, ErrPerFileIO):
		return "file_io"
	case errors.Is(err, ErrInvalidCategory):
		return "invalid_category"
	case errors.Is(err, ErrNotActive):
		return "not_active"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "asset sync failure"
	}
	return strings.Join(parts, ": ")
}
