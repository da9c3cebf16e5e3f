package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrToolUnavailable marks a missing or non-functional external binary.
	// The only error class that aborts the whole run.
	ErrToolUnavailable = errors.New("external tool unavailable")
	// ErrProbe marks a failure to extract structured metadata from a file.
	// Fatal to that file only; the batch continues.
	ErrProbe = errors.New("probe failure")
	// ErrRendition marks a single encode job failure. The rendition is
	// dropped from the result set while sibling jobs continue.
	ErrRendition = errors.New("rendition failure")
	// ErrManifest marks a failure to write the master manifest. Reported to
	// the operator but never rolls back completed renditions.
	ErrManifest = errors.New("manifest write failure")
	// ErrCleanup marks an intermediate file that could not be removed.
	// Logged only, never propagated.
	ErrCleanup = errors.New("cleanup failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrRendition
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRunFatal reports whether an error should abort the entire batch before
// (or instead of) processing further files.
func IsRunFatal(err error) bool {
	return errors.Is(err, ErrToolUnavailable)
}

// IsFileFatal reports whether an error fails the current file as a whole
// rather than a single rendition.
func IsFileFatal(err error) bool {
	return errors.Is(err, ErrProbe)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
