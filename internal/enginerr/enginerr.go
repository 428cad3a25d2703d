// Package enginerr defines the engine's error taxonomy (see spec §7):
// validation, corrupt-record, I/O, cancellation, and invariant-violation
// errors, each checkable via errors.Is against its sentinel.
package enginerr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad input shape, unsupported extension, missing
	// file, id format mismatch, or out-of-range page/limit. Never retried.
	ErrValidation = errors.New("validation error")
	// ErrCorruptRecord marks a parser-level single-record decode failure.
	// It never fails the containing job; callers count it as a warning.
	ErrCorruptRecord = errors.New("corrupt record")
	// ErrIO marks a read/write failure against a source or index file.
	ErrIO = errors.New("i/o error")
	// ErrCancelled marks a user-initiated cancellation. Terminal, no error
	// payload is surfaced to the caller for this case.
	ErrCancelled = errors.New("cancelled")
	// ErrInvariant marks a catalog/position-table/index inconsistency; the
	// file-id must be treated as stale and purged.
	ErrInvariant = errors.New("invariant violation")
)

// Validation wraps a formatted message under ErrValidation.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// IO wraps a formatted message under ErrIO.
func IO(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrIO)
}

// Invariant wraps a formatted message under ErrInvariant.
func Invariant(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvariant)
}

// Payload renders err into the request API's {error: "..."} shape,
// prefixing validation errors with "Validation error: " per spec §6.
func Payload(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrValidation) {
		return "Validation error: " + stripSentinelSuffix(err)
	}
	return stripSentinelSuffix(err)
}

// stripSentinelSuffix drops the wrapped sentinel's own text from the message
// tail (it was appended by %w purely so errors.Is still matches), leaving
// only the caller-supplied detail.
func stripSentinelSuffix(err error) string {
	msg := err.Error()
	for _, suffix := range []string{
		": " + ErrValidation.Error(),
		": " + ErrCorruptRecord.Error(),
		": " + ErrIO.Error(),
		": " + ErrCancelled.Error(),
		": " + ErrInvariant.Error(),
	} {
		if len(msg) > len(suffix) && msg[len(msg)-len(suffix):] == suffix {
			return msg[:len(msg)-len(suffix)]
		}
	}
	return msg
}
