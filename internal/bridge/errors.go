package bridge

import (
	"errors"
	"fmt"
)

// Kind classifies a bridge failure so callers can branch on the failure mode
// without parsing diagnostic text.
type Kind string

const (
	// KindSyntax marks a malformed request string or missing parameter.
	KindSyntax Kind = "syntax"
	// KindDriverName marks a converter-driver identifier that failed the
	// charset check. Always reported before any process is spawned.
	KindDriverName Kind = "driver_name"
	// KindSourceUnreadable marks a regular source file that could not be
	// opened for piping.
	KindSourceUnreadable Kind = "source_unreadable"
	// KindConversion marks a converter failure other than the piped-input
	// refusal; the converter's diagnostic is carried verbatim.
	KindConversion Kind = "conversion"
	// KindRequiresRealFile marks a piped-input refusal against a source that
	// does not exist on real storage, so no direct retry is possible.
	KindRequiresRealFile Kind = "requires_real_file"
	// KindEmptyResult marks a successful conversion that produced no
	// non-empty requested layer.
	KindEmptyResult Kind = "empty_result"
	// KindDeviceBusy marks a special source already locked by another
	// conversion.
	KindDeviceBusy Kind = "device_busy"
)

// Error is a classified bridge failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind returns the classification as a string, mirroring the
// self-classifying error convention used across the codebase.
func (e *Error) ErrorKind() string { return string(e.Kind) }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the failure kind from err, or "" when err carries none.
func KindOf(err error) Kind {
	var bridgeErr *Error
	if errors.As(err, &bridgeErr) {
		return bridgeErr.Kind
	}
	return ""
}
