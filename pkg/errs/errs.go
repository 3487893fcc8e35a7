// Package errs defines the error taxonomy that strata's backend, repository
// and CLI layers dispatch on: whether a failure should be retried, reported
// to the user as a input mistake, or treated as unrecoverable repository
// damage.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into one of the categories a caller can act on.
type Kind string

const (
	// KindBadPassword means the supplied password or key file failed to
	// open any key object in the repository.
	KindBadPassword Kind = "bad_password"
	// KindCorruptRepository means on-disk data failed an integrity check:
	// a hash mismatch, a truncated pack, a manifest that doesn't parse.
	KindCorruptRepository Kind = "corrupt_repository"
	// KindBackendUnavailable means a transient failure talking to the
	// backend (network blip, SFTP connection drop) that a retry may heal.
	KindBackendUnavailable Kind = "backend_unavailable"
	// KindRepositoryLocked means another process holds a live lock.
	KindRepositoryLocked Kind = "repository_locked"
	// KindInput means the user supplied something invalid: a bad snapshot
	// id, a nonexistent path, a malformed flag combination.
	KindInput Kind = "input"
	// KindFatal means the process cannot continue; no retry or guidance
	// applies.
	KindFatal Kind = "fatal"
)

// Error is a typed strata error. It wraps an underlying cause so
// errors.Is/errors.As chains through to it.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, errs.New(errs.KindBadPassword, "", nil)) or, more
// idiomatically, use the Is* helpers below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an Error of the given kind.
func New(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

func BadPassword(msg string, cause error) *Error {
	return New(KindBadPassword, msg, cause)
}

func CorruptRepository(msg string, cause error) *Error {
	return New(KindCorruptRepository, msg, cause)
}

func BackendUnavailable(msg string, cause error) *Error {
	return New(KindBackendUnavailable, msg, cause)
}

func RepositoryLocked(msg string, cause error) *Error {
	return New(KindRepositoryLocked, msg, cause)
}

func Input(msg string, cause error) *Error {
	return New(KindInput, msg, cause)
}

func Fatal(msg string, cause error) *Error {
	return New(KindFatal, msg, cause)
}

// Is reports whether the first strata *Error found in err's chain (err
// itself or the outermost one it wraps) has kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == k
}

// IsRetryable reports whether a backoff loop should retry err.
func IsRetryable(err error) bool {
	return Is(err, KindBackendUnavailable)
}
