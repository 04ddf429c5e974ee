package core

import (
	"errors"
	"fmt"
)

// ErrMergeNotSupported is returned by every adapter for the merge
// resolution. Merging two events has no safe automatic semantics, so the
// operation must fail loudly rather than pretend to succeed.
var ErrMergeNotSupported = errors.New("merge resolution is not supported")

// ErrNotConnected is returned when an operation requires an authenticated
// adapter and the provider is disconnected.
var ErrNotConnected = errors.New("provider is not connected")

// AuthError indicates expired or invalid credentials. It is surfaced
// immediately and never auto-retried.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: authentication failed", e.Provider)
	}
	return fmt.Sprintf("%s: authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ConflictError short-circuits a create before any remote mutation. It
// carries the structured conflict list so callers can present choices
// instead of a generic failure string.
type ConflictError struct {
	Provider  string
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %d scheduling conflict(s) detected", e.Provider, len(e.Conflicts))
}

// SyncError wraps any other remote-call failure, preserving the cause.
type SyncError struct {
	Provider string
	Op       string
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
