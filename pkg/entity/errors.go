package entity

import (
	"bytes"
	"errors"
	"fmt"
)

// Sentinel errors for Extract and Reconstruct failures. Callers use
// errors.Is/errors.As to distinguish non-fatal "fall back to text merge"
// conditions (ErrUnsupportedLanguage, ErrUnsupportedSize, ErrUnsupportedBinary,
// ErrParseUnusable) from ErrInvariantViolation, which signals a bug in this
// package rather than a property of the input.
var (
	ErrUnsupportedLanguage = errors.New("entity: unsupported language")
	ErrUnsupportedSize     = errors.New("entity: file exceeds size limit")
	ErrUnsupportedBinary   = errors.New("entity: binary content")
	ErrParseUnusable       = errors.New("entity: parse tree unusable")
	ErrInvariantViolation  = errors.New("entity: invariant violation")
)

// UnsupportedError wraps ErrUnsupportedLanguage/Size/Binary with the reason
// a given input could not be segmented. Unsupported is never fatal: callers
// fall back to a diff3 text merge over the raw bytes.
type UnsupportedError struct {
	Reason string
	Err    error
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("entity: unsupported (%s): %v", e.Reason, e.Err)
}

func (e *UnsupportedError) Unwrap() error { return e.Err }

func newUnsupportedError(sentinel error, reason string) *UnsupportedError {
	return &UnsupportedError{Reason: reason, Err: sentinel}
}

// ParseUnusableError reports that a file parsed but produced a tree too
// degenerate to segment reliably (e.g. more than a quarter of the source
// fell into untyped ERROR nodes). Like UnsupportedError, this is a signal
// to fall back, not a bug. Path is the filename Extract/ExtractJSON/etc. was
// called with; merge.Merge doesn't have real paths for its three sides (git
// merge drivers pass temp files), so this identifies the caller's input, not
// a "base"/"ours"/"theirs" role.
type ParseUnusableError struct {
	Path   string
	Detail string
}

func (e *ParseUnusableError) Error() string {
	return fmt.Sprintf("entity: parse unusable in %s: %s", e.Path, e.Detail)
}

func (e *ParseUnusableError) Unwrap() error { return ErrParseUnusable }

func newParseUnusableError(path, detail string) *ParseUnusableError {
	return &ParseUnusableError{Path: path, Detail: detail}
}

// InvariantViolationError reports that this package's own output failed a
// self-check: reconstructed bytes didn't match source, or two entities in
// the same file resolved to the same identity key after ordinal assignment.
// Unlike Unsupported/ParseUnusable, this is a bug-class error; callers
// should surface it rather than silently falling back.
type InvariantViolationError struct {
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("entity: invariant violation: %s", e.Detail)
}

func (e *InvariantViolationError) Unwrap() error { return ErrInvariantViolation }

// CheckReconstruction reconstructs el and compares it byte-for-byte against
// the original source captured at Extract time, returning an
// InvariantViolationError if they differ.
func CheckReconstruction(el *EntityList) error {
	got := Reconstruct(el)
	if !bytes.Equal(got, el.Source) {
		return &InvariantViolationError{
			Detail: fmt.Sprintf("reconstructed %d bytes, want %d bytes for %s", len(got), len(el.Source), el.Path),
		}
	}
	return nil
}

// CheckDistinctIdentities returns an InvariantViolationError if any two
// entities in el share an identity key after ordinal assignment — which
// would mean assignIdentityOrdinals has a bug, since ordinals exist
// precisely to keep same-shaped entities distinguishable.
func CheckDistinctIdentities(el *EntityList) error {
	seen := make(map[string]bool, len(el.Entities))
	for i := range el.Entities {
		if el.Entities[i].Kind == KindInterstitial {
			continue
		}
		key := el.Entities[i].IdentityKey()
		if seen[key] {
			return &InvariantViolationError{
				Detail: fmt.Sprintf("duplicate identity key %q in %s", key, el.Path),
			}
		}
		seen[key] = true
	}
	return nil
}
