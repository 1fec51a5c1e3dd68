// Package grupserr defines the typed error kinds used across this module
// (see spec §7), each carrying a location chain (file, line-or-coordinate,
// cause) via github.com/pkg/errors wrapping.
package grupserr

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure the way spec §7 enumerates them.
type Kind int

const (
	// ParseInput covers pileup/VCF/panel/targets/map/pedigree decode failures.
	ParseInput Kind = iota
	// MissingResource covers an absent file or required tag.
	MissingResource
	// InvalidFormat covers a wrong extension or layout.
	InvalidFormat
	// Corruption covers an FST checksum or UTF-8 failure.
	Corruption
	// Policy covers user-requested incompatible options.
	Policy
	// Runtime covers mid-stream I/O failures.
	Runtime
)

func (k Kind) String() string {
	switch k {
	case ParseInput:
		return "ParseInput"
	case MissingResource:
		return "MissingResource"
	case InvalidFormat:
		return "InvalidFormat"
	case Corruption:
		return "Corruption"
	case Policy:
		return "Policy"
	case Runtime:
		return "Runtime"
	default:
		return "Unknown"
	}
}

// Error is a typed error with an attached location (file path or genomic
// coordinate, whichever applies) and an optional wrapped cause.
type Error struct {
	Kind     Kind
	Location string
	cause    error
}

func (e *Error) Error() string {
	if e.cause == nil {
		if e.Location == "" {
			return e.Kind.String()
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Location)
	}
	if e.Location == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Location, e.cause)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// New builds an *Error with no cause, stack-annotated via pkg/errors.
func New(kind Kind, location string) error {
	return errors.WithStack(&Error{Kind: kind, Location: location})
}

// Newf is New with a formatted location, for building a fresh error that
// has no cause to wrap. Wrap/Wrapf collapse to nil when their cause is
// nil (mirroring github.com/pkg/errors.Wrap, so `return grupserr.Wrap(err,
// ...)` stays safe when err is nil) -- that makes them the wrong call when
// there never was a cause in the first place.
func Newf(kind Kind, format string, args ...interface{}) error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap attaches kind and location to an existing cause, stack-annotated via
// pkg/errors so the original call site is preserved.
func Wrap(cause error, kind Kind, location string) error {
	if cause == nil {
		return nil
	}
	return errors.WithStack(&Error{Kind: kind, Location: location, cause: cause})
}

// Wrapf is Wrap with a formatted location.
func Wrapf(cause error, kind Kind, format string, args ...interface{}) error {
	return Wrap(cause, kind, fmt.Sprintf(format, args...))
}

// As reports whether err (or something in its chain) is a *Error, and
// returns it.
func As(err error) (*Error, bool) {
	var target *Error
	if stderrors.As(err, &target) {
		return target, true
	}
	// github.com/pkg/errors v0.8.1's WithStack wrapper has no Unwrap, only
	// Cause, so stderrors.As cannot see through it.
	if e, ok := errors.Cause(err).(*Error); ok {
		return e, true
	}
	return nil, false
}

// Is reports whether err's chain contains an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
