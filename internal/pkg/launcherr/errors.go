// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package launcherr defines the typed error kinds and dispositions used
// across the launch pipeline.
package launcherr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so that callers can decide on a disposition
// without string-matching error messages.
type Kind int

const (
	// NotElf is returned by the ELF reader when a file lacks ELF magic.
	// Not fatal: filtered silently from closure inputs.
	NotElf Kind = iota
	// MalformedElf is returned when a file has ELF magic but fails to
	// parse. Fatal: the whole execute aborts with no partial binding.
	MalformedElf
	// UnresolvedNeeded marks a NEEDED soname with no resolvable path.
	// Not fatal: recorded in LibrarySet.MissingLibraries.
	UnresolvedNeeded
	// InconsistentLinkerSet is raised when overlay selection sees other
	// than exactly one dynamic linker in the merged set. Fatal.
	InconsistentLinkerSet
	// LibcMissing is raised when libc.so.6 cannot be resolved on the
	// host. Fatal: violates a platform assumption.
	LibcMissing
	// BindingConflict marks two distinct sources mapped to one
	// destination. Not fatal: the later bind wins, logged at debug.
	BindingConflict
	// ContainerFailure marks a non-zero exit or malformed JSON from the
	// in-container analysis subcommand. Fatal.
	ContainerFailure
	// BadFileSpec marks a malformed --files entry. Not fatal: the entry
	// is skipped and execute continues.
	BadFileSpec
)

func (k Kind) String() string {
	switch k {
	case NotElf:
		return "not an ELF file"
	case MalformedElf:
		return "malformed ELF file"
	case UnresolvedNeeded:
		return "unresolved NEEDED dependency"
	case InconsistentLinkerSet:
		return "inconsistent linker set"
	case LibcMissing:
		return "libc not found on host"
	case BindingConflict:
		return "binding conflict"
	case ContainerFailure:
		return "container failure"
	case BadFileSpec:
		return "invalid file specification"
	default:
		return "unknown error"
	}
}

// Error is a typed error carrying a Kind plus context.
type Error struct {
	Kind    Kind
	Context string
}

func (e *Error) Error() string {
	if e.Context == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Context)
}

// New constructs an *Error of the given kind with a formatted context
// string.
func New(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Context: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a launcherr.Error of kind k, unwrapping as
// needed (via errors.As).
func Is(err error, k Kind) bool {
	var le *Error
	if !errors.As(err, &le) {
		return false
	}
	return le.Kind == k
}

// Fatal reports whether errors of kind k abort the whole execute flow, per
// the disposition table in the design.
func Fatal(k Kind) bool {
	switch k {
	case MalformedElf, InconsistentLinkerSet, LibcMissing, ContainerFailure:
		return true
	default:
		return false
	}
}
