// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package version parses and totally orders dotted version numbers, such as
// those found in ELF symbol-version labels (GLIBC_2.34) or MPI vendor
// strings.
package version

import (
	"regexp"
	"strconv"
	"strings"
)

// numberRe matches the first dotted run of digits found in a string,
// e.g. "v3.4.0-rc1" yields "3.4.0".
var numberRe = regexp.MustCompile(`\d+(?:\.\d+)+`)

// Version is an ordered sequence of non-negative integers. The zero value is
// empty and falsy.
type Version []int

// Parse extracts the first dotted run of digits from s and returns it as a
// Version. If no such run exists, the returned Version is empty.
func Parse(s string) Version {
	match := numberRe.FindString(s)
	if match == "" {
		return nil
	}

	parts := strings.Split(match, ".")
	v := make(Version, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			// numberRe guarantees digits only; this should never happen.
			return nil
		}
		v = append(v, n)
	}

	return v
}

// Empty reports whether v carries no components (the "falsy" state).
func (v Version) Empty() bool {
	return len(v) == 0
}

// Major, Minor and Patch address positions 0, 1 and 2, returning 0 when the
// position is not present.
func (v Version) Major() int { return v.at(0) }
func (v Version) Minor() int { return v.at(1) }
func (v Version) Patch() int { return v.at(2) }

func (v Version) at(i int) int {
	if i >= len(v) {
		return 0
	}
	return v[i]
}

func (v Version) String() string {
	if v.Empty() {
		return ""
	}
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Compare provides a total order over Versions: components are compared
// left to right, and a sequence that is a strict prefix of another compares
// equal to it only when every trailing extra component of the longer
// sequence is zero; otherwise the longer sequence is greater. This resolves
// the ambiguity left open by the source comparator (which treated unequal
// arity as simply non-comparable).
func (v Version) Compare(o Version) int {
	n := len(v)
	if len(o) > n {
		n = len(o)
	}

	for i := 0; i < n; i++ {
		a, b := v.at(i), o.at(i)
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}

	return 0
}

// Less reports whether v orders strictly before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// Greater reports whether v orders strictly after o.
func (v Version) Greater(o Version) bool { return v.Compare(o) > 0 }

// Equal reports whether v and o compare equal.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// Max returns the greatest of a set of Versions. It panics if versions is
// empty, mirroring the behavior of the original max()-over-a-filtered-list
// call site (libc_version): callers are expected to have already filtered to
// a non-empty set.
func Max(versions []Version) Version {
	best := versions[0]
	for _, v := range versions[1:] {
		if v.Greater(best) {
			best = v
		}
	}
	return best
}
