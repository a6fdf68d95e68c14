// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package libraryset

import (
	"fmt"
	"regexp"

	"golang.org/x/exp/slices"
)

// GlibSonames is the hardcoded C-runtime-family SONAME list used by Glib()
// and by overlay seeding.
var GlibSonames = []string{
	"libc.so.6",
	"libdl.so.2",
	"libcrypt.so.1",
	"libm.so.6",
	"libmvec.so.1",
	"libnsl.so.1",
	"libnss_compat.so.2",
	"libnss_db.so.2",
	"libnss_dns.so.2",
	"libnss_files.so.2",
	"libnss_hesiod.so.2",
	"libpthread.so.0",
	"libresolv.so.2",
	"librt.so.1",
}

var glibSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(GlibSonames))
	for _, s := range GlibSonames {
		m[s] = struct{}{}
	}
	return m
}()

var linkerNameRe = regexp.MustCompile(`^ld-.*\.so(\.\d+)*$`)

// LibrarySet is a set of Library values keyed by (origin, soname-or-path).
type LibrarySet struct {
	members map[string]*Library
}

// New returns an empty LibrarySet.
func New() *LibrarySet {
	return &LibrarySet{members: map[string]*Library{}}
}

// Add inserts lib into the set. A later Add under the same key supersedes an
// earlier one, matching the "second insert supersedes only if explicit"
// invariant.
func (s *LibrarySet) Add(lib *Library) {
	s.members[lib.key()] = lib
}

// Remove deletes lib from the set, if present.
func (s *LibrarySet) Remove(lib *Library) {
	delete(s.members, lib.key())
}

// Len reports the number of members.
func (s *LibrarySet) Len() int { return len(s.members) }

// Members returns the set's members in an unspecified order. Callers that
// need determinism should sort on SOName.
func (s *LibrarySet) Members() []*Library {
	out := make([]*Library, 0, len(s.members))
	for _, l := range s.members {
		out = append(out, l)
	}
	return out
}

// Find returns the member with the given soname (searching both origins,
// preferring Host), or nil.
func (s *LibrarySet) Find(soname string) *Library {
	if l, ok := s.members[Host.String()+":"+soname]; ok {
		return l
	}
	if l, ok := s.members[Guest.String()+":"+soname]; ok {
		return l
	}
	return nil
}

// Clone returns a shallow copy of the set (members are shared pointers;
// membership is independent).
func (s *LibrarySet) Clone() *LibrarySet {
	out := New()
	for k, v := range s.members {
		out.members[k] = v
	}
	return out
}

// SONames returns the set of SONAMEs present among the members, sorted for
// deterministic output.
func (s *LibrarySet) SONames() []string {
	var out []string
	for _, l := range s.members {
		if l.soname != "" {
			out = append(out, l.soname)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// MissingLibraries returns the SONAMEs named in any member's Needed that are
// not satisfied by any member's SOName, sorted for deterministic output.
func (s *LibrarySet) MissingLibraries() []string {
	present := map[string]struct{}{}
	for _, l := range s.members {
		if l.soname != "" {
			present[l.soname] = struct{}{}
		}
	}

	seen := map[string]struct{}{}
	var out []string
	for _, l := range s.members {
		for _, n := range l.needed {
			if _, ok := present[n]; ok {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

// TopLevel returns the members whose SONAME does not appear in any other
// member's Needed list - the set's roots.
func (s *LibrarySet) TopLevel() *LibrarySet {
	needed := map[string]struct{}{}
	for _, l := range s.members {
		for _, n := range l.needed {
			needed[n] = struct{}{}
		}
	}

	out := New()
	for _, l := range s.members {
		if l.soname == "" {
			out.Add(l)
			continue
		}
		if _, ok := needed[l.soname]; !ok {
			out.Add(l)
		}
	}
	return out
}

// Glib returns the members whose SONAME is in the hardcoded C-runtime-family
// list, plus the dynamic linker(s) (Linkers()).
func (s *LibrarySet) Glib() *LibrarySet {
	out := New()
	for _, l := range s.members {
		if _, ok := glibSet[l.soname]; ok {
			out.Add(l)
		}
	}
	for _, l := range s.Linkers().Members() {
		out.Add(l)
	}
	return out
}

// Linkers returns the members whose SONAME matches ld-*.so* or whose
// filename does, since an executable interpreter may carry no SONAME at
// all.
func (s *LibrarySet) Linkers() *LibrarySet {
	out := New()
	for _, l := range s.members {
		if linkerNameRe.MatchString(l.soname) || linkerNameRe.MatchString(l.FileName()) {
			out.Add(l)
		}
	}
	return out
}

// RPath concatenates every member's non-empty RPath, colon-separated, in
// the set's map iteration order, which is unspecified.
func (s *LibrarySet) RPath() string { return s.joinHint(func(l *Library) string { return l.rpath }) }

// RunPath concatenates every member's RunPath analogously to RPath.
func (s *LibrarySet) RunPath() string {
	return s.joinHint(func(l *Library) string { return l.runpath })
}

func (s *LibrarySet) joinHint(get func(*Library) string) string {
	var out string
	for _, l := range s.members {
		if v := get(l); v != "" {
			if out != "" {
				out += ":"
			}
			out += v
		}
	}
	return out
}

// Union returns a new set containing every member of s and other, preserving
// origin tags. Where both sets carry a member under the same key, other's
// member wins.
func (s *LibrarySet) Union(other *LibrarySet) *LibrarySet {
	out := s.Clone()
	for k, v := range other.members {
		out.members[k] = v
	}
	return out
}

// Difference returns a new set containing the members of s not present
// (under the same key) in other.
func (s *LibrarySet) Difference(other *LibrarySet) *LibrarySet {
	out := New()
	for k, v := range s.members {
		if _, ok := other.members[k]; !ok {
			out.members[k] = v
		}
	}
	return out
}

// Filter returns a new set containing only the members for which keep
// returns true.
func (s *LibrarySet) Filter(keep func(*Library) bool) *LibrarySet {
	out := New()
	for _, l := range s.members {
		if keep(l) {
			out.Add(l)
		}
	}
	return out
}

// LddFormat returns a human-readable resolution of each NEEDED edge, for
// debug logging only - not part of the core contract.
func (s *LibrarySet) LddFormat() []string {
	var lines []string
	for _, soname := range s.SONames() {
		lib := s.Find(soname)
		if lib == nil {
			continue
		}
		for _, n := range lib.Needed() {
			target := s.Find(n)
			switch {
			case target != nil:
				lines = append(lines, fmt.Sprintf("%s => %s (%s)", n, target.BinaryPath(), target.Origin()))
			default:
				lines = append(lines, fmt.Sprintf("%s => not found", n))
			}
		}
	}
	return lines
}
