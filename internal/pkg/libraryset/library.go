// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package libraryset implements the transitive-closure library set at the
// center of the launch pipeline: a collection of Library values tagged Host
// or Guest, with the query and set operations the selector and import
// planner build on.
package libraryset

import (
	"path/filepath"

	"github.com/mpishim/mpishim/internal/pkg/elfinfo"
)

// Origin tags whether a Library was discovered on the host filesystem or
// reported by the in-container analysis step. It is set at construction and
// never mutated afterward.
type Origin int

const (
	// Host libraries were read directly off the calling machine's
	// filesystem.
	Host Origin = iota
	// Guest libraries were deserialized from the container's analysis
	// JSON.
	Guest
)

func (o Origin) String() string {
	if o == Guest {
		return "guest"
	}
	return "host"
}

// Library is one shared object or executable participating in the launch,
// tagged with the side of the host/guest divide it came from.
type Library struct {
	origin Origin

	binaryPath string
	soname     string
	needed     []string
	rpath      string
	runpath    string

	definedVersions  map[string]struct{}
	requiredVersions map[string]struct{}
}

// FromInfo constructs a Library from elfinfo.Info with the given origin.
func FromInfo(info *elfinfo.Info, origin Origin) *Library {
	return &Library{
		origin:           origin,
		binaryPath:       info.BinaryPath,
		soname:           info.SOName,
		needed:           append([]string(nil), info.Needed...),
		rpath:            info.RPath,
		runpath:          info.RunPath,
		definedVersions:  copySet(info.DefinedVersions),
		requiredVersions: copySet(info.RequiredVersions),
	}
}

// FromHostPath reads path off the host filesystem and returns the resulting
// Host-tagged Library.
func FromHostPath(path string) (*Library, error) {
	info, err := elfinfo.Read(path)
	if err != nil {
		return nil, err
	}
	return FromInfo(info, Host), nil
}

// FromAnalysisEntry constructs a Guest-tagged Library from the fields of one
// analysis-JSON "libraries" entry.
func FromAnalysisEntry(binaryPath, soname string, needed []string, rpath, runpath string, defined, required []string) *Library {
	return &Library{
		origin:           Guest,
		binaryPath:       binaryPath,
		soname:           soname,
		needed:           append([]string(nil), needed...),
		rpath:            rpath,
		runpath:          runpath,
		definedVersions:  sliceToSet(defined),
		requiredVersions: sliceToSet(required),
	}
}

func sliceToSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, v := range in {
		out[v] = struct{}{}
	}
	return out
}

// AnalysisEntry is the JSON-serializable shape of one Library in the
// analysis document; it is produced on the in-container side by the analyze
// command and consumed on the host side by the container package.
type AnalysisEntry struct {
	SOName           string   `json:"soname"`
	BinaryPath       string   `json:"binary_path"`
	Needed           []string `json:"needed"`
	RPath            string   `json:"rpath"`
	RunPath          string   `json:"runpath"`
	DefinedVersions  []string `json:"defined_versions"`
	RequiredVersions []string `json:"required_versions"`
}

// ToAnalysisEntry renders l as one analysis-document library entry.
func (l *Library) ToAnalysisEntry() AnalysisEntry {
	return AnalysisEntry{
		SOName:           l.soname,
		BinaryPath:       l.binaryPath,
		Needed:           append([]string(nil), l.needed...),
		RPath:            l.rpath,
		RunPath:          l.runpath,
		DefinedVersions:  setToSlice(l.definedVersions),
		RequiredVersions: setToSlice(l.requiredVersions),
	}
}

func setToSlice(in map[string]struct{}) []string {
	out := make([]string, 0, len(in))
	for v := range in {
		out = append(out, v)
	}
	return out
}

func copySet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

// Origin reports whether this Library was sourced from the Host or the
// Guest.
func (l *Library) Origin() Origin { return l.origin }

// BinaryPath is the absolute filesystem path this Library was read from.
func (l *Library) BinaryPath() string { return l.binaryPath }

// SOName is the DT_SONAME string, which may be empty for executables.
func (l *Library) SOName() string { return l.soname }

// Needed is the ordered list of NEEDED sonames.
func (l *Library) Needed() []string { return l.needed }

// RPath is the DT_RPATH search hint.
func (l *Library) RPath() string { return l.rpath }

// RunPath is the DT_RUNPATH search hint.
func (l *Library) RunPath() string { return l.runpath }

// DefinedVersions is the set of symbol-version labels this object exports.
func (l *Library) DefinedVersions() map[string]struct{} { return l.definedVersions }

// RequiredVersions is the set of symbol-version labels this object imports.
func (l *Library) RequiredVersions() map[string]struct{} { return l.requiredVersions }

// FileName is the base name of BinaryPath, used for filename-based
// classification when SOName is absent.
func (l *Library) FileName() string { return filepath.Base(l.binaryPath) }

// key identifies a Library within a LibrarySet: (origin, soname-or-path).
// SONAME collisions within the same origin are therefore not permitted by
// ordinary Add; a second insert under the same key supersedes the first.
func (l *Library) key() string {
	if l.soname != "" {
		return l.origin.String() + ":" + l.soname
	}
	return l.origin.String() + ":" + l.binaryPath
}
