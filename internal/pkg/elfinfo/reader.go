// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package elfinfo reads the dynamic-linking facts the rest of the launch
// pipeline needs out of an ELF shared object or executable: SONAME, NEEDED
// entries, RPATH/RUNPATH, and defined/required symbol-version labels.
//
// debug/elf is used directly rather than a third-party ELF library: none of
// the example repositories in the retrieval pack depend on one, and the
// stdlib package already exposes the dynamic-section and symbol-version
// accessors this reader needs (DynamicSymbols, ImportedSymbols and friends).
package elfinfo

import (
	"debug/elf"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/mpishim/mpishim/internal/pkg/launcherr"
)

// Info is the set of facts extracted from one ELF object.
type Info struct {
	BinaryPath string

	SOName  string
	Needed  []string
	RPath   string
	RunPath string

	DefinedVersions  map[string]struct{}
	RequiredVersions map[string]struct{}
}

// elfMagic is the 4-byte identification every ELF file starts with.
var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// IsELF is a cheap probe: it returns false for non-regular files and for
// files whose first four bytes aren't the ELF magic, without invoking the
// full debug/elf parser.
func IsELF(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header := make([]byte, len(elfMagic))
	if _, err := f.Read(header); err != nil {
		return false
	}

	for i, b := range elfMagic {
		if header[i] != b {
			return false
		}
	}
	return true
}

// Read parses path as an ELF shared object or executable. It returns a
// *launcherr.Error with Kind NotElf when the file lacks ELF magic, and Kind
// MalformedElf when the magic is present but parsing fails.
func Read(path string) (*Info, error) {
	if !IsELF(path) {
		return nil, launcherr.New(launcherr.NotElf, "%s", path)
	}

	f, err := elf.Open(path)
	if err != nil {
		return nil, launcherr.New(launcherr.MalformedElf, "%s: %v", path, err)
	}
	defer f.Close()

	info := &Info{
		BinaryPath:       path,
		DefinedVersions:  map[string]struct{}{},
		RequiredVersions: map[string]struct{}{},
	}

	if dynStrings, err := dynamicStrings(f); err == nil {
		info.SOName = dynStrings[elf.DT_SONAME]
		info.RPath = dynStrings[elf.DT_RPATH]
		info.RunPath = dynStrings[elf.DT_RUNPATH]
	}

	needed, err := f.DynString(elf.DT_NEEDED)
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return nil, launcherr.New(launcherr.MalformedElf, "%s: reading NEEDED: %v", path, err)
	}
	info.Needed = needed

	populateSymbolVersions(f, info)

	return info, nil
}

// dynamicStrings returns the string-valued dynamic tags keyed by tag, since
// debug/elf only exposes DT_NEEDED (a repeated tag) via DynString; the
// single-valued string tags (DT_SONAME, DT_RPATH, DT_RUNPATH) are read the
// same way, tolerating their absence.
func dynamicStrings(f *elf.File) (map[elf.DynTag]string, error) {
	out := map[elf.DynTag]string{}
	for _, tag := range []elf.DynTag{elf.DT_SONAME, elf.DT_RPATH, elf.DT_RUNPATH} {
		values, err := f.DynString(tag)
		if err != nil {
			if errors.Is(err, elf.ErrNoSymbols) {
				continue
			}
			return out, err
		}
		if len(values) > 0 {
			out[tag] = values[0]
		}
	}
	return out, nil
}

// populateSymbolVersions extracts the labels behind the .gnu.version_d
// (defined) and .gnu.version_r (required) sections. debug/elf does not parse
// these sections directly, but it resolves each dynamic symbol's version
// through its Library/Version fields once ImportedSymbols/DynamicSymbols is
// called, so this walks the symbol table rather than the raw sections.
func populateSymbolVersions(f *elf.File, info *Info) {
	syms, err := f.DynamicSymbols()
	if err != nil {
		return
	}

	for _, s := range syms {
		label := strings.TrimSpace(s.Version)
		if label == "" {
			continue
		}
		if s.Section == elf.SHN_UNDEF {
			info.RequiredVersions[label] = struct{}{}
		} else {
			info.DefinedVersions[label] = struct{}{}
		}
	}
}
