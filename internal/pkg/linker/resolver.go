// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package linker implements the host dynamic linker's library search rules:
// RPATH, then LD_LIBRARY_PATH, then RUNPATH, then the parsed ldconfig
// cache, then any extra directories set via SetExtraDirs, then a fixed set
// of fallback directories.
package linker

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolve implements the search order:
//  1. rpath
//  2. LD_LIBRARY_PATH
//  3. runpath
//  4. the host's SONAME -> path cache
//  5. the extra directories set via SetExtraDirs
//  6. the fixed fallback list
//
// Open question (documented, not resolved both ways): the dynamic-linker
// manual specifies that RPATH is ignored whenever RUNPATH is present. This
// resolver always consults RPATH first, matching observed ld.so behavior
// rather than the strict manual rule - the ambiguity noted in the design is
// deliberately preserved.
//
// Each candidate directory is tried in order; the first directory that
// contains soname wins. The result is canonicalized with EvalSymlinks.
func Resolve(soname, rpath, runpath string) (string, bool) {
	if soname == "" {
		return "", false
	}

	dirs := make([]string, 0, 8)
	dirs = append(dirs, splitSearchPath(rpath)...)
	dirs = append(dirs, splitSearchPath(os.Getenv("LD_LIBRARY_PATH"))...)
	dirs = append(dirs, splitSearchPath(runpath)...)

	if found := firstExisting(dirs, soname); found != "" {
		return canonical(found), true
	}

	if path, ok := HostLibraries()[soname]; ok {
		return canonical(path), true
	}

	if found := firstExisting(extraDirs, soname); found != "" {
		return canonical(found), true
	}

	if found := firstExisting(fallbackDirs, soname); found != "" {
		return canonical(found), true
	}

	return "", false
}

// extraDirs is consulted after the host cache and before the fixed
// fallback list, populated once from the ambient configuration's
// extra_library_path entries via SetExtraDirs.
var extraDirs []string

// SetExtraDirs records additional directories (e.g. from the ambient
// mpishim.toml's extra_library_path) to consult between the host cache and
// the fixed fallback list. It is not safe to call concurrently with
// Resolve; callers set it once during startup before any closure runs.
func SetExtraDirs(dirs []string) {
	extraDirs = dirs
}

func splitSearchPath(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ":") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstExisting(dirs []string, soname string) string {
	for _, dir := range dirs {
		fi, err := os.Stat(dir)
		if err != nil || !fi.IsDir() {
			continue
		}
		candidate := filepath.Join(dir, soname)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func canonical(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}
