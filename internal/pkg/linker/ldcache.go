// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package linker

import (
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/mpishim/mpishim/pkg/sylog"
)

// fallbackDirs are consulted, in order, when ldconfig is unavailable and as
// the last resort of the regular resolution order.
var fallbackDirs = []string{"/lib", "/usr/lib", "/lib64", "/usr/lib64"}

var ldconfigLineRe = regexp.MustCompile(`(?m)^\s*(\S+)\s*\(.*\)\s*=>\s*(.*)$`)

var (
	hostCacheOnce sync.Once
	hostCache     map[string]string
)

// HostLibraries returns the host's SONAME -> absolute path index, built once
// per process from `ldconfig -p` and memoized thereafter (spec: "the cache
// is loaded once per process").
func HostLibraries() map[string]string {
	hostCacheOnce.Do(func() {
		hostCache = loadHostLibraries()
	})
	return hostCache
}

func loadHostLibraries() map[string]string {
	cache := map[string]string{}

	ldconfig, err := exec.LookPath("ldconfig")
	if err != nil {
		sylog.Debugf("ldconfig not found on PATH, falling back to %v", fallbackDirs)
		return scanFallbackDirs()
	}

	out, err := exec.Command(ldconfig, "-p").Output()
	if err != nil {
		sylog.Debugf("ldconfig -p failed: %v, falling back to %v", err, fallbackDirs)
		return scanFallbackDirs()
	}

	for _, match := range ldconfigLineRe.FindAllStringSubmatch(string(out), -1) {
		name := strings.TrimSpace(match[1])
		path := strings.TrimSpace(match[2])
		if _, ok := cache[name]; !ok {
			cache[name] = path
		}
	}

	return cache
}

// scanFallbackDirs builds a best-effort SONAME index by listing the fixed
// fallback directories directly, used when ldconfig can't be invoked.
func scanFallbackDirs() map[string]string {
	cache := map[string]string{}
	for _, dir := range fallbackDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if !strings.Contains(name, ".so") {
				continue
			}
			if _, ok := cache[name]; !ok {
				cache[name] = filepath.Join(dir, name)
			}
		}
	}
	return cache
}

// resetHostLibrariesForTest allows tests to force a reload of the memoized
// cache under a temporary directory layout.
func resetHostLibrariesForTest() {
	hostCacheOnce = sync.Once{}
	hostCache = nil
}
