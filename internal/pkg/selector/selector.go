// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package selector implements the host/guest selection policy: compare host
// and guest C-runtime versions and choose either the filter strategy (keep
// the guest's C runtime) or the overlay strategy (inject the host's).
//
// A process run with an older libc than the one it was linked against
// fails on private glibc symbols; a newer libc is backward-compatible, so
// the host C runtime is bound only when it dominates the guest's.
package selector

import (
	"context"
	"os/exec"
	"sync"

	"github.com/mpishim/mpishim/internal/pkg/container"
	"github.com/mpishim/mpishim/internal/pkg/elfinfo"
	"github.com/mpishim/mpishim/internal/pkg/entrypoint"
	"github.com/mpishim/mpishim/internal/pkg/launcherr"
	"github.com/mpishim/mpishim/internal/pkg/libraryset"
	"github.com/mpishim/mpishim/internal/pkg/linker"
	"github.com/mpishim/mpishim/internal/pkg/version"
	"github.com/mpishim/mpishim/pkg/sylog"
)

var (
	hostLibcOnce   sync.Once
	hostLibcCached version.Version
	hostLibcErr    error
)

// HostLibcVersion returns the version number of the libc available on the
// host, picking the greatest defined symbol-version label with major 2 from
// libc.so.6's defined versions. It memoizes its result, guarded and
// one-shot.
func HostLibcVersion() (version.Version, error) {
	hostLibcOnce.Do(func() {
		hostLibcCached, hostLibcErr = computeHostLibcVersion()
	})
	return hostLibcCached, hostLibcErr
}

func computeHostLibcVersion() (version.Version, error) {
	path, ok := linker.Resolve("libc.so.6", "", "")
	if !ok {
		return nil, launcherr.New(launcherr.LibcMissing, "libc.so.6 not found on host")
	}

	info, err := elfinfo.Read(path)
	if err != nil {
		return nil, launcherr.New(launcherr.LibcMissing, "reading %s: %v", path, err)
	}

	var candidates []version.Version
	for label := range info.DefinedVersions {
		v := version.Parse(label)
		if v.Major() == 2 {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return nil, launcherr.New(launcherr.LibcMissing, "no GLIBC_2.x defined version in %s", path)
	}

	return version.Max(candidates), nil
}

// resetHostLibcVersionForTest clears the memoized result so each test starts
// from an uncomputed state.
func resetHostLibcVersionForTest() {
	hostLibcOnce = sync.Once{}
	hostLibcCached = nil
	hostLibcErr = nil
}

// Select compares host and guest libc versions and dispatches to Overlay or
// Filter, returning the final library set to import.
func Select(ctx context.Context, libSet *libraryset.LibrarySet, c *container.Container, ep *entrypoint.Params) (*libraryset.LibrarySet, error) {
	hostLibc, err := HostLibcVersion()
	if err != nil {
		return nil, err
	}
	guestLibc := c.LibcVersion()

	precedence := hostLibc.Greater(guestLibc)
	sylog.Debugf("host libc %s %s guest libc %s", hostLibc, ltOrGt(precedence), guestLibc)

	if precedence {
		return Overlay(libSet, c, ep)
	}
	return Filter(libSet, c, ep)
}

func ltOrGt(hostGreater bool) string {
	if hostGreater {
		return ">"
	}
	return "<="
}

// Filter returns the input set with every member of its Glib subset removed:
// the guest will supply its own C runtime and dynamic linker.
func Filter(libSet *libraryset.LibrarySet, _ *container.Container, _ *entrypoint.Params) (*libraryset.LibrarySet, error) {
	glib := libSet.Glib()
	return libSet.Difference(glib), nil
}

// Overlay merges in the host shell's dependencies and the host's C-runtime
// family, records the shell and linker bindings on ep/c, and returns the
// merged set minus the C-runtime-family libraries (already bound to their
// overriding destinations by this function).
func Overlay(libSet *libraryset.LibrarySet, c *container.Container, ep *entrypoint.Params) (*libraryset.LibrarySet, error) {
	shellPath, err := exec.LookPath("bash")
	if err != nil {
		return nil, launcherr.New(launcherr.ContainerFailure, "locating host bash: %v", err)
	}

	shellSet, err := libraryset.CreateFromPaths([]string{shellPath})
	if err != nil {
		return nil, err
	}
	shellTop := shellSet.TopLevel()
	shellRequirements := shellSet.Difference(shellTop)

	glibPaths := make([]string, 0, len(libraryset.GlibSonames))
	for _, soname := range libraryset.GlibSonames {
		if path, ok := linker.Resolve(soname, "", ""); ok {
			glibPaths = append(glibPaths, path)
		}
	}
	glibSet, err := libraryset.CreateFromPaths(glibPaths)
	if err != nil {
		return nil, err
	}

	shellDest := c.ImportBinaryDir + "/bash"
	c.BindFile(shellPath, shellDest, container.ReadOnly)
	ep.Interpreter = shellDest

	merged := libSet.Union(shellRequirements).Union(glibSet)

	linkers := merged.Linkers()
	if linkers.Len() != 1 {
		return nil, launcherr.New(launcherr.InconsistentLinkerSet, "%d linkers detected", linkers.Len())
	}
	for _, l := range linkers.Members() {
		dest := c.ImportBinaryDir + "/" + l.FileName()
		c.BindFile(l.BinaryPath(), dest, container.ReadOnly)
		ep.Linker = dest
	}

	cache := c.Cache()
	for _, lib := range merged.Glib().Union(glibSet).Members() {
		if dest, ok := cache[lib.SOName()]; ok {
			sylog.Debugf("overriding guest %s with host %s", dest, lib.BinaryPath())
			c.BindFile(lib.BinaryPath(), dest, container.ReadOnly)
		}
	}

	return merged.Difference(glibSet), nil
}
