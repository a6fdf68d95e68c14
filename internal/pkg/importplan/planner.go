// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package importplan translates a final LibrarySet into the bind directives
// and preload list the container facade and entrypoint need: symlink
// fan-out so every alternate name of a library resolves, and MPI SONAME
// aliasing (conservative, or Wi4MPI-driven when active) so a guest binary
// linked against one SONAME finds the host's equivalent from the same MPI
// family.
package importplan

import (
	"path/filepath"

	"github.com/mpishim/mpishim/internal/pkg/container"
	"github.com/mpishim/mpishim/internal/pkg/entrypoint"
	"github.com/mpishim/mpishim/internal/pkg/libraryset"
	"github.com/mpishim/mpishim/internal/pkg/wi4mpi"
	"github.com/mpishim/mpishim/pkg/sylog"
)

// Apply binds every member of libSet (and its symlink fan-out) into c,
// applies MPI-family aliasing (or the Wi4MPI override when active), and
// preloads the roots of libSet's dependency trees into ep.
func Apply(libSet *libraryset.LibrarySet, c *container.Container, ep *entrypoint.Params) error {
	for _, lib := range libSet.Members() {
		importLibrary(lib, c)
	}

	if _, fakelibDir, active := wi4mpi.Active(); active {
		if err := applyWi4MPI(fakelibDir, c, ep); err != nil {
			return err
		}
	} else {
		applyMPIAliasing(libSet, c)
	}

	for _, lib := range libSet.TopLevel().Members() {
		ep.Preload = append(ep.Preload, filepath.Join(c.ImportLibraryDir, lib.FileName()))
	}

	return nil
}

// importLibrary binds lib's binary and every symlink alias resolving to it,
// all under ImportLibraryDir so whatever spelling the guest resolver asks
// for is satisfied.
func importLibrary(lib *libraryset.Library, c *container.Container) {
	links, err := soLinks(lib.BinaryPath())
	if err != nil {
		sylog.Debugf("computing symlink fan-out for %s: %v", lib.BinaryPath(), err)
		links = []string{lib.BinaryPath()}
	}

	for _, link := range links {
		dest := filepath.Join(c.ImportLibraryDir, filepath.Base(link))
		c.BindFile(link, dest, container.ReadOnly)
	}
}

// applyMPIAliasing implements the conservative MPI-family SONAME aliasing:
// for each host library classified into an MPICH-lineage family, bind it
// additionally under every same-family SONAME the guest cache already
// knows about.
func applyMPIAliasing(libSet *libraryset.LibrarySet, c *container.Container) {
	cache := c.Cache()

	for _, lib := range libSet.Members() {
		family, ok := classifyMPIFamily(lib.SOName(), lib.FileName())
		if !ok {
			continue
		}

		for _, guestSoname := range guestFamilySonames(cache, family) {
			dest := filepath.Join(c.ImportLibraryDir, guestSoname)
			sylog.Debugf("aliasing %s -> %s for guest soname %s", lib.BinaryPath(), dest, guestSoname)
			c.BindFile(lib.BinaryPath(), dest, container.ReadOnly)
		}
	}
}

// applyWi4MPI binds every file in Wi4MPI's fakelib directory under its own
// name and its MPICH-style alias, and rewrites the WI4MPI_RUN_MPI_*_LIB
// environment variables into ep's extra-environment map.
func applyWi4MPI(fakelibDir string, c *container.Container, ep *entrypoint.Params) error {
	aliases, err := wi4mpi.Aliases(fakelibDir)
	if err != nil {
		return err
	}

	for _, a := range aliases {
		ownDest := filepath.Join(c.ImportLibraryDir, a.Name)
		aliasDest := filepath.Join(c.ImportLibraryDir, a.MPICHAlias)
		c.BindFile(a.Source, ownDest, container.ReadOnly)
		c.BindFile(a.Source, aliasDest, container.ReadOnly)
	}

	toContainer := func(hostPath string) string {
		return filepath.Join(c.ImportLibraryDir, filepath.Base(hostPath))
	}
	for k, v := range wi4mpi.RewriteRunLibEnv(ep.ExtraEnv, toContainer) {
		ep.ExtraEnv[k] = v
	}

	return nil
}
