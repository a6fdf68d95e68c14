// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package wi4mpi implements the hook the core offers the Wi4MPI MPI-ABI
// translation wrapper: when active, it supersedes the conservative
// MPI-family aliasing policy with alias records drawn from Wi4MPI's own
// fakelib directory, and rewrites Wi4MPI's WI4MPI_RUN_MPI_*_LIB environment
// variables to their in-container equivalents.
package wi4mpi

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// fakelibPattern matches the three families of shared objects Wi4MPI's
// fakelib directories ship: libmpi.so.N, libmpifort.so.N, libmpicxx.so.N.
var fakelibPattern = regexp.MustCompile(`^(libmpi|libmpifort|libmpicxx)\.so\.(\d+)$`)

// mpichAlias maps a fakelib base name to its MPICH-style alias.
var mpichAlias = map[string]string{
	"libmpi":     "libmpich",
	"libmpifort": "libmpichfort",
	"libmpicxx":  "libmpichcxx",
}

// runLibVars is the set of WI4MPI_RUN_MPI_*_LIB variables rewritten from
// host paths to in-container equivalents.
var runLibVars = []string{
	"WI4MPI_RUN_MPI_C_LIB",
	"WI4MPI_RUN_MPI_F_LIB",
	"WI4MPI_RUN_MPIIO_C_LIB",
	"WI4MPI_RUN_MPIIO_F_LIB",
}

// Alias is one file discovered in the fakelib directory, along with the two
// destination names (its own, and the MPICH-style alias) it must be bound
// at.
type Alias struct {
	Source     string
	Name       string
	MPICHAlias string
}

// Active reports whether the Wi4MPI hook applies: WI4MPI_ROOT is set and its
// fakelib<FROM> directory exists.
func Active() (root, fakelibDir string, ok bool) {
	root = os.Getenv("WI4MPI_ROOT")
	if root == "" {
		return "", "", false
	}

	from := strings.ToUpper(os.Getenv("WI4MPI_FROM"))
	fakelibDir = filepath.Join(root, "libexec", "wi4mpi", "fakelib"+from)

	info, err := os.Stat(fakelibDir)
	if err != nil || !info.IsDir() {
		return "", "", false
	}
	return root, fakelibDir, true
}

// Aliases lists every fakelib file in fakelibDir matching one of the three
// recognized families, with its MPICH-style alias name.
func Aliases(fakelibDir string) ([]Alias, error) {
	entries, err := os.ReadDir(fakelibDir)
	if err != nil {
		return nil, err
	}

	var out []Alias
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := fakelibPattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		alias := mpichAlias[m[1]] + ".so." + m[2]
		out = append(out, Alias{
			Source:     filepath.Join(fakelibDir, entry.Name()),
			Name:       entry.Name(),
			MPICHAlias: alias,
		})
	}
	return out, nil
}

// RewriteRunLibEnv returns a copy of env plus, for every runLibVars variable
// set to a non-empty value in the process environment, that value rewritten
// via translate (typically a host-path -> in-container-path mapping
// function).
func RewriteRunLibEnv(env map[string]string, translate func(hostPath string) string) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	for _, name := range runLibVars {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		out[name] = translate(v)
	}
	return out
}
