// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package wi4mpi

import (
	"os"
	"path/filepath"
	"testing"
)

func TestActiveRequiresRootAndFakelibDir(t *testing.T) {
	t.Setenv("WI4MPI_ROOT", "")
	if _, _, ok := Active(); ok {
		t.Fatalf("expected inactive with no WI4MPI_ROOT")
	}

	dir := t.TempDir()
	t.Setenv("WI4MPI_ROOT", dir)
	t.Setenv("WI4MPI_FROM", "mpich")
	if _, _, ok := Active(); ok {
		t.Fatalf("expected inactive with missing fakelib dir")
	}

	fakelib := filepath.Join(dir, "libexec", "wi4mpi", "fakelibMPICH")
	if err := os.MkdirAll(fakelib, 0o755); err != nil {
		t.Fatal(err)
	}
	root, got, ok := Active()
	if !ok || root != dir || got != fakelib {
		t.Fatalf("Active() = %q, %q, %v; want %q, %q, true", root, got, ok, dir, fakelib)
	}
}

func TestAliasesClassifiesAndNames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"libmpi.so.12", "libmpifort.so.12", "libmpicxx.so.12", "README"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	aliases, err := Aliases(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(aliases) != 3 {
		t.Fatalf("expected 3 aliases, got %d: %+v", len(aliases), aliases)
	}

	want := map[string]string{
		"libmpi.so.12":     "libmpich.so.12",
		"libmpifort.so.12": "libmpichfort.so.12",
		"libmpicxx.so.12":  "libmpichcxx.so.12",
	}
	for _, a := range aliases {
		if want[a.Name] != a.MPICHAlias {
			t.Errorf("alias for %s = %s, want %s", a.Name, a.MPICHAlias, want[a.Name])
		}
	}
}

func TestRewriteRunLibEnvOnlyTouchesPresentVars(t *testing.T) {
	t.Setenv("WI4MPI_RUN_MPI_C_LIB", "/host/libmpi.so")
	os.Unsetenv("WI4MPI_RUN_MPI_F_LIB")

	out := RewriteRunLibEnv(map[string]string{"OTHER": "kept"}, func(p string) string {
		return "/container" + p
	})

	if out["OTHER"] != "kept" {
		t.Errorf("expected pre-existing env preserved")
	}
	if out["WI4MPI_RUN_MPI_C_LIB"] != "/container/host/libmpi.so" {
		t.Errorf("got %q", out["WI4MPI_RUN_MPI_C_LIB"])
	}
	if _, ok := out["WI4MPI_RUN_MPI_F_LIB"]; ok {
		t.Errorf("expected unset var to be skipped")
	}
}
