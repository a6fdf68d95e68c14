// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package entrypoint

import (
	"os"
	"strings"
	"testing"
)

func TestStringIncludesLibraryPathAndPreload(t *testing.T) {
	p := New()
	p.Command = []string{"/bin/true"}
	p.LinkerLibraryPath = []string{"/a/lib", "/b/lib"}
	p.Preload = []string{"/a/lib/libfoo.so", "/a/lib/libfoo.so", "/b/lib/libbar.so"}

	out := p.String()
	if !strings.Contains(out, "/a/lib"+string(os.PathListSeparator)+"/b/lib") {
		t.Errorf("library path not rendered in order: %q", out)
	}
	if !strings.Contains(out, "/a/lib/libfoo.so:/b/lib/libbar.so") {
		t.Errorf("preload not de-duplicated in order: %q", out)
	}
	if !strings.Contains(out, "/bin/true") {
		t.Errorf("command missing: %q", out)
	}
}

func TestStringWithoutLinkerOmitsPrefix(t *testing.T) {
	p := New()
	p.Command = []string{"/bin/true"}

	out := p.String()
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "/bin/true") {
			return
		}
	}
	t.Errorf("command line not found unprefixed: %q", out)
}

func TestStringWithLinkerAndInterpreter(t *testing.T) {
	p := New()
	p.Command = []string{"myscript.sh"}
	p.Linker = "/.mpishim/hostbin/ld-linux-x86-64.so.2"
	p.Interpreter = "/.mpishim/hostbin/bash"

	out := p.String()
	if !strings.Contains(out, p.Linker+" "+p.Interpreter+" myscript.sh") {
		t.Errorf("expected linker+interpreter prefix, got: %q", out)
	}
}

func TestSetupWritesExecutableFileAndTeardownRemovesIt(t *testing.T) {
	p := New()
	p.Command = []string{"/bin/true"}

	path, err := p.Setup()
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat rendered script: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("expected script to be executable, mode is %v", info.Mode())
	}

	p.Teardown()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected script to be removed after Teardown, stat err = %v", err)
	}

	// Teardown must be safe to call twice.
	p.Teardown()
}

func TestExtraEnvRendered(t *testing.T) {
	p := New()
	p.Command = []string{"/bin/true"}
	p.ExtraEnv["WI4MPI_ROOT"] = "/opt/wi4mpi"

	out := p.String()
	if !strings.Contains(out, "export WI4MPI_ROOT=/opt/wi4mpi") {
		t.Errorf("expected extra env export, got: %q", out)
	}
}
