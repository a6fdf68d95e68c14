// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package importplan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mpishim/mpishim/internal/pkg/container"
	"github.com/mpishim/mpishim/internal/pkg/elfinfo"
	"github.com/mpishim/mpishim/internal/pkg/entrypoint"
	"github.com/mpishim/mpishim/internal/pkg/libraryset"
)

type fakeBackend struct {
	analysisJSON []byte
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Analyze(ctx context.Context, image string, binds []container.BindDirective, sonames []string) ([]byte, error) {
	return f.analysisJSON, nil
}

func (f *fakeBackend) Run(ctx context.Context, image string, binds []container.BindDirective, argv []string, env map[string]string) (int, error) {
	return 0, nil
}

func newLibrary(t *testing.T, path, soname string, needed []string) *libraryset.Library {
	t.Helper()
	return libraryset.FromInfo(&elfinfo.Info{
		BinaryPath: path,
		SOName:     soname,
		Needed:     needed,
	}, libraryset.Host)
}

func TestApplyMPIAliasingBindsGuestSoname(t *testing.T) {
	dir := t.TempDir()
	libPath := filepath.Join(dir, "libmpi.so.12.1.1")
	if err := os.WriteFile(libPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	set := libraryset.New()
	set.Add(newLibrary(t, libPath, "libmpi.so.12", nil))

	backend := &fakeBackend{analysisJSON: []byte(`{"libc_version":"2.31","libraries":[{"soname":"libmpich.so.12","binary_path":"/guest/libmpich.so.12"}]}`)}
	c := container.New(backend, "dummy")
	if err := c.GetData(context.Background(), nil); err != nil {
		t.Fatalf("GetData: %v", err)
	}

	ep := entrypoint.New()
	if err := Apply(set, c, ep); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	found := false
	want := filepath.Join(c.ImportLibraryDir, "libmpich.so.12")
	for _, b := range c.Binds() {
		if b.Dest == want && b.Source == libPath {
			found = true
		}
	}
	if !found {
		t.Errorf("expected alias bind to %s from %s, got binds: %+v", want, libPath, c.Binds())
	}
}

func TestApplyPreloadsTopLevel(t *testing.T) {
	dir := t.TempDir()
	topPath := filepath.Join(dir, "libtop.so")
	if err := os.WriteFile(topPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	set := libraryset.New()
	set.Add(newLibrary(t, topPath, "libtop.so", nil))

	backend := &fakeBackend{analysisJSON: []byte(`{"libc_version":"2.31","libraries":[]}`)}
	c := container.New(backend, "dummy")
	if err := c.GetData(context.Background(), nil); err != nil {
		t.Fatal(err)
	}

	ep := entrypoint.New()
	if err := Apply(set, c, ep); err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(c.ImportLibraryDir, "libtop.so")
	if len(ep.Preload) != 1 || ep.Preload[0] != want {
		t.Errorf("Preload = %v, want [%s]", ep.Preload, want)
	}
}
