// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package container

import (
	"context"
	"testing"
)

type countingBackend struct {
	name     string
	calls    int
	response []byte
}

func (b *countingBackend) Name() string { return b.name }

func (b *countingBackend) Analyze(ctx context.Context, image string, binds []BindDirective, sonames []string) ([]byte, error) {
	b.calls++
	return b.response, nil
}

func (b *countingBackend) Run(ctx context.Context, image string, binds []BindDirective, argv []string, env map[string]string) (int, error) {
	return 42, nil
}

func TestBindFileDeduplicatesByDestLaterWins(t *testing.T) {
	c := New(&countingBackend{}, "image")
	c.BindFile("/host/a", "/guest/x", ReadOnly)
	c.BindFile("/host/b", "/guest/x", ReadWrite)

	binds := c.Binds()
	if len(binds) != 1 {
		t.Fatalf("expected 1 bind after dedup, got %d", len(binds))
	}
	if binds[0].Source != "/host/b" || binds[0].Option != ReadWrite {
		t.Errorf("expected later bind to win, got %+v", binds[0])
	}
}

func TestBindFileDefaultsDest(t *testing.T) {
	c := New(&countingBackend{}, "image")
	c.BindFile("/host/libfoo.so", "", ReadOnly)

	binds := c.Binds()
	if len(binds) != 1 {
		t.Fatalf("expected 1 bind, got %d", len(binds))
	}
	want := c.ImportLibraryDir + "/libfoo.so"
	if binds[0].Dest != want {
		t.Errorf("Dest = %q, want %q", binds[0].Dest, want)
	}
}

func TestGetDataMemoized(t *testing.T) {
	backend := &countingBackend{response: []byte(`{"libc_version":"2.31","libraries":[{"soname":"libc.so.6","binary_path":"/guest/libc.so.6"}]}`)}
	c := New(backend, "image")

	if err := c.GetData(context.Background(), nil); err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if err := c.GetData(context.Background(), nil); err != nil {
		t.Fatalf("GetData (second): %v", err)
	}
	if backend.calls != 1 {
		t.Errorf("expected Analyze called once, got %d", backend.calls)
	}
	if c.Cache()["libc.so.6"] != "/guest/libc.so.6" {
		t.Errorf("Cache not populated: %+v", c.Cache())
	}
	if c.LibcVersion().String() != "2.31" {
		t.Errorf("LibcVersion = %s, want 2.31", c.LibcVersion())
	}
}

func TestRunDelegatesToBackend(t *testing.T) {
	c := New(&countingBackend{}, "image")
	code, err := c.Run(context.Background(), []string{"true"}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 42 {
		t.Errorf("code = %d, want 42", code)
	}
}

func TestIDsAreUnique(t *testing.T) {
	a := New(&countingBackend{}, "image")
	b := New(&countingBackend{}, "image")
	if a.ID() == b.ID() {
		t.Errorf("expected distinct IDs, both %s", a.ID())
	}
}
