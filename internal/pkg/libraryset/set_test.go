package libraryset

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mpishim/mpishim/internal/pkg/elfinfo"
)

func newTestLibrary(soname string, needed []string, origin Origin) *Library {
	return FromInfo(&elfinfo.Info{
		BinaryPath:       "/fake/" + soname,
		SOName:           soname,
		Needed:           needed,
		DefinedVersions:  map[string]struct{}{},
		RequiredVersions: map[string]struct{}{},
	}, origin)
}

func TestAddAndFind(t *testing.T) {
	s := New()
	lib := newTestLibrary("libmpi.so.12", []string{"libc.so.6"}, Host)
	s.Add(lib)

	if got := s.Find("libmpi.so.12"); got == nil {
		t.Fatal("Find did not return the added library")
	}
	if got := s.Find("libdoesnotexist.so"); got != nil {
		t.Fatal("Find returned a library for an absent soname")
	}
}

func TestMissingLibrariesInvariant(t *testing.T) {
	s := New()
	s.Add(newTestLibrary("libmpi.so.12", []string{"libc.so.6", "libpthread.so.0"}, Host))
	s.Add(newTestLibrary("libc.so.6", nil, Host))

	missing := s.MissingLibraries()
	if len(missing) != 1 || missing[0] != "libpthread.so.0" {
		t.Fatalf("MissingLibraries() = %v, want [libpthread.so.0]", missing)
	}

	// Invariant: every N in L.needed is either a soname present in the
	// set or a member of missing_libraries.
	for _, l := range s.Members() {
		for _, n := range l.Needed() {
			if s.Find(n) == nil {
				found := false
				for _, m := range missing {
					if m == n {
						found = true
					}
				}
				if !found {
					t.Errorf("needed %q is neither present nor missing", n)
				}
			}
		}
	}
}

func TestTopLevel(t *testing.T) {
	s := New()
	s.Add(newTestLibrary("libmpi.so.12", []string{"libc.so.6"}, Host))
	s.Add(newTestLibrary("libc.so.6", nil, Host))

	top := s.TopLevel()
	names := top.SONames()
	if diff := cmp.Diff([]string{"libmpi.so.12"}, names); diff != "" {
		t.Errorf("TopLevel().SONames() mismatch (-want +got):\n%s", diff)
	}

	// top_level ∩ {L | exists M. L.soname ∈ M.needed} = ∅
	for _, l := range top.Members() {
		for _, other := range s.Members() {
			for _, n := range other.Needed() {
				if n == l.SOName() {
					t.Errorf("%q is in top_level but is needed by %q", l.SOName(), other.SOName())
				}
			}
		}
	}
}

func TestGlib(t *testing.T) {
	s := New()
	s.Add(newTestLibrary("libc.so.6", nil, Host))
	s.Add(newTestLibrary("libmpi.so.12", []string{"libc.so.6"}, Host))

	glib := s.Glib()
	if glib.Len() != 1 || glib.Find("libc.so.6") == nil {
		t.Fatalf("Glib() = %v, want just libc.so.6", glib.SONames())
	}
}

func TestLinkersMatchesFilenameToo(t *testing.T) {
	s := New()
	lib := FromInfo(&elfinfo.Info{
		BinaryPath:       "/lib64/ld-linux-x86-64.so.2",
		SOName:           "",
		DefinedVersions:  map[string]struct{}{},
		RequiredVersions: map[string]struct{}{},
	}, Host)
	s.Add(lib)

	if s.Linkers().Len() != 1 {
		t.Fatalf("Linkers() did not classify %s as a linker", lib.FileName())
	}
}

func TestUnionDifferencePreserveOrigin(t *testing.T) {
	a := New()
	a.Add(newTestLibrary("libmpi.so.12", nil, Host))

	b := New()
	b.Add(newTestLibrary("libmpi.so.12", nil, Guest))
	b.Add(newTestLibrary("libc.so.6", nil, Guest))

	// Keys include the origin, so the Host and Guest libmpi.so.12 are
	// distinct members.
	union := a.Union(b)
	if union.Len() != 3 {
		t.Fatalf("Union() length = %d, want 3", union.Len())
	}

	diff := union.Difference(a)
	if diff.Len() != 2 {
		t.Fatalf("Difference() length = %d, want 2", diff.Len())
	}
	for _, l := range diff.Members() {
		if l.Origin() != Guest {
			t.Errorf("Difference() lost the Guest origin tag of %s", l.SOName())
		}
	}
}
