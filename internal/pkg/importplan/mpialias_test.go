// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package importplan

import "testing"

func TestClassifyMPIFamilyMPICHLineage(t *testing.T) {
	cases := []struct {
		soname string
		want   mpiFamily
		wantOK bool
	}{
		{"libmpi.so.12", familyMPI, true},
		{"libmpi.so.12.1.1", familyMPI, true},
		{"libmpi_cray.so.12", familyMPI, true},
		{"libmpi.so.40", "", false}, // Open MPI SONAME explicitly excluded
		{"libmpifort.so.12", familyMPIFort, true},
		{"libmpi_usempi.so.12", "", false},
		{"libmpicxx.so.12", familyMPICxx, true},
		{"libmpi_cxx.so.12", familyMPICxx, true},
		{"libfoo.so.1", "", false},
	}

	for _, c := range cases {
		got, ok := classifyMPIFamily(c.soname, "")
		if ok != c.wantOK {
			t.Errorf("classifyMPIFamily(%q) ok = %v, want %v", c.soname, ok, c.wantOK)
			continue
		}
		if ok && got != c.want {
			t.Errorf("classifyMPIFamily(%q) = %v, want %v", c.soname, got, c.want)
		}
	}
}

func TestClassifyMPIFamilyFallsBackToFilename(t *testing.T) {
	got, ok := classifyMPIFamily("", "libmpi.so.12.1.1")
	if !ok || got != familyMPI {
		t.Errorf("expected filename fallback to classify as mpi, got %v, %v", got, ok)
	}
}

func TestGuestFamilySonames(t *testing.T) {
	cache := map[string]string{
		"libmpich.so.12":     "/guest/libmpich.so.12",
		"libmpichfort.so.12": "/guest/libmpichfort.so.12",
		"libfoo.so.1":        "/guest/libfoo.so.1",
	}

	got := guestFamilySonames(cache, familyMPI)
	if len(got) != 1 || got[0] != "libmpich.so.12" {
		t.Errorf("guestFamilySonames(mpi) = %v", got)
	}
}
