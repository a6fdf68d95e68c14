// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package importplan

import "regexp"

// mpiFamily names one of the MPICH-lineage library families the conservative
// aliasing policy recognizes.
type mpiFamily string

const (
	familyMPI     mpiFamily = "mpi"
	familyMPIFort mpiFamily = "mpifort"
	familyMPICxx  mpiFamily = "mpicxx"
)

// Open MPI's libmpi.so.40* SONAME lineage, and the Fortran/C++ binding
// shims (libmpi_mpifh, libmpi_usempi, libmpi_usempif08), are explicitly
// excluded so that only the MPICH lineage is aliased.
var (
	mpiPattern        = regexp.MustCompile(`^libmpi(_cray)?\.so(\.\d+)*$`)
	mpiOpenMPIExclude = regexp.MustCompile(`^libmpi\.so\.4\d+`)
	mpiFortPattern    = regexp.MustCompile(`^libmpifort(_cray)?\.so(\.\d+)*$`)
	mpiFortExclude    = regexp.MustCompile(`^libmpi_(mpifh|usempi|usempif08)\.so`)
	mpiCxxPattern     = regexp.MustCompile(`^(libmpicxx|libmpi_cxx)\.so(\.\d+)*$`)
)

// guestFamilyPatterns classifies guest-side SONAMEs using the MPICH-style
// naming scheme the Wi4MPI hook also aliases to (libmpich.so.N,
// libmpichfort.so.N, libmpichcxx.so.N): a guest binary linked against one of
// these belongs to the same family as the corresponding host pattern above.
var guestFamilyPatterns = map[mpiFamily]*regexp.Regexp{
	familyMPI:     regexp.MustCompile(`^libmpich\.so(\.\d+)*$`),
	familyMPIFort: regexp.MustCompile(`^libmpichfort\.so(\.\d+)*$`),
	familyMPICxx:  regexp.MustCompile(`^libmpichcxx\.so(\.\d+)*$`),
}

// classifyMPIFamily classifies a library by SONAME, falling back to its
// filename, into one of the MPICH-lineage families. It returns ok=false for
// anything else, including Open MPI's libmpi.so.4* SONAMEs.
func classifyMPIFamily(soname, filename string) (mpiFamily, bool) {
	for _, name := range []string{soname, filename} {
		if name == "" {
			continue
		}
		if mpiPattern.MatchString(name) && !mpiOpenMPIExclude.MatchString(name) {
			return familyMPI, true
		}
		if mpiFortPattern.MatchString(name) && !mpiFortExclude.MatchString(name) {
			return familyMPIFort, true
		}
		if mpiCxxPattern.MatchString(name) {
			return familyMPICxx, true
		}
	}
	return "", false
}

// guestFamilySonames returns, from the guest cache keys, the subset
// belonging to the same family as want, under the guest-side MPICH-style
// naming scheme.
func guestFamilySonames(cache map[string]string, want mpiFamily) []string {
	pattern := guestFamilyPatterns[want]
	if pattern == nil {
		return nil
	}

	var out []string
	for soname := range cache {
		if pattern.MatchString(soname) {
			out = append(out, soname)
		}
	}
	return out
}
