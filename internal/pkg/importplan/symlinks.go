// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package importplan

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mpishim/mpishim/pkg/sylog"
)

// libcVersionedName matches the on-disk filename libc actually ships under
// (e.g. libc-2.33.so), which diverges from its SONAME (libc.so.6) - the
// special case called out by the design.
var libcVersionedName = regexp.MustCompile(`^(lib[a-z]+)-2\.[0-9]+$`)

// soLinks locates every symbolic link in libPath's directory whose realpath
// equals libPath's realpath, so that whichever spelling a resolver asks for
// is satisfied - the classical libfoo.so -> libfoo.so.N.M chain, plus
// glibc's libc-2.XX.so <-> libc.so.6 naming split.
func soLinks(libPath string) ([]string, error) {
	target, err := filepath.EvalSymlinks(libPath)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(libPath)
	base := filepath.Base(libPath)

	prefixes := []string{strings.SplitN(base, ".so", 2)[0]}
	if m := libcVersionedName.FindStringSubmatch(prefixes[0]); m != nil {
		prefixes = append(prefixes, m[1])
	}

	seen := map[string]struct{}{}
	var links []string

	for _, prefix := range prefixes {
		candidates, err := filepath.Glob(filepath.Join(dir, prefix+".so*"))
		if err != nil {
			sylog.Debugf("globbing symlinks for %s: %v", libPath, err)
			continue
		}
		for _, candidate := range candidates {
			if _, ok := seen[candidate]; ok {
				continue
			}

			resolved, err := filepath.EvalSymlinks(candidate)
			if err != nil {
				sylog.Debugf("resolving candidate %s: %v", candidate, err)
				continue
			}
			if resolved != target {
				continue
			}

			seen[candidate] = struct{}{}
			links = append(links, candidate)
		}
	}

	if len(links) == 0 {
		links = append(links, libPath)
	}
	return links, nil
}
