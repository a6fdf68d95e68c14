// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package libraryset

import (
	"github.com/mpishim/mpishim/internal/pkg/launcherr"
	"github.com/mpishim/mpishim/internal/pkg/linker"
	"github.com/mpishim/mpishim/pkg/sylog"
)

// CreateFromPaths opens each path with the ELF reader, tags it Host, and
// performs the transitive closure over NEEDED dependencies described in the
// design: for each library not yet processed, each NEEDED soname not
// already present is resolved via linker.Resolve and, if found, read and
// added in turn. Unresolved sonames remain listed in MissingLibraries;
// already-present membership terminates cycles.
//
// Files that are not ELF (NotElf) are skipped silently, matching the
// disposition table. A MalformedElf failure on any path, whether a seed or a
// resolved dependency, aborts the whole closure.
func CreateFromPaths(paths []string) (*LibrarySet, error) {
	set := New()
	seenPaths := map[string]struct{}{}

	queue := append([]string(nil), paths...)
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]

		if _, done := seenPaths[path]; done {
			continue
		}
		seenPaths[path] = struct{}{}

		lib, err := FromHostPath(path)
		if err != nil {
			if launcherr.Is(err, launcherr.NotElf) {
				sylog.Debugf("skipping non-ELF file %s", path)
				continue
			}
			return nil, err
		}

		set.Add(lib)

		for _, needed := range lib.Needed() {
			if set.Find(needed) != nil {
				continue
			}
			resolved, ok := linker.Resolve(needed, lib.RPath(), lib.RunPath())
			if !ok {
				sylog.Debugf("could not resolve NEEDED %s for %s", needed, path)
				continue
			}
			queue = append(queue, resolved)
		}
	}

	return set, nil
}
