// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package container

import (
	"encoding/json"
	"fmt"

	"github.com/mpishim/mpishim/internal/pkg/libraryset"
	"github.com/mpishim/mpishim/internal/pkg/version"
)

// analysisLibrary mirrors one entry of the "libraries" array in the
// in-container analysis JSON document.
type analysisLibrary struct {
	SOName           string   `json:"soname"`
	BinaryPath       string   `json:"binary_path"`
	Needed           []string `json:"needed"`
	RPath            string   `json:"rpath"`
	RunPath          string   `json:"runpath"`
	DefinedVersions  []string `json:"defined_versions"`
	RequiredVersions []string `json:"required_versions"`
}

// analysisDocument is the top-level shape of the analysis JSON.
type analysisDocument struct {
	LibcVersion string            `json:"libc_version"`
	Libraries   []analysisLibrary `json:"libraries"`
}

// parseAnalysis decodes the in-container analysis subcommand's JSON output
// into a guest SONAME->path cache and the guest's libc version. Only the
// soname and binary_path of each library entry are kept; guestLibrarySet
// rebuilds the full Guest-tagged entries.
func parseAnalysis(data []byte) (map[string]string, version.Version, error) {
	var doc analysisDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("malformed analysis document: %w", err)
	}

	cache := make(map[string]string, len(doc.Libraries))
	for _, lib := range doc.Libraries {
		if lib.SOName != "" {
			cache[lib.SOName] = lib.BinaryPath
		}
	}

	return cache, version.Parse(doc.LibcVersion), nil
}

// guestLibrarySet rebuilds a *libraryset.LibrarySet of Guest-tagged Library
// values from an analysis document: the full guest-side set rather than
// just the soname cache that GetData keeps.
func guestLibrarySet(data []byte) (*libraryset.LibrarySet, error) {
	var doc analysisDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed analysis document: %w", err)
	}

	set := libraryset.New()
	for _, lib := range doc.Libraries {
		set.Add(libraryset.FromAnalysisEntry(
			lib.BinaryPath, lib.SOName, lib.Needed, lib.RPath, lib.RunPath,
			lib.DefinedVersions, lib.RequiredVersions,
		))
	}
	return set, nil
}
