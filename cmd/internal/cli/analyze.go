// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/mpishim/mpishim/internal/pkg/libraryset"
	"github.com/mpishim/mpishim/internal/pkg/linker"
	"github.com/mpishim/mpishim/internal/pkg/selector"
	"github.com/mpishim/mpishim/pkg/sylog"
)

// analysisLibraryOut mirrors one entry of the "libraries" array in the
// design's analysis wire format.
type analysisLibraryOut struct {
	SOName           string   `json:"soname"`
	BinaryPath       string   `json:"binary_path"`
	Needed           []string `json:"needed"`
	RPath            string   `json:"rpath"`
	RunPath          string   `json:"runpath"`
	DefinedVersions  []string `json:"defined_versions"`
	RequiredVersions []string `json:"required_versions"`
}

type analysisDocumentOut struct {
	LibcVersion string               `json:"libc_version"`
	Libraries   []analysisLibraryOut `json:"libraries"`
}

// analyzeCmd is run inside the container by the backend's Analyze call. It
// resolves each requested SONAME against the guest's own linker
// configuration and reports the guest's libc version, so the host side can
// compare and build its cache without entering the container itself.
var analyzeCmd = &cobra.Command{
	Use:    "analyze [sonames...]",
	Short:  "Report guest library information as JSON (internal)",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(args)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(sonames []string) error {
	libcVersion, err := selector.HostLibcVersion()
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(sonames))
	for _, soname := range sonames {
		path, ok := linker.Resolve(soname, "", "")
		if !ok {
			sylog.Debugf("analyze: could not resolve %s in guest", soname)
			continue
		}
		paths = append(paths, path)
	}

	set, err := libraryset.CreateFromPaths(paths)
	if err != nil {
		return err
	}

	doc := analysisDocumentOut{LibcVersion: libcVersion.String()}
	for _, lib := range set.Members() {
		entry := lib.ToAnalysisEntry()
		doc.Libraries = append(doc.Libraries, analysisLibraryOut{
			SOName:           entry.SOName,
			BinaryPath:       entry.BinaryPath,
			Needed:           entry.Needed,
			RPath:            entry.RPath,
			RunPath:          entry.RunPath,
			DefinedVersions:  entry.DefinedVersions,
			RequiredVersions: entry.RequiredVersions,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(doc)
}
