// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cli

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mpishim/mpishim/internal/pkg/container"
	"github.com/mpishim/mpishim/internal/pkg/entrypoint"
	"github.com/mpishim/mpishim/internal/pkg/importplan"
	"github.com/mpishim/mpishim/internal/pkg/libraryset"
	"github.com/mpishim/mpishim/internal/pkg/linker"
	"github.com/mpishim/mpishim/internal/pkg/selector"
	"github.com/mpishim/mpishim/pkg/sylog"
)

var (
	executeBackend   string
	executeImage     string
	executeFiles     string
	executeLibraries string
	executeSource    string
)

// executeCmd implements the Parse -> Seed -> Closure -> Analyze-Container ->
// Select -> Plan -> Render -> Launch -> Teardown state machine.
var executeCmd = &cobra.Command{
	Use:                "execute --backend NAME --image PATH [flags] -- COMMAND...",
	Short:              "Execute a command in a container with a tailor-made library environment",
	Hidden:             true,
	DisableFlagParsing: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := runExecute(cmd.Context(), args)
		if err != nil {
			sylog.Errorf("%s", err)
			os.Exit(1)
		}
		os.Exit(code)
		return nil
	},
}

func init() {
	executeCmd.Flags().StringVar(&executeBackend, "backend", "", "container-runtime adapter to use")
	executeCmd.Flags().StringVar(&executeImage, "image", "", "container image to use")
	executeCmd.Flags().StringVar(&executeFiles, "files", "", "comma-separated files to bind (PATH or HOST:GUEST)")
	executeCmd.Flags().StringVar(&executeLibraries, "libraries", "", "comma-separated existing host library paths")
	executeCmd.Flags().StringVar(&executeSource, "source", "", "script to source before the command")
	_ = executeCmd.MarkFlagRequired("backend")
	_ = executeCmd.MarkFlagRequired("image")

	rootCmd.AddCommand(executeCmd)
}

func newBackend(name string) (container.Backend, error) {
	if name == "" {
		name = config.DefaultBackend
	}
	switch name {
	case "apptainer", "":
		return container.NewApptainerBackend(""), nil
	case "docker":
		return container.NewDockerBackend(""), nil
	default:
		return nil, sylogBackendError(name)
	}
}

func sylogBackendError(name string) error {
	return &unknownBackendError{name: name}
}

type unknownBackendError struct{ name string }

func (e *unknownBackendError) Error() string {
	return "unknown container backend: " + e.name
}

// splitList splits a comma-separated flag value, dropping empty segments.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// fileBind is one parsed --files entry.
type fileBind struct {
	source, dest string
}

// parseFiles parses the --files flag's PATH or HOST:GUEST items. An item
// with more than one ':' is a BadFileSpec: skipped with an error log,
// execute continues.
func parseFiles(raw string) []fileBind {
	var binds []fileBind
	for _, item := range splitList(raw) {
		if item == "/" {
			sylog.Warningf("ignoring bind of '/' from --files")
			continue
		}

		parts := strings.Split(item, ":")
		switch len(parts) {
		case 1:
			binds = append(binds, fileBind{source: parts[0], dest: parts[0]})
		case 2:
			binds = append(binds, fileBind{source: parts[0], dest: parts[1]})
		default:
			sylog.Errorf("bad --files entry %q: more than one ':'", item)
		}
	}
	return binds
}

func runExecute(ctx context.Context, cmd []string) (int, error) {
	backend, err := newBackend(executeBackend)
	if err != nil {
		return 1, err
	}

	if len(config.ExtraLibraryPath) > 0 {
		linker.SetExtraDirs(config.ExtraLibraryPath)
	}

	c := container.New(backend, executeImage)
	if config.ImportLibraryDir != "" {
		c.ImportLibraryDir = config.ImportLibraryDir
	}
	if config.ImportBinaryDir != "" {
		c.ImportBinaryDir = config.ImportBinaryDir
	}

	ep := entrypoint.New()
	ep.SourceScriptPath = executeSource
	ep.Command = cmd
	ep.Debug = debugFlag

	libraryPaths := splitList(executeLibraries)
	libSet, err := libraryset.CreateFromPaths(libraryPaths)
	if err != nil {
		return 1, err
	}

	sonames := libSet.SONames()
	if err := c.GetData(ctx, sonames); err != nil {
		return 1, err
	}

	if len(libraryPaths) > 0 {
		selected, err := selector.Select(ctx, libSet, c, ep)
		if err != nil {
			return 1, err
		}

		for _, line := range selected.LddFormat() {
			sylog.Debugf("%s", line)
		}

		if err := importplan.Apply(selected, c, ep); err != nil {
			return 1, err
		}
		ep.LinkerLibraryPath = append(append([]string(nil), c.LinkerPath...), c.ImportLibraryDir)
	}

	for _, fb := range parseFiles(executeFiles) {
		c.BindFile(fb.source, fb.dest, container.ReadWrite)
	}

	scriptPath, err := ep.Setup()
	if err != nil {
		return 1, err
	}
	defer ep.Teardown()

	c.BindFile(scriptPath, c.ScriptPath, container.ReadOnly)

	code, err := c.Run(ctx, []string{c.ScriptPath}, ep.ExtraEnv)
	if err != nil {
		return 1, err
	}
	return code, nil
}
