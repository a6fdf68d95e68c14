// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package entrypoint assembles the launcher-script parameters the selector
// and import planner populate, and renders them into the /bin/sh script the
// container actually executes.
package entrypoint

import (
	"os"
	"strings"
	"text/template"

	"github.com/mpishim/mpishim/internal/pkg/elfinfo"
	"github.com/mpishim/mpishim/pkg/sylog"
)

// scriptTemplate is the literal launcher script layout.
const scriptTemplate = `#!/bin/sh
{{.SourceScript}}
{{.Debugging}}
export LD_LIBRARY_PATH={{.LibraryDir}}${LD_LIBRARY_PATH:+:${LD_LIBRARY_PATH}}
export LD_PRELOAD={{.Preload}}${LD_PRELOAD:+:${LD_PRELOAD}}
{{range $k, $v := .ExtraEnv}}export {{$k}}={{$v}}
{{end}}{{.Linker}} {{.Command}}
`

var tmpl = template.Must(template.New("entrypoint").Parse(scriptTemplate))

// Params is the mutable struct the selector and import planner populate
// before the script is rendered.
type Params struct {
	// Command is the argument vector to run in the container.
	Command []string

	// SourceScriptPath, if set, is sourced before Command.
	SourceScriptPath string

	// LinkerLibraryPath is an ordered list of directories prepended to
	// the inherited LD_LIBRARY_PATH, the first entry taking precedence.
	LinkerLibraryPath []string

	// Preload is an ordered, de-duplicated (by first occurrence) list of
	// absolute in-container library paths to LD_PRELOAD.
	Preload []string

	// Linker, if set, is the absolute in-container path to an explicit
	// dynamic linker to prefix Command with.
	Linker string

	// Interpreter is the absolute in-container path of the imported
	// shell, used to re-interpret script commands under Linker.
	Interpreter string

	// ExtraEnv is exposed for the Wi4MPI hook's environment-variable
	// rewriting.
	ExtraEnv map[string]string

	// Debug enables linker debugging (LD_DEBUG=files) in the rendered
	// script.
	Debug bool

	path string
}

// New returns an empty Params ready for population.
func New() *Params {
	return &Params{ExtraEnv: map[string]string{}}
}

type renderFields struct {
	SourceScript string
	Debugging    string
	LibraryDir   string
	Preload      string
	Linker       string
	Command      string
	ExtraEnv     map[string]string
}

// dedupPreserveOrder removes duplicates from items, keeping the first
// occurrence of each, matching how Preload entries should be de-duplicated.
func dedupPreserveOrder(items []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

// String renders the entrypoint script. If Linker is set, the command is
// prefixed with it: directly when the command's first argument is an ELF
// binary, or via the imported shell otherwise, so that script commands are
// re-interpreted under the imported C runtime.
func (p *Params) String() string {
	fields := renderFields{
		LibraryDir: strings.Join(p.LinkerLibraryPath, string(os.PathListSeparator)),
		Preload:    strings.Join(dedupPreserveOrder(p.Preload), ":"),
		Command:    strings.Join(p.Command, " "),
		ExtraEnv:   p.ExtraEnv,
	}

	if p.SourceScriptPath != "" {
		fields.SourceScript = ". " + p.SourceScriptPath
	}
	if p.Debug {
		fields.Debugging = "export LD_DEBUG=files"
	}

	if p.Linker != "" {
		if len(p.Command) > 0 && elfinfo.IsELF(p.Command[0]) {
			fields.Linker = p.Linker
		} else if p.Interpreter != "" {
			fields.Linker = p.Linker + " " + p.Interpreter
		} else {
			fields.Linker = p.Linker
		}
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, fields); err != nil {
		// The template is a compile-time constant; a render failure here
		// would be a programmer error, not a runtime condition callers
		// need to handle.
		panic(err)
	}
	return sb.String()
}

// Setup writes the rendered script to a fresh 0755 temp file and returns its
// path.
func (p *Params) Setup() (string, error) {
	f, err := os.CreateTemp("", "mpishim-entrypoint-*.sh")
	if err != nil {
		return "", err
	}
	path := f.Name()

	if _, err := f.WriteString(p.String()); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	if err := os.Chmod(path, 0o755); err != nil {
		os.Remove(path)
		return "", err
	}

	p.path = path
	sylog.Debugf("rendered launcher script at %s:\n%s", path, p.String())
	return path, nil
}

// Teardown removes the temp script created by Setup, if any. It is safe to
// call on every exit path, including failure.
func (p *Params) Teardown() {
	if p.path == "" {
		return
	}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		sylog.Debugf("removing launcher script %s: %v", p.path, err)
	}
	p.path = ""
}
