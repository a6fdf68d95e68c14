// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package container is the thin facade the rest of the launch pipeline
// consumes: bind_file, cache, libc_v, and run. Driving an actual container
// runtime is delegated to a Backend implementation; this package owns only
// the bookkeeping (accumulated bind directives, memoized analysis results).
package container

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/mpishim/mpishim/internal/pkg/launcherr"
	"github.com/mpishim/mpishim/internal/pkg/version"
	"github.com/mpishim/mpishim/pkg/sylog"
)

// FileOption qualifies how a bind directive is mounted.
type FileOption int

const (
	// ReadOnly mounts the source read-only inside the container.
	ReadOnly FileOption = iota
	// ReadWrite mounts the source read-write inside the container.
	ReadWrite
)

// BindDirective records one source -> destination mount, keyed by
// destination for de-duplication.
type BindDirective struct {
	Source string
	Dest   string
	Option FileOption
}

// Backend is the interface a container-runtime driver implements. Backends
// are external collaborators: the core only needs them to run an analysis
// subcommand and to launch the final command with the accumulated binds
// applied.
type Backend interface {
	// Name identifies the backend for --backend selection.
	Name() string
	// Analyze runs the in-container analysis subcommand against image,
	// passing the requested sonames, and returns its JSON stdout.
	Analyze(ctx context.Context, image string, binds []BindDirective, sonames []string) ([]byte, error)
	// Run launches argv inside image with binds applied, returning the
	// child's exit code.
	Run(ctx context.Context, image string, binds []BindDirective, argv []string, env map[string]string) (int, error)
}

// Container is the facade threaded through the selector and import planner.
type Container struct {
	id      string
	backend Backend
	image   string

	binds   []BindDirective
	bindIdx map[string]int // dest -> index in binds, for de-duplication

	cache       map[string]string
	libcVersion version.Version
	analyzed    bool

	// ImportLibraryDir and ImportBinaryDir are the fixed in-container
	// directories host libraries/binaries are bound under.
	ImportLibraryDir string
	ImportBinaryDir  string

	// LinkerPath lists static per-runtime directories to prepend to the
	// search path, ahead of anything computed from the library set.
	LinkerPath []string

	// ScriptPath is the in-container destination of the rendered
	// entrypoint script.
	ScriptPath string
}

const (
	defaultImportLibraryDir = "/.mpishim/hostlibs"
	defaultImportBinaryDir  = "/.mpishim/hostbin"
	defaultScriptPath       = "/.mpishim/entrypoint.sh"
)

// New constructs a Container bound to the given backend and image.
func New(backend Backend, image string) *Container {
	return &Container{
		id:               uuid.NewString(),
		backend:          backend,
		image:            image,
		bindIdx:          map[string]int{},
		ImportLibraryDir: defaultImportLibraryDir,
		ImportBinaryDir:  defaultImportBinaryDir,
		ScriptPath:       defaultScriptPath,
	}
}

// ID returns the random per-invocation identifier (a UUID) assigned to this
// Container by New; every Container gets a distinct one.
func (c *Container) ID() string { return c.id }

// BindFile records a mount directive. It is idempotent: a later bind to a
// destination already bound supersedes the earlier one, logged at debug
// level (BindingConflict is not fatal).
func (c *Container) BindFile(source, dest string, option FileOption) {
	if dest == "" {
		dest = filepath.Join(c.ImportLibraryDir, filepath.Base(source))
	}

	if idx, ok := c.bindIdx[dest]; ok {
		sylog.Debugf("overriding bind destination %s: %s -> %s", dest, c.binds[idx].Source, source)
		c.binds[idx] = BindDirective{Source: source, Dest: dest, Option: option}
		return
	}

	c.bindIdx[dest] = len(c.binds)
	c.binds = append(c.binds, BindDirective{Source: source, Dest: dest, Option: option})
}

// Binds returns the accumulated bind directives in insertion order.
func (c *Container) Binds() []BindDirective {
	return c.binds
}

// GetData runs the backend's in-container analysis subcommand once and
// memoizes Cache/LibcVersion; subsequent calls are no-ops.
func (c *Container) GetData(ctx context.Context, sonames []string) error {
	if c.analyzed {
		return nil
	}

	out, err := c.backend.Analyze(ctx, c.image, c.binds, sonames)
	if err != nil {
		return launcherr.New(launcherr.ContainerFailure, "analyzing container: %v", err)
	}

	cache, libcVersion, err := parseAnalysis(out)
	if err != nil {
		return launcherr.New(launcherr.ContainerFailure, "parsing analysis output: %v", err)
	}

	c.cache = cache
	c.libcVersion = libcVersion
	c.analyzed = true
	return nil
}

// Cache is the guest's SONAME -> absolute in-container path index,
// populated by GetData.
func (c *Container) Cache() map[string]string { return c.cache }

// LibcVersion is the guest's C-runtime Version, populated by GetData.
func (c *Container) LibcVersion() version.Version { return c.libcVersion }

// Run hands the accumulated binds and argv to the backend.
func (c *Container) Run(ctx context.Context, argv []string, env map[string]string) (int, error) {
	return c.backend.Run(ctx, c.image, c.binds, argv, env)
}
