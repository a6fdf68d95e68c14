// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package container

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/mpishim/mpishim/internal/pkg/launcherr"
)

// DockerBackend drives the docker CLI as a subprocess, mirroring
// ApptainerBackend's contract for a bind-mount based runtime.
type DockerBackend struct {
	Executable string
}

// NewDockerBackend returns a backend invoking executable (or "docker" if
// empty).
func NewDockerBackend(executable string) *DockerBackend {
	if executable == "" {
		executable = "docker"
	}
	return &DockerBackend{Executable: executable}
}

func (b *DockerBackend) Name() string { return "docker" }

func dockerBindArgs(binds []BindDirective) []string {
	args := make([]string, 0, len(binds)*2)
	for _, bind := range binds {
		mode := "ro"
		if bind.Option == ReadWrite {
			mode = "rw"
		}
		args = append(args, "-v", fmt.Sprintf("%s:%s:%s", bind.Source, bind.Dest, mode))
	}
	return args
}

func (b *DockerBackend) Analyze(ctx context.Context, image string, binds []BindDirective, sonames []string) ([]byte, error) {
	args := append([]string{"run", "--rm"}, dockerBindArgs(binds)...)
	args = append(args, image, "mpishim", "analyze")
	args = append(args, sonames...)

	cmd := exec.CommandContext(ctx, b.Executable, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := runWithSignalPropagation(ctx, cmd); err != nil {
		return nil, launcherr.New(launcherr.ContainerFailure, "docker analyze: %v: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

func (b *DockerBackend) Run(ctx context.Context, image string, binds []BindDirective, argv []string, env map[string]string) (int, error) {
	args := append([]string{"run", "--rm", "-i"}, dockerBindArgs(binds)...)
	for k, v := range env {
		args = append(args, "-e", k+"="+v)
	}
	args = append(args, image)
	args = append(args, argv...)

	cmd := exec.CommandContext(ctx, b.Executable, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := runWithSignalPropagation(ctx, cmd); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, launcherr.New(launcherr.ContainerFailure, "docker run: %v", err)
	}
	return 0, nil
}
