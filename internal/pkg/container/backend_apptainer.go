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
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/mpishim/mpishim/internal/pkg/launcherr"
	"github.com/mpishim/mpishim/pkg/sylog"
)

// ApptainerBackend drives the apptainer CLI as a subprocess. It is a thin
// os/exec adapter: the library-selection and import-planning logic above it
// never depends on apptainer's own Go API or the OCI runtime stack, so
// swapping backends only means implementing this interface again.
type ApptainerBackend struct {
	// Executable is the apptainer binary to invoke; defaults to
	// "apptainer" resolved via PATH.
	Executable string
}

// NewApptainerBackend returns a backend invoking executable (or "apptainer"
// if empty).
func NewApptainerBackend(executable string) *ApptainerBackend {
	if executable == "" {
		executable = "apptainer"
	}
	return &ApptainerBackend{Executable: executable}
}

func (b *ApptainerBackend) Name() string { return "apptainer" }

// bindArgs renders binds as repeated --bind flags.
func bindArgs(binds []BindDirective) []string {
	args := make([]string, 0, len(binds)*2)
	for _, bind := range binds {
		flag := "--bind"
		mode := "ro"
		if bind.Option == ReadWrite {
			mode = "rw"
		}
		args = append(args, flag, fmt.Sprintf("%s:%s:%s", bind.Source, bind.Dest, mode))
	}
	return args
}

func (b *ApptainerBackend) Analyze(ctx context.Context, image string, binds []BindDirective, sonames []string) ([]byte, error) {
	args := append([]string{"exec"}, bindArgs(binds)...)
	args = append(args, image, "mpishim", "analyze")
	args = append(args, sonames...)

	cmd := exec.CommandContext(ctx, b.Executable, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := runWithSignalPropagation(ctx, cmd); err != nil {
		return nil, launcherr.New(launcherr.ContainerFailure, "apptainer analyze: %v: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

func (b *ApptainerBackend) Run(ctx context.Context, image string, binds []BindDirective, argv []string, env map[string]string) (int, error) {
	args := append([]string{"exec"}, bindArgs(binds)...)
	args = append(args, image)
	args = append(args, argv...)

	cmd := exec.CommandContext(ctx, b.Executable, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	if err := runWithSignalPropagation(ctx, cmd); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, launcherr.New(launcherr.ContainerFailure, "apptainer run: %v", err)
	}
	return 0, nil
}

// runWithSignalPropagation starts cmd and forwards SIGINT/SIGTERM to it
// while it runs, so that a signal received during the container-analysis or
// run wait propagates termination to the child rather than orphaning it.
func runWithSignalPropagation(ctx context.Context, cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	for {
		select {
		case sig := <-sigCh:
			sylog.Debugf("forwarding signal %v to container child (pid %d)", sig, cmd.Process.Pid)
			_ = cmd.Process.Signal(sig.(unix.Signal))
		case err := <-done:
			return err
		case <-ctx.Done():
			_ = cmd.Process.Signal(unix.SIGTERM)
			return ctx.Err()
		}
	}
}
