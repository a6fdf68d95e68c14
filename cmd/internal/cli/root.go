// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package cli wires the mpishim command surface: a cobra root command with
// the hidden execute and analyze subcommands. Argument parsing beyond these
// two subcommands, and any persisted configuration/profile management, are
// explicitly out of scope.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mpishim/mpishim/internal/pkg/launchconf"
	"github.com/mpishim/mpishim/pkg/sylog"
)

var (
	debugFlag   bool
	verboseFlag bool
	quietFlag   bool
	configPath  string

	config launchconf.Config
)

// rootCmd is the top-level mpishim command. It is a thin dispatcher: all of
// the real work happens in the execute and analyze subcommands.
var rootCmd = &cobra.Command{
	Use:           "mpishim",
	Short:         "Run MPI-enabled commands inside containers with host library injection",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case debugFlag:
			sylog.SetLevel(sylog.DebugLevel)
		case verboseFlag:
			sylog.SetLevel(sylog.InfoLevel)
		case quietFlag:
			sylog.SetLevel(sylog.ErrorLevel)
		}

		cfg, err := launchconf.Load(configPath)
		if err != nil {
			return err
		}
		config = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "print debugging information (highest verbosity)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "print additional information")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "only print errors")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "configuration file")
}

func defaultConfigPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.mpishim.toml"
	}
	return "mpishim.toml"
}

// Execute runs the mpishim root command, returning a process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		sylog.Errorf("%s", err)
		return 1
	}
	return 0
}
