// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package launchconf is the ambient configuration layer: a TOML file
// carrying the defaults every real launch still needs - the default
// backend, default in-container directories, and extra library search
// directories consulted ahead of the fixed fallback - even though profile persistence and argument parsing stay out
// of scope.
package launchconf

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Config is the ambient configuration read from mpishim.toml.
type Config struct {
	// DefaultBackend is used when --backend is given an empty value on the
	// CLI (the flag itself is required).
	DefaultBackend string `toml:"default_backend"`

	// ImportLibraryDir overrides the container package's built-in default
	// in-container library import directory.
	ImportLibraryDir string `toml:"import_library_dir"`

	// ImportBinaryDir overrides the container package's built-in default
	// in-container binary import directory.
	ImportBinaryDir string `toml:"import_binary_dir"`

	// ExtraLibraryPath is prepended to the fixed fallback directories the
	// linker resolver consults.
	ExtraLibraryPath []string `toml:"extra_library_path"`
}

// Default returns the built-in configuration used when no file is present.
func Default() Config {
	return Config{DefaultBackend: "apptainer"}
}

// Load reads and parses a TOML configuration file at path. A missing file
// is not an error: Default() is returned instead, since the file is
// optional ambient configuration rather than a required input.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, errors.Wrapf(err, "reading configuration %s", path)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parsing configuration %s", path)
	}
	return cfg, nil
}
