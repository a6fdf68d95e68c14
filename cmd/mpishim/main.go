// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package main

import (
	"os"

	"github.com/mpishim/mpishim/cmd/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
