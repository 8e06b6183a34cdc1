// Package main provides the entry point for the beam launcher.
package main

import (
	"os"

	"github.com/beamlauncher/beam/cmd/beam/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
