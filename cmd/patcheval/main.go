// Package main is the entry point for the patcheval CLI.
package main

import (
	"os"

	"github.com/patcheval/patcheval/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
