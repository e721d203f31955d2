// cmd/composer/main.go
//
// This is the entry point for the composer CLI.
// Every subcommand works on the project in the current directory (or the one
// passed with --project) and reads its settings from .composer/config.yaml.

package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
