// Package main is the single-binary entrypoint for GitGud.
package main

import "github.com/gitgud-app/gitgud/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
