// Package main is the entry point for the loadctl CLI.
// The CLI is the operator's terminal tool for starting and inspecting load jobs.
package main

import (
	"os"

	"loadgen/cmd/loadctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
